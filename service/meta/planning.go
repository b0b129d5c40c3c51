/*
 * @module service/meta/planning
 * @description 销售规划元数据定义：维度字段允许列表、预测层级结构、必需列、预测方法与价格策略常量、情景定义和默认评分层级
 * @architecture 常量层 - 元数据定义
 * @documentReference ai_docs/requirements.md
 * @stateFlow 常量定义 -> 验证函数 -> 业务逻辑使用
 * @rules 聚合与评分的分组字段必须来自允许列表，层级顺序决定手动增长因子的优先级
 * @dependencies 无外部依赖
 * @refs service/analytics, service/forecast, service/levelscore
 */

package meta

// 预测基准年份与默认预测区间
const (
	BaseYear          = 2026
	ForecastStartYear = 2027
	ForecastEndYear   = 2030
)

// DefaultForecastYears 默认的预测年份序列（2027-2030）
func DefaultForecastYears() []int {
	years := make([]int, 0, ForecastEndYear-ForecastStartYear+1)
	for year := ForecastStartYear; year <= ForecastEndYear; year++ {
		years = append(years, year)
	}
	return years
}

// 聚合度量常量
const (
	MetricVolume  = "volume"
	MetricRevenue = "revenue"
)

// AllowedGroupFields 聚合分组字段允许列表，键为API字段名，值为数据库列名
var AllowedGroupFields = map[string]string{
	"year":              "year",
	"director":          "director",
	"state_code":        "state_code",
	"product_type":      "product_type",
	"family":            "family",
	"production_family": "production_family",
	"brand":             "brand",
	"list_status":       "list_status",
	"product_code":      "product_code",
	"product_name":      "product_name",
}

// HierarchyLevels 预测引擎固定的7级业务层级，顺序决定层级深度
var HierarchyLevels = []string{
	"director",
	"state_code",
	"product_type",
	"family",
	"production_family",
	"brand",
	"product_code",
}

// ManualGrowthLevels 手动增长因子可指定的层级（不含产品编码）
var ManualGrowthLevels = HierarchyLevels[:6]

// RequiredColumns 预测数据集必需列
var RequiredColumns = []string{
	"year",
	"director",
	"state_code",
	"product_type",
	"family",
	"production_family",
	"brand",
	"list_status",
	"product_code",
	"product_name",
	"volume_kg",
	"revenue",
}

// 预测方法常量
const (
	MethodCAGR             = "cagr"
	MethodLinearRegression = "linear_regression"
	MethodManualPercentage = "manual_percentage"
)

// IsValidForecastMethod 验证预测方法是否有效
func IsValidForecastMethod(method string) bool {
	switch method {
	case MethodCAGR, MethodLinearRegression, MethodManualPercentage:
		return true
	}
	return false
}

// 价格策略常量
const (
	PriceStrategyHold2026       = "hold_2026"
	PriceStrategyConstantGrowth = "constant_growth"
)

// ScenarioDefinition 情景定义，乘数分别独立作用于销量与收入
type ScenarioDefinition struct {
	ID                string  `json:"id"`
	Label             string  `json:"label"`
	Description       string  `json:"description"`
	VolumeMultiplier  float64 `json:"volume_multiplier"`
	RevenueMultiplier float64 `json:"revenue_multiplier"`
}

// ScenarioDefinitions 固定的三种情景
var ScenarioDefinitions = []ScenarioDefinition{
	{
		ID:                "base",
		Label:             "基准2030",
		Description:       "基于筛选后历史数据的CAGR自动推算",
		VolumeMultiplier:  1.0,
		RevenueMultiplier: 1.0,
	},
	{
		ID:                "optimistic",
		Label:             "乐观",
		Description:       "预测年份销量+5%、收入+4%",
		VolumeMultiplier:  1.05,
		RevenueMultiplier: 1.04,
	},
	{
		ID:                "pessimistic",
		Label:             "悲观",
		Description:       "预测年份销量与收入均-3%",
		VolumeMultiplier:  0.97,
		RevenueMultiplier: 0.97,
	},
}

// DefaultScoreLevels 层级评分任务默认的候选维度子集
var DefaultScoreLevels = [][]string{
	{"director", "state_code", "product_type"},
	{"director", "state_code"},
	{"director"},
	{"state_code", "product_type"},
	{"product_type", "family"},
}
