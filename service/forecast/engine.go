/*
 * @module service/forecast/engine
 * @description 预测引擎，按固定7级业务层级分组行级数据，支持CAGR、线性回归、手动增长率三种预测方法，并在预测后统一应用价格策略
 * @architecture 分层架构 - 业务服务层（无状态纯计算）
 * @documentReference ai_docs/requirements.md
 * @stateFlow 数据集校验 -> 层级分组 -> 方法分派 -> 价格策略 -> 输出行
 * @rules 仅 list_status 为 Active 的行参与分组；输出行状态强制为 Planned；最晚年份早于2026的数据集无法锚定预测
 * @dependencies github.com/spf13/cast
 * @refs service/meta/planning.go, api/controllers/forecast_controller.go
 */

package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"planning-service/service/meta"
	"planning-service/service/models"

	"github.com/spf13/cast"
)

// 数据集校验错误
var (
	ErrEmptyDataset         = errors.New("数据集不能为空")
	ErrMissingGrowthFactors = errors.New("手动增长率预测必须提供增长因子")
	ErrNoBaselineYear       = errors.New("数据集必须包含2026基准年计划")
)

// MissingColumnsError 数据集缺少必需列
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("数据集缺少必需列: %s", strings.Join(e.Columns, ", "))
}

// 预测取值字段常量
const (
	ValueFieldVolume  = "volume_kg"
	ValueFieldRevenue = "revenue"
)

// ManualGrowthFactor 指定层级上的手动增长率
type ManualGrowthFactor struct {
	Level      string  `json:"level"`
	Value      string  `json:"value"`
	Percentage float64 `json:"percentage"`
}

// Request 预测请求
type Request struct {
	Dataset         []map[string]interface{} `json:"dataset"`
	Method          string                   `json:"method"`
	ValueField      string                   `json:"value_field"`
	ForecastYears   []int                    `json:"forecast_years"`
	ManualGrowth    []ManualGrowthFactor     `json:"manual_growth"`
	PriceStrategy   string                   `json:"price_strategy"`
	PriceGrowthRate *float64                 `json:"price_growth_rate"`
}

// ProjectionRow 预测输出行，携带2026基准值、基准价格和所应用的增长率以便追溯
type ProjectionRow struct {
	Director         string   `json:"director"`
	StateCode        string   `json:"state_code"`
	ProductType      string   `json:"product_type"`
	Family           string   `json:"family"`
	ProductionFamily string   `json:"production_family"`
	Brand            string   `json:"brand"`
	ProductCode      string   `json:"product_code"`
	ProductName      string   `json:"product_name"`
	ListStatus       string   `json:"list_status"`
	Year             int      `json:"year"`
	VolumeKg         float64  `json:"volume_kg"`
	Revenue          float64  `json:"revenue"`
	BaseValue2026    *float64 `json:"base_value_2026"`
	BasePrice2026    float64  `json:"base_price_2026"`
	AppliedRate      float64  `json:"applied_rate"`
	ProjectedPrice   float64  `json:"projected_price"`
	ProjectedRevenue float64  `json:"projected_revenue"`
}

// Metadata 预测结果元信息
type Metadata struct {
	Method        string `json:"method"`
	ValueField    string `json:"value_field"`
	PriceStrategy string `json:"price_strategy"`
}

// Response 预测结果
type Response struct {
	Forecast []ProjectionRow `json:"forecast"`
	Metadata Metadata        `json:"metadata"`
}

// group 单个层级组合的历史数据和元信息
type group struct {
	values          map[int]float64 // 所选取值字段的逐年值
	volume          map[int]float64
	revenue         map[int]float64
	attrs           map[string]string // 描述性维度取自组内行
	baseVolume2026  float64
	baseRevenue2026 float64
	basePrice       float64
}

// Engine 预测引擎，方法分派无状态，可安全并发使用
type Engine struct {
	hierarchy []string
}

// NewEngine 创建预测引擎实例
func NewEngine() *Engine {
	return &Engine{hierarchy: meta.HierarchyLevels}
}

// Generate 生成预测
func (e *Engine) Generate(req *Request) (*Response, error) {
	if len(req.Dataset) == 0 {
		return nil, ErrEmptyDataset
	}
	if err := validateColumns(req.Dataset[0]); err != nil {
		return nil, err
	}

	valueField := req.ValueField
	if valueField == "" {
		valueField = ValueFieldVolume
	}
	if valueField != ValueFieldVolume && valueField != ValueFieldRevenue {
		return nil, fmt.Errorf("不支持的取值字段: %s", valueField)
	}

	forecastYears := req.ForecastYears
	if len(forecastYears) == 0 {
		forecastYears = meta.DefaultForecastYears()
	}

	priceStrategy := req.PriceStrategy
	if priceStrategy == "" {
		priceStrategy = meta.PriceStrategyHold2026
	}
	priceGrowthRate := 0.03
	if req.PriceGrowthRate != nil {
		priceGrowthRate = *req.PriceGrowthRate
	}
	if priceGrowthRate < -0.5 {
		return nil, fmt.Errorf("价格增长率不能低于-50%%")
	}

	latestYear := 0
	for _, row := range req.Dataset {
		if year := cast.ToInt(row["year"]); year > latestYear {
			latestYear = year
		}
	}
	if latestYear < meta.BaseYear {
		return nil, ErrNoBaselineYear
	}

	grouped := e.groupByHierarchy(req.Dataset, valueField)

	var projections []ProjectionRow
	var err error
	switch req.Method {
	case meta.MethodCAGR:
		projections = e.forecastWithCAGR(grouped, forecastYears, valueField)
	case meta.MethodLinearRegression:
		projections = e.forecastWithRegression(grouped, forecastYears, valueField)
	case meta.MethodManualPercentage:
		projections, err = e.forecastWithManualPercentages(grouped, req.ManualGrowth, forecastYears, valueField)
	default:
		err = fmt.Errorf("不支持的预测方法: %s", req.Method)
	}
	if err != nil {
		return nil, err
	}

	priced := applyPriceStrategy(projections, priceStrategy, priceGrowthRate, valueField)

	return &Response{
		Forecast: priced,
		Metadata: Metadata{Method: req.Method, ValueField: valueField, PriceStrategy: priceStrategy},
	}, nil
}

// validateColumns 校验首行包含全部必需列
func validateColumns(first map[string]interface{}) error {
	var missing []string
	for _, column := range meta.RequiredColumns {
		if _, ok := first[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &MissingColumnsError{Columns: missing}
	}
	return nil
}

// descriptiveColumns 除年份和两个度量之外的描述性列
var descriptiveColumns = []string{
	"director", "state_code", "product_type", "family",
	"production_family", "brand", "list_status", "product_code", "product_name",
}

// groupByHierarchy 按7级层级键分组，仅保留 Active 行
func (e *Engine) groupByHierarchy(dataset []map[string]interface{}, valueField string) map[string]*group {
	grouped := make(map[string]*group)
	for _, row := range dataset {
		status := cast.ToString(row["list_status"])
		if status == "" {
			status = models.ListStatusActive
		}
		if status != models.ListStatusActive {
			continue
		}

		keyParts := make([]string, len(e.hierarchy))
		for i, level := range e.hierarchy {
			keyParts[i] = cast.ToString(row[level])
		}
		key := strings.Join(keyParts, "\x1f")

		g, ok := grouped[key]
		if !ok {
			attrs := make(map[string]string, len(descriptiveColumns))
			for _, column := range descriptiveColumns {
				attrs[column] = cast.ToString(row[column])
			}
			g = &group{
				values:  make(map[int]float64),
				volume:  make(map[int]float64),
				revenue: make(map[int]float64),
				attrs:   attrs,
			}
			grouped[key] = g
		}

		year := cast.ToInt(row["year"])
		g.values[year] = cast.ToFloat64(row[valueField])
		g.volume[year] = cast.ToFloat64(row["volume_kg"])
		g.revenue[year] = cast.ToFloat64(row["revenue"])
		if year == meta.BaseYear {
			g.baseVolume2026 = g.volume[year]
			g.baseRevenue2026 = g.revenue[year]
		}
	}

	for _, g := range grouped {
		g.basePrice = computeBasePrice(g)
	}
	return grouped
}

// computeBasePrice 2026年收入/销量比，销量缺失或为0时定义为0
func computeBasePrice(g *group) float64 {
	volume, ok := g.volume[meta.BaseYear]
	if !ok || volume == 0 {
		return 0
	}
	return g.revenue[meta.BaseYear] / volume
}

// sortedGroups 按键升序遍历分组，保证输出顺序稳定
func sortedGroups(grouped map[string]*group) []*group {
	keys := make([]string, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	groups := make([]*group, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, grouped[key])
	}
	return groups
}

// forecastWithCAGR 组内最早与最晚年份之间的CAGR，从2026值（缺失时取最晚值）向前复合
func (e *Engine) forecastWithCAGR(grouped map[string]*group, years []int, valueField string) []ProjectionRow {
	var projections []ProjectionRow
	for _, g := range sortedGroups(grouped) {
		if len(g.values) == 0 {
			continue
		}
		historyYears := sortedYears(g.values)
		startYear := historyYears[0]
		endYear := historyYears[len(historyYears)-1]
		periods := endYear - startYear
		if periods == 0 {
			periods = 1
		}
		growth := computeCAGR(g.values[startYear], g.values[endYear], periods)

		lastValue, ok := g.values[meta.BaseYear]
		if !ok {
			lastValue = g.values[endYear]
		}
		projections = append(projections, projectGrowthForYears(g, lastValue, growth, years, valueField)...)
	}
	return projections
}

// forecastWithRegression 普通最小二乘回归，历史点少于2个的分组跳过
func (e *Engine) forecastWithRegression(grouped map[string]*group, years []int, valueField string) []ProjectionRow {
	var projections []ProjectionRow
	for _, g := range sortedGroups(grouped) {
		if len(g.values) < 2 {
			continue
		}
		xs := sortedYears(g.values)
		ys := make([]float64, len(xs))
		for i, year := range xs {
			ys[i] = g.values[year]
		}
		slope, intercept := linearRegression(xs, ys)

		lastValue := g.values[xs[len(xs)-1]]
		growthRate := 0.0
		if lastValue != 0 {
			growthRate = slope / lastValue
		}

		var baseValue *float64
		if value, ok := g.values[meta.BaseYear]; ok {
			v := value
			baseValue = &v
		}

		for _, year := range years {
			projected := math.Max(intercept+slope*float64(year), 0)
			projections = append(projections, buildProjectionRow(g, year, projected, baseValue, valueField, growthRate))
		}
	}
	return projections
}

// forecastWithManualPercentages 按最深匹配层级的手动增长率复合，无2026基准值的分组跳过
func (e *Engine) forecastWithManualPercentages(grouped map[string]*group, factors []ManualGrowthFactor, years []int, valueField string) ([]ProjectionRow, error) {
	if len(factors) == 0 {
		return nil, ErrMissingGrowthFactors
	}
	var projections []ProjectionRow
	for _, g := range sortedGroups(grouped) {
		lastValue, ok := g.values[meta.BaseYear]
		if !ok {
			continue
		}
		growth := e.resolveManualGrowth(g.attrs, factors)
		projections = append(projections, projectGrowthForYears(g, lastValue, growth, years, valueField)...)
	}
	return projections, nil
}

// resolveManualGrowth 在所有匹配的因子中选取层级最深的一个；同层级深度取首个匹配（严格大于比较保证确定性）
func (e *Engine) resolveManualGrowth(attrs map[string]string, factors []ManualGrowthFactor) float64 {
	bestDepth := -1
	bestRate := 0.0
	for _, factor := range factors {
		if attrs[factor.Level] != factor.Value {
			continue
		}
		depth := hierarchyDepth(e.hierarchy, factor.Level)
		if depth > bestDepth {
			bestDepth = depth
			bestRate = factor.Percentage
		}
	}
	return bestRate
}

func hierarchyDepth(hierarchy []string, level string) int {
	for i, name := range hierarchy {
		if name == level {
			return i
		}
	}
	return -1
}

// projectGrowthForYears 从基准值按复合增长率逐年推算，结果不低于0
func projectGrowthForYears(g *group, baseValue, growthRate float64, years []int, valueField string) []ProjectionRow {
	rows := make([]ProjectionRow, 0, len(years))
	value := baseValue
	base := baseValue
	for _, year := range years {
		value *= 1 + growthRate
		rows = append(rows, buildProjectionRow(g, year, math.Max(value, 0), &base, valueField, growthRate))
	}
	return rows
}

// buildProjectionRow 构造单行预测输出，状态强制为 Planned
func buildProjectionRow(g *group, year int, value float64, baseValue *float64, valueField string, growthRate float64) ProjectionRow {
	row := ProjectionRow{
		Director:         g.attrs["director"],
		StateCode:        g.attrs["state_code"],
		ProductType:      g.attrs["product_type"],
		Family:           g.attrs["family"],
		ProductionFamily: g.attrs["production_family"],
		Brand:            g.attrs["brand"],
		ProductCode:      g.attrs["product_code"],
		ProductName:      g.attrs["product_name"],
		ListStatus:       models.ListStatusPlanned,
		Year:             year,
		BaseValue2026:    baseValue,
		BasePrice2026:    g.basePrice,
		AppliedRate:      growthRate,
	}
	if valueField == ValueFieldRevenue {
		row.Revenue = value
		row.VolumeKg = g.baseVolume2026
	} else {
		row.VolumeKg = value
		row.Revenue = g.baseRevenue2026
	}
	return row
}

// applyPriceStrategy 价格策略统一后处理：hold_2026 维持基准价格，constant_growth 按年复合
func applyPriceStrategy(projections []ProjectionRow, strategy string, growthRate float64, valueField string) []ProjectionRow {
	priced := make([]ProjectionRow, 0, len(projections))
	for _, row := range projections {
		price := row.BasePrice2026
		if strategy == meta.PriceStrategyConstantGrowth {
			yearsAhead := row.Year - meta.BaseYear
			price = row.BasePrice2026 * math.Pow(1+growthRate, float64(yearsAhead))
		}

		revenue := price * row.VolumeKg
		if valueField == ValueFieldRevenue {
			revenue = row.Revenue
		} else {
			row.Revenue = revenue
		}
		row.ProjectedPrice = price
		row.ProjectedRevenue = revenue
		priced = append(priced, row)
	}
	return priced
}

// computeCAGR 复合年增长率，起始值或比值非正时定义为0
func computeCAGR(startValue, endValue float64, periods int) float64 {
	if startValue <= 0 {
		return 0
	}
	ratio := endValue / startValue
	if ratio <= 0 {
		return 0
	}
	return math.Pow(ratio, 1/float64(periods)) - 1
}

// linearRegression 闭式最小二乘，分母为0（所有年份相同）时斜率为0、截距为均值
func linearRegression(xs []int, ys []float64) (float64, float64) {
	n := float64(len(xs))
	var sumX, sumY, sumXY, sumX2 float64
	for i, x := range xs {
		fx := float64(x)
		sumX += fx
		sumY += ys[i]
		sumXY += fx * ys[i]
		sumX2 += fx * fx
	}
	denominator := n*sumX2 - sumX*sumX
	if denominator == 0 {
		return 0, sumY / n
	}
	slope := (n*sumXY - sumX*sumY) / denominator
	intercept := (sumY - slope*sumX) / n
	return slope, intercept
}

// sortedYears 返回升序年份切片
func sortedYears(values map[int]float64) []int {
	years := make([]int, 0, len(values))
	for year := range values {
		years = append(years, year)
	}
	sort.Ints(years)
	return years
}
