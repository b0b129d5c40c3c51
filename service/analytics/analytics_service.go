/*
 * @module service/analytics/analytics_service
 * @description 分析服务，提供年度汇总、基线推算（CAGR）、任意维度聚合和按分组的基线预测视图
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/requirements.md
 * @stateFlow 存储查询 -> 内存分组 -> 基线推算 -> 结果结构
 * @rules 分组字段必须来自允许列表；基线推算是纯函数，同样输入必然得到同样输出
 * @dependencies gorm.io/gorm, github.com/spf13/cast
 * @refs service/meta/planning.go, api/controllers/analytics_controller.go
 */

package analytics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"planning-service/service/meta"
	"planning-service/service/models"

	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// ErrInvalidMetric 不支持的聚合指标
var ErrInvalidMetric = errors.New("无效的聚合指标，仅支持 volume|revenue")

// InvalidGroupingError 无效分组错误，Fields 列出所有不在允许列表中的字段
type InvalidGroupingError struct {
	Fields []string
}

func (e *InvalidGroupingError) Error() string {
	if len(e.Fields) == 0 {
		return "至少需要一个分组字段"
	}
	return fmt.Sprintf("无效的分组字段: %s", strings.Join(e.Fields, ", "))
}

// YearlyPoint 年度数据点（年份、销量、收入）
type YearlyPoint struct {
	Year    int     `json:"year"`
	Volume  float64 `json:"volume"`
	Revenue float64 `json:"revenue"`
}

// AggregateRow 单个维度组合的聚合序列
type AggregateRow struct {
	Key    map[string]string `json:"key"`
	Values []YearlyPoint     `json:"values"`
}

// AggregateResult 聚合视图结果
type AggregateResult struct {
	GroupBy []string       `json:"group_by"`
	Metric  string         `json:"metric"`
	Rows    []AggregateRow `json:"rows"`
}

// GroupForecastRow 单个维度组合的历史序列与基线推算
type GroupForecastRow struct {
	Key      map[string]string `json:"key"`
	History  []YearlyPoint     `json:"history"`
	Baseline []YearlyPoint     `json:"baseline"`
}

// GroupForecastResult 按分组的基线预测视图结果
type GroupForecastResult struct {
	GroupBy []string           `json:"group_by"`
	Rows    []GroupForecastRow `json:"rows"`
}

// TypeProductBaseline 按产品类型的历史序列与基线
type TypeProductBaseline struct {
	ProductType string        `json:"product_type"`
	History     []YearlyPoint `json:"history"`
	Baseline    []YearlyPoint `json:"baseline"`
}

// Service 分析服务
type Service struct {
	db *gorm.DB
}

// NewService 创建分析服务实例
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GetYearlyTotals 查询全量记录的年度销量/收入汇总和总行数
func (s *Service) GetYearlyTotals() ([]YearlyPoint, int64, error) {
	var yearly []YearlyPoint
	err := s.db.Model(&models.PlanningRecord{}).
		Select("year, COALESCE(SUM(volume_kg), 0) AS volume, COALESCE(SUM(revenue), 0) AS revenue").
		Group("year").
		Order("year").
		Scan(&yearly).Error
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.Model(&models.PlanningRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	return yearly, total, nil
}

// ComputeBaseline 基线推算：按历史区间（≤2026）的CAGR向前复合推算2027-2030。
// 纯函数，输入序列必须按年份升序；历史点不足2个时返回空切片。
func ComputeBaseline(yearly []YearlyPoint) []YearlyPoint {
	if len(yearly) == 0 {
		return []YearlyPoint{}
	}

	historical := make([]YearlyPoint, 0, len(yearly))
	for _, point := range yearly {
		if point.Year <= meta.BaseYear {
			historical = append(historical, point)
		}
	}
	if len(historical) < 2 {
		return []YearlyPoint{}
	}

	start := historical[0]
	end := historical[len(historical)-1]
	periods := end.Year - start.Year
	if periods == 0 {
		periods = 1
	}

	volumeCAGR := safeCAGR(start.Volume, end.Volume, periods)
	revenueCAGR := safeCAGR(start.Revenue, end.Revenue, periods)

	baseline := make([]YearlyPoint, 0, meta.ForecastEndYear-meta.ForecastStartYear+1)
	lastVolume := end.Volume
	lastRevenue := end.Revenue
	for year := meta.ForecastStartYear; year <= meta.ForecastEndYear; year++ {
		lastVolume = math.Max(0, lastVolume*(1+volumeCAGR))
		lastRevenue = math.Max(0, lastRevenue*(1+revenueCAGR))
		baseline = append(baseline, YearlyPoint{Year: year, Volume: lastVolume, Revenue: lastRevenue})
	}
	return baseline
}

// safeCAGR 复合年增长率，端点值非正时定义为0，避免负底数的分数次幂
func safeCAGR(start, end float64, periods int) float64 {
	if start <= 0 || end <= 0 {
		return 0
	}
	return math.Pow(end/start, 1/float64(periods)) - 1
}

// GetTypeProductBaseline 按产品类型返回历史序列和各自的基线推算
func (s *Service) GetTypeProductBaseline() ([]TypeProductBaseline, error) {
	type row struct {
		ProductType string
		Year        int
		Volume      float64
		Revenue     float64
	}
	var rows []row
	err := s.db.Model(&models.PlanningRecord{}).
		Select("product_type, year, COALESCE(SUM(volume_kg), 0) AS volume, COALESCE(SUM(revenue), 0) AS revenue").
		Group("product_type, year").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]YearlyPoint)
	for _, r := range rows {
		grouped[r.ProductType] = append(grouped[r.ProductType], YearlyPoint{Year: r.Year, Volume: r.Volume, Revenue: r.Revenue})
	}

	types := make([]string, 0, len(grouped))
	for productType := range grouped {
		types = append(types, productType)
	}
	sort.Strings(types)

	result := make([]TypeProductBaseline, 0, len(types))
	for _, productType := range types {
		series := grouped[productType]
		sort.Slice(series, func(i, j int) bool { return series[i].Year < series[j].Year })
		result = append(result, TypeProductBaseline{
			ProductType: productType,
			History:     series,
			Baseline:    ComputeBaseline(series),
		})
	}
	return result, nil
}

// validateGroupFields 校验分组字段并转换为数据库列名
func validateGroupFields(groupBy []string, requireNonEmpty bool) ([]string, error) {
	if requireNonEmpty && len(groupBy) == 0 {
		return nil, &InvalidGroupingError{}
	}
	columns := make([]string, 0, len(groupBy))
	var invalid []string
	for _, field := range groupBy {
		column, ok := meta.AllowedGroupFields[field]
		if !ok {
			invalid = append(invalid, field)
			continue
		}
		columns = append(columns, column)
	}
	if len(invalid) > 0 {
		return nil, &InvalidGroupingError{Fields: invalid}
	}
	return columns, nil
}

// GenerateAggregate 聚合视图：按任意允许的维度子集分组，逐年求和指定度量。
// 组间顺序不保证，组内按年份升序。
func (s *Service) GenerateAggregate(groupBy []string, metric string) (*AggregateResult, error) {
	columns, err := validateGroupFields(groupBy, true)
	if err != nil {
		return nil, err
	}

	var valueColumn string
	switch metric {
	case meta.MetricVolume:
		valueColumn = "volume_kg"
	case meta.MetricRevenue:
		valueColumn = "revenue"
	default:
		return nil, ErrInvalidMetric
	}

	groupExpr := strings.Join(columns, ", ")
	rows, err := s.db.Model(&models.PlanningRecord{}).
		Select(fmt.Sprintf("%s, year, COALESCE(SUM(%s), 0) AS value", groupExpr, valueColumn)).
		Group(groupExpr + ", year").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type yearValue struct {
		year  int
		value float64
	}
	groupedValues := make(map[string][]yearValue)
	groupedKeys := make(map[string]map[string]string)

	for rows.Next() {
		keyValues := make([]interface{}, len(columns))
		targets := make([]interface{}, 0, len(columns)+2)
		for i := range keyValues {
			targets = append(targets, &keyValues[i])
		}
		var year int
		var value float64
		targets = append(targets, &year, &value)
		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		keyParts := make([]string, len(groupBy))
		keyMap := make(map[string]string, len(groupBy))
		for i, field := range groupBy {
			keyParts[i] = cast.ToString(keyValues[i])
			keyMap[field] = keyParts[i]
		}
		mapKey := strings.Join(keyParts, "\x1f")
		groupedValues[mapKey] = append(groupedValues[mapKey], yearValue{year: year, value: value})
		groupedKeys[mapKey] = keyMap
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	mapKeys := make([]string, 0, len(groupedValues))
	for mapKey := range groupedValues {
		mapKeys = append(mapKeys, mapKey)
	}
	sort.Strings(mapKeys)

	result := &AggregateResult{GroupBy: groupBy, Metric: metric, Rows: make([]AggregateRow, 0, len(mapKeys))}
	for _, mapKey := range mapKeys {
		values := groupedValues[mapKey]
		sort.Slice(values, func(i, j int) bool { return values[i].year < values[j].year })
		points := make([]YearlyPoint, 0, len(values))
		for _, v := range values {
			point := YearlyPoint{Year: v.year}
			if metric == meta.MetricRevenue {
				point.Revenue = v.value
			} else {
				point.Volume = v.value
			}
			points = append(points, point)
		}
		result.Rows = append(result.Rows, AggregateRow{Key: groupedKeys[mapKey], Values: points})
	}
	return result, nil
}

// GenerateGroupForecast 按分组返回历史序列和CAGR基线推算
func (s *Service) GenerateGroupForecast(groupBy []string) (*GroupForecastResult, error) {
	columns, err := validateGroupFields(groupBy, false)
	if err != nil {
		return nil, err
	}

	query := s.db.Model(&models.PlanningRecord{})
	selectExpr := "year, COALESCE(SUM(volume_kg), 0) AS volume, COALESCE(SUM(revenue), 0) AS revenue"
	groupExpr := "year"
	if len(columns) > 0 {
		selectExpr = strings.Join(columns, ", ") + ", " + selectExpr
		groupExpr = strings.Join(columns, ", ") + ", year"
	}

	rows, err := query.Select(selectExpr).Group(groupExpr).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groupedHistory := make(map[string][]YearlyPoint)
	groupedKeys := make(map[string]map[string]string)

	for rows.Next() {
		keyValues := make([]interface{}, len(columns))
		targets := make([]interface{}, 0, len(columns)+3)
		for i := range keyValues {
			targets = append(targets, &keyValues[i])
		}
		var year int
		var volume, revenue float64
		targets = append(targets, &year, &volume, &revenue)
		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		keyParts := make([]string, len(groupBy))
		keyMap := make(map[string]string, len(groupBy))
		for i, field := range groupBy {
			keyParts[i] = cast.ToString(keyValues[i])
			keyMap[field] = keyParts[i]
		}
		mapKey := strings.Join(keyParts, "\x1f")
		groupedHistory[mapKey] = append(groupedHistory[mapKey], YearlyPoint{Year: year, Volume: volume, Revenue: revenue})
		groupedKeys[mapKey] = keyMap
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	mapKeys := make([]string, 0, len(groupedHistory))
	for mapKey := range groupedHistory {
		mapKeys = append(mapKeys, mapKey)
	}
	sort.Strings(mapKeys)

	result := &GroupForecastResult{GroupBy: groupBy, Rows: make([]GroupForecastRow, 0, len(mapKeys))}
	for _, mapKey := range mapKeys {
		history := groupedHistory[mapKey]
		sort.Slice(history, func(i, j int) bool { return history[i].Year < history[j].Year })
		result.Rows = append(result.Rows, GroupForecastRow{
			Key:      groupedKeys[mapKey],
			History:  history,
			Baseline: ComputeBaseline(history),
		})
	}
	return result, nil
}
