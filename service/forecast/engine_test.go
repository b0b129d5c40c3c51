/*
 * @module service/forecast/engine_test
 * @description 预测引擎单元测试，覆盖三种预测方法、价格策略和入参校验
 * @architecture 测试层
 * @documentReference ai_docs/forecast_design.md
 * @stateFlow 构造数据集 -> 生成预测 -> 断言投影值
 * @rules 断言使用固定精度，数据集构造函数保证必需列齐全
 * @dependencies github.com/stretchr/testify
 * @refs service/forecast/engine.go
 */

package forecast

import (
	"errors"
	"testing"

	"planning-service/service/meta"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeRow 构造包含全部必需列的数据行，revenue 默认为 volume 的两倍
func makeRow(year int, volume float64) map[string]interface{} {
	return map[string]interface{}{
		"year":              year,
		"director":          "东北区",
		"state_code":        "SP",
		"product_type":      "乳制品",
		"family":            "酸奶",
		"production_family": "冷链",
		"brand":             "品牌A",
		"list_status":       "Active",
		"product_code":      "P001",
		"product_name":      "原味酸奶",
		"volume_kg":         volume,
		"revenue":           volume * 2,
	}
}

func projectionsByYear(rows []ProjectionRow) map[int]ProjectionRow {
	result := make(map[int]ProjectionRow, len(rows))
	for _, row := range rows {
		result[row.Year] = row
	}
	return result
}

func TestGenerateCAGR(t *testing.T) {
	engine := NewEngine()
	resp, err := engine.Generate(&Request{
		Dataset: []map[string]interface{}{
			makeRow(2024, 100),
			makeRow(2025, 110),
			makeRow(2026, 121),
		},
		Method: meta.MethodCAGR,
	})
	require.NoError(t, err)
	require.Len(t, resp.Forecast, 4)

	byYear := projectionsByYear(resp.Forecast)

	// 2024->2026 两年复合增长率为10%，从2026年121外推
	assert.InDelta(t, 133.1, byYear[2027].VolumeKg, 1e-6)
	assert.InDelta(t, 146.41, byYear[2028].VolumeKg, 1e-6)

	// 默认价格策略 hold_2026：基准价格2（242/121）保持不变
	assert.InDelta(t, 2.0, byYear[2027].ProjectedPrice, 1e-9)
	assert.InDelta(t, 266.2, byYear[2027].ProjectedRevenue, 1e-6)

	// 预测行状态强制为 Planned
	for _, row := range resp.Forecast {
		assert.Equal(t, "Planned", row.ListStatus)
	}
}

func TestGenerateLinearRegression(t *testing.T) {
	engine := NewEngine()
	resp, err := engine.Generate(&Request{
		Dataset: []map[string]interface{}{
			makeRow(2022, 80),
			makeRow(2023, 90),
			makeRow(2024, 100),
			makeRow(2025, 110),
			makeRow(2026, 120),
		},
		Method:        meta.MethodLinearRegression,
		ForecastYears: []int{2027},
	})
	require.NoError(t, err)
	require.Len(t, resp.Forecast, 1)

	// 斜率恰好为10，2027年外推值为130
	assert.InDelta(t, 130.0, resp.Forecast[0].VolumeKg, 1e-6)
}

func TestGenerateManualPercentageWithConstantGrowthPrice(t *testing.T) {
	engine := NewEngine()
	rate := 0.02
	resp, err := engine.Generate(&Request{
		Dataset: []map[string]interface{}{
			makeRow(2026, 100),
		},
		Method: meta.MethodManualPercentage,
		ManualGrowth: []ManualGrowthFactor{
			{Level: "product_type", Value: "乳制品", Percentage: 0.05},
		},
		PriceStrategy:   meta.PriceStrategyConstantGrowth,
		PriceGrowthRate: &rate,
		ForecastYears:   []int{2027},
	})
	require.NoError(t, err)
	require.Len(t, resp.Forecast, 1)

	row := resp.Forecast[0]
	assert.InDelta(t, 105.0, row.VolumeKg, 1e-6)
	// 基准价格2按2%复合一年
	assert.InDelta(t, 2.04, row.ProjectedPrice, 1e-9)
	assert.InDelta(t, 214.2, row.ProjectedRevenue, 1e-6)
}

func TestGenerateManualPercentageDeepestLevelWins(t *testing.T) {
	engine := NewEngine()
	resp, err := engine.Generate(&Request{
		Dataset: []map[string]interface{}{
			makeRow(2026, 100),
		},
		Method: meta.MethodManualPercentage,
		ManualGrowth: []ManualGrowthFactor{
			{Level: "director", Value: "东北区", Percentage: 0.10},
			{Level: "brand", Value: "品牌A", Percentage: 0.02},
		},
		ForecastYears: []int{2027},
	})
	require.NoError(t, err)
	require.Len(t, resp.Forecast, 1)

	// brand 比 director 层级更深，应用2%
	assert.InDelta(t, 102.0, resp.Forecast[0].VolumeKg, 1e-6)
}

func TestGenerateRevenueValueField(t *testing.T) {
	engine := NewEngine()
	resp, err := engine.Generate(&Request{
		Dataset: []map[string]interface{}{
			makeRow(2024, 100),
			makeRow(2026, 121),
		},
		Method:        meta.MethodCAGR,
		ValueField:    ValueFieldRevenue,
		ForecastYears: []int{2027},
	})
	require.NoError(t, err)
	require.Len(t, resp.Forecast, 1)

	row := resp.Forecast[0]
	// 收入字段直接外推：242按10%增长
	assert.InDelta(t, 266.2, row.Revenue, 1e-6)
	assert.InDelta(t, 266.2, row.ProjectedRevenue, 1e-6)
	// 销量保持2026基准不变
	assert.InDelta(t, 121.0, row.VolumeKg, 1e-6)
}

func TestGenerateSkipsInactiveRows(t *testing.T) {
	inactive := makeRow(2026, 500)
	inactive["list_status"] = "Inactive"
	inactive["product_code"] = "P999"

	engine := NewEngine()
	resp, err := engine.Generate(&Request{
		Dataset: []map[string]interface{}{
			makeRow(2025, 100),
			makeRow(2026, 110),
			inactive,
		},
		Method:        meta.MethodCAGR,
		ForecastYears: []int{2027},
	})
	require.NoError(t, err)
	require.Len(t, resp.Forecast, 1)
	assert.Equal(t, "P001", resp.Forecast[0].ProductCode)
}

func TestGenerateValidation(t *testing.T) {
	engine := NewEngine()

	_, err := engine.Generate(&Request{Method: meta.MethodCAGR})
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, err = engine.Generate(&Request{
		Dataset: []map[string]interface{}{{"year": 2026}},
		Method:  meta.MethodCAGR,
	})
	var missingErr *MissingColumnsError
	require.True(t, errors.As(err, &missingErr))
	assert.Contains(t, missingErr.Columns, "volume_kg")
	assert.Contains(t, missingErr.Columns, "director")

	_, err = engine.Generate(&Request{
		Dataset: []map[string]interface{}{makeRow(2026, 100)},
		Method:  meta.MethodManualPercentage,
	})
	assert.ErrorIs(t, err, ErrMissingGrowthFactors)

	_, err = engine.Generate(&Request{
		Dataset: []map[string]interface{}{makeRow(2024, 100)},
		Method:  meta.MethodCAGR,
	})
	assert.ErrorIs(t, err, ErrNoBaselineYear)

	badRate := -0.9
	_, err = engine.Generate(&Request{
		Dataset:         []map[string]interface{}{makeRow(2026, 100)},
		Method:          meta.MethodCAGR,
		PriceGrowthRate: &badRate,
	})
	assert.Error(t, err)

	_, err = engine.Generate(&Request{
		Dataset: []map[string]interface{}{makeRow(2026, 100)},
		Method:  "unknown",
	})
	assert.Error(t, err)
}

func TestComputeCAGREdgeCases(t *testing.T) {
	assert.InDelta(t, 0.1, computeCAGR(100, 121, 2), 1e-9)
	assert.Zero(t, computeCAGR(0, 100, 1))
	assert.Zero(t, computeCAGR(-10, 100, 1))
	assert.Zero(t, computeCAGR(100, -5, 1))
}
