/*
 * @module service/preprocess/preprocess_service_test
 * @description 预处理服务单元测试，覆盖情景推演、维度过滤和组合快照
 * @architecture 测试层
 * @documentReference ai_docs/requirements.md
 * @stateFlow 构造测试数据库 -> 推演/重建 -> 断言
 * @rules 使用内存SQLite，测试之间不共享状态
 * @dependencies github.com/stretchr/testify, planning-service/testutil
 * @refs service/preprocess/preprocess_service.go
 */

package preprocess

import (
	"testing"

	"planning-service/service/models"
	"planning-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePayloadScenarios(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	factory.CreateYearlySeries(map[int]float64{2024: 100, 2025: 110, 2026: 121})

	service := NewService(tdb.DB)
	total, scenarios, err := service.GeneratePayload(nil)
	require.NoError(t, err)

	assert.Equal(t, int64(3), total)
	require.Len(t, scenarios, 3)

	byID := make(map[string]ScenarioSeries, len(scenarios))
	for _, s := range scenarios {
		byID[s.Scenario.ID] = s
	}
	base := byID["base"]
	optimistic := byID["optimistic"]
	pessimistic := byID["pessimistic"]

	// 每个情景：3个历史点+4个推演点
	require.Len(t, base.Series, 7)

	// 历史部分不受情景乘数影响
	assert.InDelta(t, 100.0, optimistic.Series[0].Volume, 1e-9)

	// 2027基线为133.1，按情景乘数缩放
	assert.InDelta(t, 133.1, base.Series[3].Volume, 1e-6)
	assert.InDelta(t, 133.1*1.05, optimistic.Series[3].Volume, 1e-6)
	assert.InDelta(t, 133.1*0.97, pessimistic.Series[3].Volume, 1e-6)

	// 收入乘数独立于销量乘数
	assert.InDelta(t, 266.2*1.04, optimistic.Series[3].Revenue, 1e-6)
}

func TestGeneratePayloadWithFilters(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	factory.CreateYearlySeries(map[int]float64{2025: 100, 2026: 110},
		testutil.WithDimensions("南区", "SP", "酸奶"))
	factory.CreateYearlySeries(map[int]float64{2025: 500, 2026: 500},
		testutil.WithDimensions("北区", "RJ", "奶酪"), testutil.WithProductCode("P002"))

	service := NewService(tdb.DB)
	total, scenarios, err := service.GeneratePayload(Filters{"director": {"南区"}})
	require.NoError(t, err)

	assert.Equal(t, int64(2), total)
	require.NotEmpty(t, scenarios)
	// 过滤后只剩南区序列
	assert.InDelta(t, 100.0, scenarios[0].Series[0].Volume, 1e-9)

	// 未知过滤字段被忽略
	total, _, err = service.GeneratePayload(Filters{"bogus": {"x"}})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
}

func TestRebuildCombinationsSnapshot(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	factory.CreateYearlySeries(map[int]float64{2025: 100, 2026: 120},
		testutil.WithDimensions("南区", "SP", "酸奶"))
	factory.CreateYearlySeries(map[int]float64{2026: 50},
		testutil.WithDimensions("北区", "RJ", "奶酪"), testutil.WithProductCode("P002"))

	service := NewService(tdb.DB)
	count, err := service.RebuildCombinationsSnapshot()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	combinations, err := service.ListCombinations(0, nil, nil)
	require.NoError(t, err)
	require.Len(t, combinations, 2)

	// 排序按 director 升序：北区在前
	north := combinations[0]
	assert.Equal(t, "北区", north.Director)
	assert.Equal(t, 1, north.Records)
	assert.Equal(t, 2026, north.FirstYear)
	assert.Equal(t, 2026, north.LastYear)

	south := combinations[1]
	assert.Equal(t, "南区", south.Director)
	assert.Equal(t, 2, south.Records)
	assert.Equal(t, 2025, south.FirstYear)
	assert.Equal(t, 2026, south.LastYear)
	assert.InDelta(t, 220.0, south.TotalVolume, 1e-9)

	// 重建是全量替换而不是追加
	count, err = service.RebuildCombinationsSnapshot()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestListCombinationsFilters(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	factory.CreateYearlySeries(map[int]float64{2024: 100, 2025: 110},
		testutil.WithDimensions("南区", "SP", "酸奶"))
	factory.CreateYearlySeries(map[int]float64{2026: 50},
		testutil.WithDimensions("北区", "RJ", "奶酪"), testutil.WithProductCode("P002"))

	service := NewService(tdb.DB)
	_, err := service.RebuildCombinationsSnapshot()
	require.NoError(t, err)

	// 年份过滤：2026只有北区组合覆盖
	year := 2026
	combinations, err := service.ListCombinations(0, &year, nil)
	require.NoError(t, err)
	require.Len(t, combinations, 1)
	assert.Equal(t, "北区", combinations[0].Director)

	// 维度过滤
	combinations, err = service.ListCombinations(0, nil, Filters{"state_code": {"SP"}})
	require.NoError(t, err)
	require.Len(t, combinations, 1)
	assert.Equal(t, "SP", combinations[0].StateCode)

	// limit 生效
	combinations, err = service.ListCombinations(1, nil, nil)
	require.NoError(t, err)
	assert.Len(t, combinations, 1)
}

func TestApplyFiltersMultiValue(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	factory.CreatePlanningRecord(testutil.WithDimensions("南区", "SP", "酸奶"))
	factory.CreatePlanningRecord(testutil.WithDimensions("北区", "RJ", "奶酪"), testutil.WithProductCode("P002"))
	factory.CreatePlanningRecord(testutil.WithDimensions("西区", "MG", "黄油"), testutil.WithProductCode("P003"))

	var count int64
	err := ApplyFilters(tdb.DB.Model(&models.PlanningRecord{}), Filters{
		"state_code": {"SP", "RJ"},
	}).Count(&count).Error
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// 空值被忽略
	err = ApplyFilters(tdb.DB.Model(&models.PlanningRecord{}), Filters{
		"state_code": {""},
	}).Count(&count).Error
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
