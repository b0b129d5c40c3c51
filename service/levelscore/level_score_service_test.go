/*
 * @module service/levelscore/level_score_service_test
 * @description 层级评分服务单元测试，覆盖任务创建、单步推进、归一化收尾和并发约束
 * @architecture 测试层
 * @documentReference ai_docs/level_score_design.md
 * @stateFlow 构造测试数据库 -> 创建任务 -> 逐步推进 -> 断言评分
 * @rules 使用内存SQLite，不依赖Redis（lock为nil时退化为数据库状态检查）
 * @dependencies github.com/stretchr/testify, planning-service/testutil
 * @refs service/levelscore/level_score_service.go
 */

package levelscore

import (
	"context"
	"testing"

	"planning-service/service/models"
	"planning-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPlanningData(t *testing.T, factory *testutil.TestDataFactory) {
	t.Helper()
	// 两个总监、两个州，各自三年的销量序列
	for year, volume := range map[int]float64{2024: 100, 2025: 150, 2026: 90} {
		factory.CreatePlanningRecord(
			testutil.WithYear(year), testutil.WithVolume(volume),
			testutil.WithDimensions("南区", "SP", "酸奶"), testutil.WithProductCode("P001"))
	}
	for year, volume := range map[int]float64{2024: 200, 2025: 200, 2026: 200} {
		factory.CreatePlanningRecord(
			testutil.WithYear(year), testutil.WithVolume(volume),
			testutil.WithDimensions("北区", "RJ", "奶酪"), testutil.WithProductCode("P002"))
	}
}

func TestStartRun(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	seedPlanningData(t, testutil.NewTestDataFactory(tdb.DB))

	service := NewService(tdb.DB, nil, nil)
	run, err := service.StartRun(context.Background(), [][]string{{"director"}, {"state_code"}})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusPending, run.Status)
	assert.Equal(t, 2, run.TotalLevels)
	// 每个层级各有2个组合
	assert.Equal(t, 4, run.TotalCombinations)
	assert.Zero(t, run.ProcessedLevels)
	assert.Zero(t, run.CurrentIndex)

	levels, err := GetLevelsInfo(run)
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, "director", levels[0].LevelID)
	assert.Equal(t, 2, levels[0].Combinations)
}

func TestStartRunValidation(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	service := NewService(tdb.DB, nil, nil)

	_, err := service.StartRun(context.Background(), [][]string{{"drop table"}})
	assert.Error(t, err)

	_, err = service.StartRun(context.Background(), [][]string{{}})
	assert.Error(t, err)
}

func TestStartRunRejectsSecondActiveRun(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	seedPlanningData(t, testutil.NewTestDataFactory(tdb.DB))

	service := NewService(tdb.DB, nil, nil)
	_, err := service.StartRun(context.Background(), [][]string{{"director"}})
	require.NoError(t, err)

	_, err = service.StartRun(context.Background(), [][]string{{"state_code"}})
	assert.ErrorIs(t, err, ErrRunAlreadyActive)
}

func TestGetRunResultsOrdersUnfinalizedLast(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	seedPlanningData(t, testutil.NewTestDataFactory(tdb.DB))

	ctx := context.Background()
	service := NewService(tdb.DB, nil, nil)
	run, err := service.StartRun(ctx, [][]string{{"director"}, {"state_code"}})
	require.NoError(t, err)

	// 只推进一步：已有评分行尚未归一化（score_final 为 NULL）
	_, err = service.ProcessNextStep(ctx, run.ID)
	require.NoError(t, err)

	final := 0.8
	require.NoError(t, tdb.DB.Create(&models.LevelScore{
		RunID: run.ID, LevelID: "manual", DimensionsJSON: `["director"]`,
		ScoreFinal: &final,
	}).Error)

	scores, err := service.GetRunResults(run.ID)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	require.NotNil(t, scores[0].ScoreFinal)
	assert.Nil(t, scores[1].ScoreFinal)
}

func TestAdvanceRejectsStaleCursor(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	seedPlanningData(t, testutil.NewTestDataFactory(tdb.DB))

	ctx := context.Background()
	service := NewService(tdb.DB, nil, nil)
	run, err := service.StartRun(ctx, [][]string{{"director"}, {"state_code"}})
	require.NoError(t, err)

	// 模拟HTTP步进与自动推进读取同一游标：先读快照，另一方先提交
	stale, err := service.GetRun(run.ID)
	require.NoError(t, err)
	_, err = service.ProcessNextStep(ctx, run.ID)
	require.NoError(t, err)

	// 过期快照提交时游标校验失败，不产生重复评分行
	_, err = service.advance(ctx, stale)
	assert.ErrorIs(t, err, ErrStepConflict)

	var scores int64
	require.NoError(t, tdb.DB.Model(&models.LevelScore{}).Where("run_id = ?", run.ID).Count(&scores).Error)
	assert.Equal(t, int64(1), scores)

	current, err := service.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, current.ProcessedLevels)
	assert.Equal(t, 1, current.CurrentIndex)
}

func TestProcessNextStepToCompletion(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	seedPlanningData(t, testutil.NewTestDataFactory(tdb.DB))

	ctx := context.Background()
	service := NewService(tdb.DB, nil, nil)
	run, err := service.StartRun(ctx, [][]string{{"director"}, {"director", "state_code"}})
	require.NoError(t, err)

	// 第一步：处理director层级
	run, err = service.ProcessNextStep(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, run.Status)
	assert.Equal(t, 1, run.ProcessedLevels)
	assert.Equal(t, 1, run.CurrentIndex)
	assert.Equal(t, 2, run.ProcessedCombinations)
	require.NotNil(t, run.AvgDurationMs)
	require.NotNil(t, run.EstimatedSeconds)
	assert.GreaterOrEqual(t, *run.EstimatedSeconds, 0.0)
	assert.Contains(t, run.LastMessage, "director")

	// 第二步：处理最后一个层级并触发归一化收尾
	run, err = service.ProcessNextStep(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.ProcessedLevels)
	assert.Equal(t, 4, run.ProcessedCombinations)
	require.NotNil(t, run.FinishedAt)

	scores, err := service.GetRunResults(run.ID)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	for _, score := range scores {
		require.NotNil(t, score.ScoreCoverage)
		require.NotNil(t, score.ScoreComplexity)
		require.NotNil(t, score.ScoreFinal)
		assert.GreaterOrEqual(t, *score.ScoreFinal, 0.0)
		assert.LessOrEqual(t, *score.ScoreFinal, 1.0)
	}

	// 两个层级组合数相同（各2个），复杂度归一化退化为0.5
	for _, score := range scores {
		assert.InDelta(t, 0.5, *score.ScoreComplexity, 1e-9)
	}

	// 南区销量有波动、北区恒定：director层级的加权CoV大于0
	var directorScore *models.LevelScore
	for i := range scores {
		if scores[i].LevelID == "director" {
			directorScore = &scores[i]
		}
	}
	require.NotNil(t, directorScore)
	assert.Greater(t, directorScore.Cov, 0.0)

	// 任务完成后再次推进保持原状（幂等）
	again, err := service.ProcessNextStep(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, again.Status)
	assert.Equal(t, 2, again.ProcessedLevels)
}

func TestSingleLevelRunScoresDegenerate(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	seedPlanningData(t, testutil.NewTestDataFactory(tdb.DB))

	ctx := context.Background()
	service := NewService(tdb.DB, nil, nil)
	run, err := service.StartRun(ctx, [][]string{{"state_code"}})
	require.NoError(t, err)

	run, err = service.ProcessNextStep(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)

	scores, err := service.GetRunResults(run.ID)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	// 单层级时min==max，归一化值定义为0.5
	assert.InDelta(t, 0.5, *scores[0].ScoreCoverage, 1e-9)
	assert.InDelta(t, 0.5, *scores[0].ScoreComplexity, 1e-9)
	assert.InDelta(t, 0.5, *scores[0].ScoreFinal, 1e-9)
}

func TestGetRunNotFound(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	service := NewService(tdb.DB, nil, nil)

	_, err := service.GetRun(9999)
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = service.ProcessNextStep(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestGetActiveRun(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	seedPlanningData(t, testutil.NewTestDataFactory(tdb.DB))

	ctx := context.Background()
	service := NewService(tdb.DB, nil, nil)

	active, err := service.GetActiveRun()
	require.NoError(t, err)
	assert.Nil(t, active)

	run, err := service.StartRun(ctx, [][]string{{"director"}})
	require.NoError(t, err)

	active, err = service.GetActiveRun()
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, run.ID, active.ID)

	_, err = service.ProcessNextStep(ctx, run.ID)
	require.NoError(t, err)

	active, err = service.GetActiveRun()
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestComputeLevelMetricsSkipsDegenerateGroups(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	// 只有一个年度观测的组合不参与加权
	factory.CreatePlanningRecord(testutil.WithYear(2026), testutil.WithVolume(100),
		testutil.WithDimensions("南区", "SP", "酸奶"))

	service := NewService(tdb.DB, nil, nil)
	cov, combos, err := service.computeLevelMetrics([]string{"director"})
	require.NoError(t, err)
	assert.Equal(t, 1, combos)
	assert.Zero(t, cov)
}
