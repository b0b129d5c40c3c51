/*
 * @module service/levelscore/level_score_service
 * @description 层级评分服务，对候选维度层级迭代计算按销量加权的变异系数和组合数，
 *              任务被拆分为可恢复的单步计算，游标持久化后每次调用只推进一个层级
 * @architecture 分层架构 - 业务服务层（显式状态机）
 * @documentReference ai_docs/level_score_design.md
 * @stateFlow pending -> running -> completed；current_index 是唯一进度游标
 * @rules 全局最多一个活跃任务；归一化分数只在全部层级处理完成后一次性写入；
 *        单步更新与评分行写入在同一事务内提交
 * @dependencies gorm.io/gorm, github.com/go-redis/redis/v8（经由distributed_lock）
 * @refs service/models/level_score.go, service/meta/planning.go
 */

package levelscore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"planning-service/service/distributed_lock"
	"planning-service/service/event"
	"planning-service/service/meta"
	"planning-service/service/models"

	"gorm.io/gorm"
)

// 评分任务错误
var (
	ErrRunNotFound      = errors.New("评分任务不存在")
	ErrRunAlreadyActive = errors.New("已存在进行中的评分任务")
	ErrStepConflict     = errors.New("评分任务正被并发推进")
)

// runClaimKey 活跃任务的分布式锁键
const runClaimKey = "active_run"

// runClaimTTL 锁的保底过期时间，防止进程中途退出后永久占用
const runClaimTTL = 2 * time.Hour

// LevelInfo 候选层级信息
type LevelInfo struct {
	LevelID      string   `json:"level_id"`
	Dimensions   []string `json:"dimensions"`
	Combinations int      `json:"combinations"`
}

// Service 层级评分服务
type Service struct {
	db        *gorm.DB
	lock      distributed_lock.DistributedLock
	publisher *event.Publisher
}

// NewService 创建层级评分服务实例，lock 为 nil 时退化为数据库状态检查，publisher 允许为nil
func NewService(db *gorm.DB, lock distributed_lock.DistributedLock, publisher *event.Publisher) *Service {
	return &Service{db: db, lock: lock, publisher: publisher}
}

func levelID(dimensions []string) string {
	return strings.Join(dimensions, "_")
}

// validateDimensions 评分维度必须来自允许列表（同时也是SQL注入防护）
func validateDimensions(levels [][]string) error {
	for _, dims := range levels {
		if len(dims) == 0 {
			return fmt.Errorf("候选层级的维度列表不能为空")
		}
		for _, dim := range dims {
			if _, ok := meta.AllowedGroupFields[dim]; !ok {
				return fmt.Errorf("无效的评分维度: %s", dim)
			}
		}
	}
	return nil
}

// countCombinations 统计维度子集的去重组合数
func (s *Service) countCombinations(dimensions []string) (int, error) {
	cols := strings.Join(dimensions, ", ")
	var total int64
	err := s.db.Raw(fmt.Sprintf(
		"SELECT COUNT(*) FROM (SELECT DISTINCT %s FROM planning_records) AS t", cols,
	)).Scan(&total).Error
	return int(total), err
}

// levelStats 单个维度组合的年度统计量
type levelStats struct {
	Periods   int
	SumVolume float64
	SumSq     float64
}

// computeLevelMetrics 计算当前层级按销量加权的平均变异系数和组合数。
// 先按（维度,年份）汇总销量，再对每个维度组合求年度序列的均值/方差；
// 年度观测少于2个或总销量为0的组合不参与加权。
func (s *Service) computeLevelMetrics(dimensions []string) (float64, int, error) {
	cols := strings.Join(dimensions, ", ")
	query := fmt.Sprintf(`
		SELECT COUNT(*) AS periods,
		       COALESCE(SUM(volume), 0) AS sum_volume,
		       COALESCE(SUM(volume * volume), 0) AS sum_sq
		FROM (
			SELECT %s, year, SUM(volume_kg) AS volume
			FROM planning_records
			GROUP BY %s, year
		) AS t
		GROUP BY %s`, cols, cols, cols)

	var stats []levelStats
	if err := s.db.Raw(query).Scan(&stats).Error; err != nil {
		return 0, 0, err
	}
	if len(stats) == 0 {
		return 0, 0, nil
	}

	weightedCovSum := 0.0
	totalVolume := 0.0
	for _, row := range stats {
		periods := float64(row.Periods)
		if periods <= 1 || row.SumVolume <= 0 {
			continue
		}
		mean := row.SumVolume / periods
		variance := math.Max(row.SumSq/periods-mean*mean, 0)
		stdDev := math.Sqrt(variance)
		cov := 0.0
		if mean > 0 {
			cov = stdDev / mean
		}
		weightedCovSum += cov * row.SumVolume
		totalVolume += row.SumVolume
	}

	covLevel := 0.0
	if totalVolume > 0 {
		covLevel = weightedCovSum / totalVolume
	}
	return covLevel, len(stats), nil
}

func serializeLevels(levels []LevelInfo) (string, error) {
	payload, err := json.Marshal(levels)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func deserializeLevels(payload string) ([]LevelInfo, error) {
	var levels []LevelInfo
	if err := json.Unmarshal([]byte(payload), &levels); err != nil {
		return nil, fmt.Errorf("层级列表反序列化失败: %w", err)
	}
	return levels, nil
}

// GetLevelsInfo 解析任务的候选层级列表
func GetLevelsInfo(run *models.LevelScoreRun) ([]LevelInfo, error) {
	return deserializeLevels(run.LevelsPayload)
}

// claimActiveRun 抢占全局活跃任务资格。配置了Redis时使用SET NX原子抢占，
// 否则退化为状态检查（并发启动存在检查-创建竞态，由锁关闭）
func (s *Service) claimActiveRun(ctx context.Context) error {
	if s.lock != nil {
		ok, err := s.lock.TryLock(ctx, runClaimKey, runClaimTTL)
		if err != nil {
			return err
		}
		if !ok {
			return ErrRunAlreadyActive
		}
	}

	active, err := s.GetActiveRun()
	if err != nil {
		return err
	}
	if active != nil {
		if s.lock != nil {
			_ = s.lock.Unlock(ctx, runClaimKey)
		}
		return ErrRunAlreadyActive
	}
	return nil
}

// releaseActiveRun 释放活跃任务资格
func (s *Service) releaseActiveRun(ctx context.Context) {
	if s.lock != nil {
		_ = s.lock.Unlock(ctx, runClaimKey)
	}
}

// StartRun 创建新的评分任务：预统计每个候选层级的组合数并持久化为pending。
// levels 为空时使用默认候选层级
func (s *Service) StartRun(ctx context.Context, levels [][]string) (*models.LevelScoreRun, error) {
	targetLevels := levels
	if len(targetLevels) == 0 {
		targetLevels = meta.DefaultScoreLevels
	}
	if err := validateDimensions(targetLevels); err != nil {
		return nil, err
	}

	if err := s.claimActiveRun(ctx); err != nil {
		return nil, err
	}

	levelInfos := make([]LevelInfo, 0, len(targetLevels))
	totalCombos := 0
	for _, dims := range targetLevels {
		combos, err := s.countCombinations(dims)
		if err != nil {
			s.releaseActiveRun(ctx)
			return nil, err
		}
		totalCombos += combos
		levelInfos = append(levelInfos, LevelInfo{LevelID: levelID(dims), Dimensions: dims, Combinations: combos})
	}

	payload, err := serializeLevels(levelInfos)
	if err != nil {
		s.releaseActiveRun(ctx)
		return nil, err
	}

	run := &models.LevelScoreRun{
		Status:            models.RunStatusPending,
		LevelsPayload:     payload,
		TotalLevels:       len(levelInfos),
		TotalCombinations: totalCombos,
		StartedAt:         time.Now().UTC(),
	}
	if err := s.db.Create(run).Error; err != nil {
		s.releaseActiveRun(ctx)
		return nil, err
	}
	return run, nil
}

// GetRun 按ID查询任务
func (s *Service) GetRun(runID uint) (*models.LevelScoreRun, error) {
	var run models.LevelScoreRun
	if err := s.db.First(&run, runID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return &run, nil
}

// ListRuns 按ID倒序列出最近的任务
func (s *Service) ListRuns(limit int) ([]models.LevelScoreRun, error) {
	if limit <= 0 {
		limit = 5
	}
	var runs []models.LevelScoreRun
	err := s.db.Order("id DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// GetRunResults 查询任务的评分结果，按最终分数倒序（未归一化的排在最后）
func (s *Service) GetRunResults(runID uint) ([]models.LevelScore, error) {
	var scores []models.LevelScore
	err := s.db.Where("run_id = ?", runID).
		Order("score_final DESC NULLS LAST").
		Find(&scores).Error
	return scores, err
}

// GetActiveRun 查询当前活跃（pending/running）的任务，没有时返回nil
func (s *Service) GetActiveRun() (*models.LevelScoreRun, error) {
	var run models.LevelScoreRun
	err := s.db.Where("status IN ?", []string{models.RunStatusPending, models.RunStatusRunning}).
		Order("id DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ProcessNextStep 推进一步：处理游标指向的层级并在同一事务内提交计数器更新和评分行。
// 已完成的任务原样返回（幂等）；处理完最后一个层级时触发归一化并标记完成
func (s *Service) ProcessNextStep(ctx context.Context, runID uint) (*models.LevelScoreRun, error) {
	run, err := s.GetRun(runID)
	if err != nil {
		return nil, err
	}
	return s.advance(ctx, run)
}

// advance 基于已读取的任务快照推进一步。提交前按游标做乐观校验：
// HTTP步进与调度器自动推进并发处理同一层级时只有一方成功，另一方返回 ErrStepConflict
func (s *Service) advance(ctx context.Context, run *models.LevelScoreRun) (*models.LevelScoreRun, error) {
	if run.Status == models.RunStatusCompleted {
		return run, nil
	}

	levelInfos, err := deserializeLevels(run.LevelsPayload)
	if err != nil {
		return nil, err
	}

	// 游标越界：收尾并标记完成（崩溃恢复路径）
	if run.CurrentIndex >= len(levelInfos) {
		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := s.finalizeRun(tx, run.ID); err != nil {
				return err
			}
			now := time.Now().UTC()
			run.Status = models.RunStatusCompleted
			run.FinishedAt = &now
			return tx.Save(run).Error
		})
		if err != nil {
			return nil, err
		}
		s.releaseActiveRun(ctx)
		s.publishFinished(ctx, run)
		return run, nil
	}

	currentInfo := levelInfos[run.CurrentIndex]
	stepStart := time.Now()
	covLevel, combosMeasured, err := s.computeLevelMetrics(currentInfo.Dimensions)
	if err != nil {
		return nil, err
	}
	combosProcessed := combosMeasured
	if combosProcessed == 0 {
		combosProcessed = currentInfo.Combinations
	}
	durationMs := float64(time.Since(stepStart).Microseconds()) / 1000

	isLastLevel := run.CurrentIndex+1 >= len(levelInfos)
	cursorBefore := run.CurrentIndex

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// 乐观游标校验：快照读取后游标已被其他调用方推进则放弃本次提交
		guard := tx.Model(&models.LevelScoreRun{}).
			Where("id = ? AND current_index = ?", run.ID, cursorBefore).
			Update("current_index", cursorBefore+1)
		if guard.Error != nil {
			return guard.Error
		}
		if guard.RowsAffected == 0 {
			return ErrStepConflict
		}

		dimensionsJSON, err := json.Marshal(currentInfo.Dimensions)
		if err != nil {
			return err
		}
		score := &models.LevelScore{
			RunID:          run.ID,
			LevelID:        currentInfo.LevelID,
			DimensionsJSON: string(dimensionsJSON),
			Cov:            covLevel,
			NCombinations:  combosProcessed,
		}
		if err := tx.Create(score).Error; err != nil {
			return err
		}

		run.Status = models.RunStatusRunning
		run.ProcessedLevels++
		run.CurrentIndex++
		run.ProcessedCombinations += combosProcessed

		// 增量均值
		if run.AvgDurationMs != nil {
			avg := (*run.AvgDurationMs*float64(run.ProcessedLevels-1) + durationMs) / float64(run.ProcessedLevels)
			run.AvgDurationMs = &avg
		} else {
			run.AvgDurationMs = &durationMs
		}

		if run.AvgDurationMs != nil && run.TotalCombinations > 0 {
			remaining := run.TotalCombinations - run.ProcessedCombinations
			if remaining < 0 {
				remaining = 0
			}
			perCombo := (*run.AvgDurationMs / 1000) / math.Max(float64(combosProcessed), 1)
			estimated := math.Round(float64(remaining)*perCombo*100) / 100
			run.EstimatedSeconds = &estimated
		}

		run.LastMessage = fmt.Sprintf("%s: 已处理 %d 个组合", currentInfo.LevelID, combosProcessed)

		if isLastLevel {
			if err := s.finalizeRun(tx, run.ID); err != nil {
				return err
			}
			now := time.Now().UTC()
			run.Status = models.RunStatusCompleted
			run.FinishedAt = &now
		}

		return tx.Save(run).Error
	})
	if err != nil {
		return nil, err
	}

	if run.Status == models.RunStatusCompleted {
		s.releaseActiveRun(ctx)
		s.publishFinished(ctx, run)
	}
	return run, nil
}

func (s *Service) publishFinished(ctx context.Context, run *models.LevelScoreRun) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event.TypeLevelScoreFinished, map[string]interface{}{
		"run_id":           run.ID,
		"total_levels":     run.TotalLevels,
		"processed_levels": run.ProcessedLevels,
	}); err != nil {
		slog.Warn("评分完成事件发布失败", "run_id", run.ID, "error", err)
	}
}

// finalizeRun 归一化收尾：对本任务全部评分行做min-max归一化，
// score_coverage = 1 - norm(cov)，score_complexity = 1 - norm(组合数)，
// score_final 为两者均值（四舍五入到4位小数）。min==max时归一化值定义为0.5
func (s *Service) finalizeRun(tx *gorm.DB, runID uint) error {
	var scores []models.LevelScore
	if err := tx.Where("run_id = ?", runID).Find(&scores).Error; err != nil {
		return err
	}
	if len(scores) == 0 {
		return nil
	}

	minCov, maxCov := scores[0].Cov, scores[0].Cov
	minCombo, maxCombo := float64(scores[0].NCombinations), float64(scores[0].NCombinations)
	for _, row := range scores[1:] {
		minCov = math.Min(minCov, row.Cov)
		maxCov = math.Max(maxCov, row.Cov)
		minCombo = math.Min(minCombo, float64(row.NCombinations))
		maxCombo = math.Max(maxCombo, float64(row.NCombinations))
	}

	for i := range scores {
		normCov := normalize(scores[i].Cov, minCov, maxCov)
		normCombo := normalize(float64(scores[i].NCombinations), minCombo, maxCombo)
		coverage := round4(1 - normCov)
		complexity := round4(1 - normCombo)
		final := round4((coverage + complexity) / 2)
		scores[i].ScoreCoverage = &coverage
		scores[i].ScoreComplexity = &complexity
		scores[i].ScoreFinal = &final
		if err := tx.Save(&scores[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// normalize min-max归一化，无差异时返回0.5避免除零和偏袒
func normalize(value, minValue, maxValue float64) float64 {
	if maxValue == minValue {
		return 0.5
	}
	return (value - minValue) / (maxValue - minValue)
}

func round4(value float64) float64 {
	return math.Round(value*10000) / 10000
}
