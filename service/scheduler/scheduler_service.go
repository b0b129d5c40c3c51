/**
 * @module SchedulerService
 * @description 定时任务调度服务，承载组合快照的夜间重建定时任务，以及可选的评分任务自动推进轮询
 * @architecture 基于Go协程和定时器的调度器模式
 * @documentReference ../ai_docs/scheduler_design.md
 * @stateFlow Start启动cron与轮询协程，Stop优雅停止
 * @rules cron表达式带秒字段；自动推进默认关闭，由LEVEL_SCORE_AUTO_STEP开启；单次推进失败只记录日志，下个周期重试
 * @dependencies cron库, preprocess, levelscore
 * @refs ../preprocess/preprocess_service.go, ../levelscore/level_score_service.go
 */

package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"planning-service/service/event"
	"planning-service/service/levelscore"
	"planning-service/service/preprocess"
)

// defaultSnapshotCron 组合快照重建默认调度：每天凌晨3点
const defaultSnapshotCron = "0 0 3 * * *"

// SchedulerService 定时任务调度服务
type SchedulerService struct {
	cron       *cron.Cron
	preprocess *preprocess.Service
	levelScore *levelscore.Service
	publisher  *event.Publisher
	cancel     context.CancelFunc
}

// NewSchedulerService 创建调度服务实例，publisher 允许为nil
func NewSchedulerService(pre *preprocess.Service, ls *levelscore.Service, publisher *event.Publisher) *SchedulerService {
	return &SchedulerService{
		cron:       cron.New(cron.WithSeconds()),
		preprocess: pre,
		levelScore: ls,
		publisher:  publisher,
	}
}

// Start 注册定时任务并启动调度器
func (s *SchedulerService) Start() error {
	spec := os.Getenv("SNAPSHOT_REBUILD_CRON")
	if spec == "" {
		spec = defaultSnapshotCron
	}
	if _, err := s.cron.AddFunc(spec, s.rebuildSnapshot); err != nil {
		return err
	}
	s.cron.Start()
	slog.Info("定时任务调度器已启动", "snapshot_cron", spec)

	if seconds, convErr := strconv.Atoi(os.Getenv("LEVEL_SCORE_AUTO_STEP")); convErr == nil && seconds > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		go s.autoStepLoop(ctx, time.Duration(seconds)*time.Second)
		slog.Info("评分任务自动推进已开启", "interval_seconds", seconds)
	}
	return nil
}

// Stop 停止调度器并等待在途任务结束
func (s *SchedulerService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("定时任务调度器已停止")
}

func (s *SchedulerService) rebuildSnapshot() {
	count, err := s.preprocess.RebuildCombinationsSnapshot()
	if err != nil {
		slog.Error("定时重建组合快照失败", "error", err)
		return
	}
	slog.Info("定时重建组合快照完成", "combinations", count)
	if s.publisher != nil {
		if err := s.publisher.Publish(context.Background(), event.TypeSnapshotRebuilt, map[string]interface{}{
			"combinations": count,
			"trigger":      "cron",
		}); err != nil {
			slog.Warn("快照重建事件发布失败", "error", err)
		}
	}
}

// autoStepLoop 周期性推进当前活跃的评分任务，没有活跃任务时空转
func (s *SchedulerService) autoStepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run, err := s.levelScore.GetActiveRun()
			if err != nil {
				slog.Error("查询活跃评分任务失败", "error", err)
				continue
			}
			if run == nil {
				continue
			}
			if _, err := s.levelScore.ProcessNextStep(ctx, run.ID); err != nil {
				if errors.Is(err, levelscore.ErrStepConflict) {
					// 与HTTP步进撞上同一层级，下个周期重试
					continue
				}
				slog.Error("评分任务自动推进失败", "run_id", run.ID, "error", err)
			}
		}
	}
}
