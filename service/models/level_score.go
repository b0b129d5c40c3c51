/*
 * @module service/models/level_score
 * @description 层级评分任务模型定义，包括可恢复的评分任务和单层级评分结果
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference ai_docs/model.md
 * @stateFlow pending -> running -> completed，每次步进处理一个层级
 * @rules 全局同一时刻最多一个 pending/running 任务；归一化分数仅在全部层级处理完后写入
 * @dependencies gorm.io/gorm
 * @refs service/levelscore/level_score_service.go
 */

package models

import "time"

// 评分任务状态常量
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
)

// LevelScoreRun 层级评分任务，current_index 是唯一的进度游标
type LevelScoreRun struct {
	ID                    uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	Status                string     `json:"status" gorm:"size:32;default:'pending'"`
	LevelsPayload         string     `json:"levels_payload" gorm:"type:text;not null"` // 候选层级列表的JSON序列化
	TotalLevels           int        `json:"total_levels" gorm:"default:0"`
	ProcessedLevels       int        `json:"processed_levels" gorm:"default:0"`
	TotalCombinations     int        `json:"total_combinations" gorm:"default:0"`
	ProcessedCombinations int        `json:"processed_combinations" gorm:"default:0"`
	CurrentIndex          int        `json:"current_index" gorm:"default:0"`
	AvgDurationMs         *float64   `json:"avg_duration_ms"`    // 单步平均耗时（增量均值）
	EstimatedSeconds      *float64   `json:"estimated_seconds"`  // 预计剩余秒数
	StartedAt             time.Time  `json:"started_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	FinishedAt            *time.Time `json:"finished_at"`
	LastMessage           string     `json:"last_message" gorm:"size:255"`
}

// LevelScore 单个层级的评分结果，归一化分数在任务完成前为空
type LevelScore struct {
	ID              uint     `json:"id" gorm:"primaryKey;autoIncrement"`
	RunID           uint     `json:"run_id" gorm:"not null;index"`
	LevelID         string   `json:"level_id" gorm:"index;size:255"`
	DimensionsJSON  string   `json:"dimensions_json" gorm:"type:text;not null"`
	Cov             float64  `json:"cov"`            // 按销量加权的变异系数
	NCombinations   int      `json:"n_combinations"` // 该层级的维度组合数
	ScoreCoverage   *float64 `json:"score_coverage"`
	ScoreComplexity *float64 `json:"score_complexity"`
	ScoreFinal      *float64 `json:"score_final"`
}
