/*
 * @module service/dbstatus/status_service
 * @description 数据库连接状态服务，对初始化时登记的候选数据源逐一探活，
 *              返回在线状态与延迟，供运维页面展示当前生效的数据源
 * @architecture 分层架构 - 基础设施层
 * @documentReference ai_docs/db_status_design.md
 * @stateFlow 无状态，每次调用实时探测
 * @rules 探测使用独立连接并在探测结束后关闭，不复用业务连接池；DSN不出现在响应中
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres, gorm.io/driver/sqlite
 * @refs service/init.go, api/controllers/status_controller.go
 */

package dbstatus

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 数据库方言
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Candidate 候选数据源
type Candidate struct {
	Name    string
	Dialect string
	DSN     string
	Active  bool
}

// Status 单个数据源的探测结果
type Status struct {
	Name      string  `json:"name"`
	Dialect   string  `json:"dialect"`
	Online    bool    `json:"online"`
	IsActive  bool    `json:"is_active"`
	LatencyMs float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

// Service 数据库状态服务
type Service struct {
	candidates []Candidate
}

// NewService 创建状态服务，candidates 为初始化阶段登记的候选数据源
func NewService(candidates []Candidate) *Service {
	return &Service{candidates: candidates}
}

// CheckAll 对全部候选数据源探活
func (s *Service) CheckAll() []Status {
	results := make([]Status, 0, len(s.candidates))
	for _, candidate := range s.candidates {
		results = append(results, ping(candidate))
	}
	return results
}

// ping 建立独立连接执行 SELECT 1，测量往返延迟
func ping(candidate Candidate) Status {
	status := Status{Name: candidate.Name, Dialect: candidate.Dialect, IsActive: candidate.Active}

	var dialector gorm.Dialector
	switch candidate.Dialect {
	case DialectPostgres:
		dialector = postgres.Open(candidate.DSN)
	case DialectSQLite:
		dialector = sqlite.Open(candidate.DSN)
	default:
		status.Error = fmt.Sprintf("未知的数据库方言: %s", candidate.Dialect)
		return status
	}

	started := time.Now()
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		status.Error = err.Error()
		return status
	}
	sqlDB, err := db.DB()
	if err != nil {
		status.Error = err.Error()
		return status
	}
	defer sqlDB.Close()

	var one int
	if err := db.Raw("SELECT 1").Scan(&one).Error; err != nil {
		status.Error = err.Error()
		return status
	}

	status.Online = true
	status.LatencyMs = float64(time.Since(started).Microseconds()) / 1000
	return status
}
