/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、迁移和各业务服务的装配
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/backend_requirements.md
 * @stateFlow 应用启动时执行初始化流程：数据库 -> 迁移 -> 业务服务 -> 调度器
 * @rules 优先连接PostgreSQL，连接失败时回退到本地SQLite保证开发环境可用；
 *        确保所有依赖服务正常启动后才提供API服务
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres, gorm.io/driver/sqlite
 * @refs ai_docs/model.md
 */

package service

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"planning-service/service/analytics"
	"planning-service/service/database"
	"planning-service/service/dbstatus"
	"planning-service/service/distributed_lock"
	"planning-service/service/event"
	"planning-service/service/forecast"
	"planning-service/service/levelscore"
	"planning-service/service/notification"
	"planning-service/service/preprocess"
	"planning-service/service/scheduler"
	"planning-service/service/upload"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	DB                       *gorm.DB
	GlobalAnalyticsService   *analytics.Service
	GlobalPreprocessService  *preprocess.Service
	GlobalForecastEngine     *forecast.Engine
	GlobalLevelScoreService  *levelscore.Service
	GlobalUploadService      *upload.Service
	GlobalNotificationCenter *notification.Center
	GlobalEventPublisher     *event.Publisher
	GlobalStatusService      *dbstatus.Service
	GlobalSchedulerService   *scheduler.SchedulerService
)

func init() {
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化数据库连接，PostgreSQL不可用时回退到SQLite
func initDatabase() {
	var candidates []dbstatus.Candidate

	var pgDSN string
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		pgDSN = databaseURL
	} else if os.Getenv("DB_HOST") != "" {
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "postgres")
		dbname := getEnvWithDefault("DB_NAME", "planning")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")

		pgDSN = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	if pgDSN != "" {
		candidates = append(candidates, dbstatus.Candidate{
			Name: "primary", Dialect: dbstatus.DialectPostgres, DSN: pgDSN,
		})
		db, err := gorm.Open(postgres.Open(pgDSN), &gorm.Config{})
		if err == nil {
			DB = db
			candidates[len(candidates)-1].Active = true
			GlobalStatusService = dbstatus.NewService(candidates)
			log.Println("数据库连接成功 (postgres)")
			return
		}
		log.Printf("PostgreSQL连接失败，回退到SQLite: %v", err)
	}

	sqlitePath := getEnvWithDefault("SQLITE_PATH", "./data/planning.db")
	if err := os.MkdirAll(filepath.Dir(sqlitePath), 0o755); err != nil {
		log.Fatalf("创建SQLite数据目录失败: %v", err)
	}
	candidates = append(candidates, dbstatus.Candidate{
		Name: "fallback", Dialect: dbstatus.DialectSQLite, DSN: sqlitePath, Active: true,
	})

	var err error
	DB, err = gorm.Open(sqlite.Open(sqlitePath), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	GlobalStatusService = dbstatus.NewService(candidates)
	log.Printf("数据库连接成功 (sqlite: %s)", sqlitePath)
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	log.Println("开始运行数据库迁移...")

	if err := database.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	log.Println("数据库表结构迁移完成")
}

// initServices 初始化服务
func initServices() {
	GlobalNotificationCenter = notification.NewCenter()
	GlobalEventPublisher = event.NewPublisherFromEnv()

	GlobalAnalyticsService = analytics.NewService(DB)
	GlobalPreprocessService = preprocess.NewService(DB)
	GlobalForecastEngine = forecast.NewEngine()

	// 评分任务的分布式锁依赖Redis，未配置时退化为数据库状态检查
	lock, err := distributed_lock.NewRedisLockFromEnv()
	if err != nil {
		log.Printf("Redis分布式锁初始化失败，评分任务退化为数据库状态检查: %v", err)
	}
	var runLock distributed_lock.DistributedLock
	if lock != nil {
		runLock = lock
	}
	GlobalLevelScoreService = levelscore.NewService(DB, runLock, GlobalEventPublisher)

	GlobalUploadService = upload.NewService(DB, GlobalPreprocessService, GlobalNotificationCenter, GlobalEventPublisher)

	GlobalSchedulerService = scheduler.NewSchedulerService(GlobalPreprocessService, GlobalLevelScoreService, GlobalEventPublisher)
	if err := GlobalSchedulerService.Start(); err != nil {
		log.Printf("启动调度器服务失败: %v", err)
	}

	log.Println("服务初始化完成")
}
