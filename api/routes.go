/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference ai_docs/backend_requirements.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs ai_docs/model.md
 */

package api

import (
	"planning-service/api/controllers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// 数据导入与数据行管理
	r.Route("/upload", func(r chi.Router) {
		uploadController := controllers.NewUploadController()

		r.Post("/", uploadController.UploadFile)

		r.Route("/records", func(r chi.Router) {
			r.Get("/", uploadController.ListRecords)
			r.Get("/meta", uploadController.GetRecordsMeta)
			r.Get("/filters", uploadController.GetFilterOptions)
			r.Delete("/", uploadController.WipeRecords)
		})
	})

	// 分析视图
	r.Route("/analytics", func(r chi.Router) {
		analyticsController := controllers.NewAnalyticsController()
		forecastController := controllers.NewForecastController()

		r.Get("/summary", analyticsController.GetSummary)
		r.Get("/type-product", analyticsController.GetTypeProduct)
		r.Get("/aggregate", analyticsController.GetAggregate)
		r.Get("/preprocess", analyticsController.GetPreprocess)
		r.Get("/forecast", forecastController.GetGroupForecast)

		// 组合快照
		r.Get("/combinations", analyticsController.GetCombinations)
		r.Post("/combinations/rebuild", analyticsController.RebuildCombinations)
	})

	// 产品级预测生成
	r.Route("/forecast", func(r chi.Router) {
		forecastController := controllers.NewForecastController()
		r.Post("/generate", forecastController.GenerateForecast)
	})

	// 层级评分任务
	r.Route("/level-scores", func(r chi.Router) {
		levelScoreController := controllers.NewLevelScoreController()

		r.Route("/runs", func(r chi.Router) {
			r.Post("/", levelScoreController.StartRun)
			r.Get("/", levelScoreController.ListRuns)
			r.Get("/active", levelScoreController.GetActiveRun)
			r.Get("/{id}", levelScoreController.GetRun)
			r.Get("/{id}/results", levelScoreController.GetRunResults)
			r.Post("/{id}/step", levelScoreController.ProcessStep)
		})
	})

	// 通知中心
	notificationController := controllers.NewNotificationController()
	r.Get("/notifications", notificationController.ListNotifications)

	// 系统状态
	statusController := controllers.NewStatusController()
	r.Get("/status/db", statusController.GetDBStatus)
}
