/*
 * @module api/controllers/analytics_controller
 * @description 分析视图API控制器，提供年度汇总、类型产品基线、动态聚合、
 *              情景预处理和组合快照查询
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/analytics_design.md
 * @stateFlow HTTP请求处理流程
 * @rules 统一的错误处理和响应格式，分组字段必须来自允许列表
 * @dependencies planning-service/service, github.com/go-chi/render
 * @refs service/analytics/analytics_service.go, service/preprocess/preprocess_service.go
 */

package controllers

import (
	"errors"
	"net/http"

	"planning-service/service"
	"planning-service/service/analytics"
	"planning-service/service/meta"
	"planning-service/service/preprocess"

	"github.com/go-chi/render"
)

// AnalyticsController 分析视图控制器
type AnalyticsController struct {
	analytics  *analytics.Service
	preprocess *preprocess.Service
}

// NewAnalyticsController 创建分析视图控制器实例
func NewAnalyticsController() *AnalyticsController {
	return &AnalyticsController{
		analytics:  service.GlobalAnalyticsService,
		preprocess: service.GlobalPreprocessService,
	}
}

// GetSummary 年度汇总与CAGR基线
// @Summary 年度汇总与CAGR基线
// @Description 返回逐年销量/收入汇总和基于历史CAGR外推的基线序列
// @Tags 分析视图
// @Produce json
// @Success 200 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /analytics/summary [get]
func (c *AnalyticsController) GetSummary(w http.ResponseWriter, r *http.Request) {
	yearly, totalRows, err := c.analytics.GetYearlyTotals()
	if err != nil {
		render.JSON(w, r, InternalErrorResponse(err.Error(), nil))
		return
	}
	baseline := analytics.ComputeBaseline(yearly)

	render.JSON(w, r, SuccessResponse("查询成功", map[string]interface{}{
		"total_rows": totalRows,
		"yearly":     yearly,
		"baseline":   baseline,
	}))
}

// GetTypeProduct 类型产品基线
// @Summary 类型产品基线
// @Description 按产品类型分组返回历史序列和CAGR基线
// @Tags 分析视图
// @Produce json
// @Success 200 {object} APIResponse{data=[]analytics.TypeProductBaseline}
// @Failure 500 {object} APIResponse
// @Router /analytics/type-product [get]
func (c *AnalyticsController) GetTypeProduct(w http.ResponseWriter, r *http.Request) {
	result, err := c.analytics.GetTypeProductBaseline()
	if err != nil {
		render.JSON(w, r, InternalErrorResponse(err.Error(), nil))
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", result))
}

// GetAggregate 动态分组聚合
// @Summary 动态分组聚合
// @Description 按group_by指定的维度分组聚合指定指标
// @Tags 分析视图
// @Produce json
// @Param group_by query string true "分组字段，逗号分隔"
// @Param metric query string false "聚合指标 volume|revenue，默认volume"
// @Success 200 {object} APIResponse{data=analytics.AggregateResult}
// @Failure 400 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /analytics/aggregate [get]
func (c *AnalyticsController) GetAggregate(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = meta.MetricVolume
	}

	result, err := c.analytics.GenerateAggregate(parseGroupBy(r), metric)
	if err != nil {
		var groupingErr *analytics.InvalidGroupingError
		if errors.As(err, &groupingErr) {
			render.JSON(w, r, BadRequestResponse(groupingErr.Error(), map[string]interface{}{"fields": groupingErr.Fields}))
			return
		}
		if errors.Is(err, analytics.ErrInvalidMetric) {
			render.JSON(w, r, BadRequestResponse(err.Error(), nil))
			return
		}
		render.JSON(w, r, InternalErrorResponse(err.Error(), nil))
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", result))
}

// GetPreprocess 情景预处理
// @Summary 情景预处理
// @Description 按过滤条件返回基准/乐观/悲观三种情景的年度序列
// @Tags 分析视图
// @Produce json
// @Param director query string false "总监过滤"
// @Param state_code query string false "州代码过滤"
// @Param product_type query string false "产品类型过滤"
// @Success 200 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /analytics/preprocess [get]
func (c *AnalyticsController) GetPreprocess(w http.ResponseWriter, r *http.Request) {
	totalRows, scenarios, err := c.preprocess.GeneratePayload(parseFilters(r))
	if err != nil {
		render.JSON(w, r, InternalErrorResponse(err.Error(), nil))
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", map[string]interface{}{
		"total_rows": totalRows,
		"scenarios":  scenarios,
	}))
}

// GetCombinations 组合快照查询
// @Summary 组合快照查询
// @Description 查询维度组合快照，可按年份和维度过滤
// @Tags 分析视图
// @Produce json
// @Param year query int false "年份（组合须覆盖该年份）"
// @Param limit query int false "返回条数上限，默认200"
// @Success 200 {object} APIResponse{data=[]models.PlanningCombination}
// @Failure 500 {object} APIResponse
// @Router /analytics/combinations [get]
func (c *AnalyticsController) GetCombinations(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 200)
	var year *int
	if value := parseIntParam(r, "year", 0); value > 0 {
		year = &value
	}

	combinations, err := c.preprocess.ListCombinations(limit, year, parseFilters(r))
	if err != nil {
		render.JSON(w, r, InternalErrorResponse(err.Error(), nil))
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", combinations))
}

// RebuildCombinations 重建组合快照
// @Summary 重建组合快照
// @Description 从当前数据行重新生成维度组合快照
// @Tags 分析视图
// @Produce json
// @Success 200 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /analytics/combinations/rebuild [post]
func (c *AnalyticsController) RebuildCombinations(w http.ResponseWriter, r *http.Request) {
	count, err := c.preprocess.RebuildCombinationsSnapshot()
	if err != nil {
		render.JSON(w, r, InternalErrorResponse(err.Error(), nil))
		return
	}
	render.JSON(w, r, SuccessResponse("重建完成", map[string]interface{}{"combinations": count}))
}
