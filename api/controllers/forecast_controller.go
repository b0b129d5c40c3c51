/*
 * @module api/controllers/forecast_controller
 * @description 预测API控制器，提供分组基线预测视图和产品级预测生成
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/forecast_design.md
 * @stateFlow HTTP请求处理流程
 * @rules 统一的错误处理和响应格式，预测方法和价格策略校验在引擎内完成
 * @dependencies planning-service/service, github.com/go-chi/render
 * @refs service/forecast/engine.go, service/analytics/analytics_service.go
 */

package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"planning-service/service"
	"planning-service/service/analytics"
	"planning-service/service/forecast"

	"github.com/go-chi/render"
)

// ForecastController 预测控制器
type ForecastController struct {
	engine    *forecast.Engine
	analytics *analytics.Service
}

// NewForecastController 创建预测控制器实例
func NewForecastController() *ForecastController {
	return &ForecastController{
		engine:    service.GlobalForecastEngine,
		analytics: service.GlobalAnalyticsService,
	}
}

// GetGroupForecast 分组基线预测视图
// @Summary 分组基线预测视图
// @Description 按group_by维度分组返回历史序列和CAGR基线外推
// @Tags 预测
// @Produce json
// @Param group_by query string true "分组字段，逗号分隔"
// @Success 200 {object} APIResponse{data=analytics.GroupForecastResult}
// @Failure 400 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /analytics/forecast [get]
func (c *ForecastController) GetGroupForecast(w http.ResponseWriter, r *http.Request) {
	result, err := c.analytics.GenerateGroupForecast(parseGroupBy(r))
	if err != nil {
		var groupingErr *analytics.InvalidGroupingError
		if errors.As(err, &groupingErr) {
			render.JSON(w, r, BadRequestResponse(groupingErr.Error(), map[string]interface{}{"fields": groupingErr.Fields}))
			return
		}
		render.JSON(w, r, InternalErrorResponse(err.Error(), nil))
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", result))
}

// GenerateForecast 生成产品级预测
// @Summary 生成产品级预测
// @Description 对请求数据集按七级层级分组，生成2027-2030年的销量/收入预测
// @Tags 预测
// @Accept json
// @Produce json
// @Param request body forecast.Request true "预测请求"
// @Success 200 {object} APIResponse{data=forecast.Response}
// @Failure 400 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /forecast/generate [post]
func (c *ForecastController) GenerateForecast(w http.ResponseWriter, r *http.Request) {
	var req forecast.Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, BadRequestResponse(fmt.Sprintf("请求参数格式错误:%s", err.Error()), nil))
		return
	}

	result, err := c.engine.Generate(&req)
	if err != nil {
		var missingErr *forecast.MissingColumnsError
		switch {
		case errors.As(err, &missingErr):
			render.JSON(w, r, BadRequestResponse(missingErr.Error(), map[string]interface{}{"columns": missingErr.Columns}))
		case errors.Is(err, forecast.ErrEmptyDataset),
			errors.Is(err, forecast.ErrMissingGrowthFactors),
			errors.Is(err, forecast.ErrNoBaselineYear):
			render.JSON(w, r, BadRequestResponse(err.Error(), nil))
		default:
			render.JSON(w, r, BadRequestResponse(err.Error(), nil))
		}
		return
	}

	render.JSON(w, r, SuccessResponse("预测生成成功", result))
}
