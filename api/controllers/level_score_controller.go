/*
 * @module api/controllers/level_score_controller
 * @description 层级评分任务API控制器，提供任务创建、单步推进、进度查询和结果查询
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/level_score_design.md
 * @stateFlow HTTP请求处理流程；任务状态机在服务层维护
 * @rules 统一的错误处理和响应格式；全局最多一个活跃任务
 * @dependencies planning-service/service, github.com/go-chi/render
 * @refs service/levelscore/level_score_service.go
 */

package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"planning-service/service"
	"planning-service/service/levelscore"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// LevelScoreController 层级评分任务控制器
type LevelScoreController struct {
	service *levelscore.Service
}

// NewLevelScoreController 创建层级评分任务控制器实例
func NewLevelScoreController() *LevelScoreController {
	return &LevelScoreController{
		service: service.GlobalLevelScoreService,
	}
}

// StartRunRequest 创建评分任务请求
type StartRunRequest struct {
	Levels [][]string `json:"levels"`
}

func parseRunID(r *http.Request) (uint, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("无效的任务ID: %q", raw)
	}
	return uint(id), nil
}

// StartRun 创建评分任务
// @Summary 创建评分任务
// @Description 创建层级评分任务并预统计组合数，levels为空时使用默认候选层级
// @Tags 层级评分
// @Accept json
// @Produce json
// @Param request body StartRunRequest false "候选层级列表"
// @Success 200 {object} APIResponse{data=models.LevelScoreRun}
// @Failure 400 {object} APIResponse
// @Failure 409 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /level-scores/runs [post]
func (c *LevelScoreController) StartRun(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest
	if r.ContentLength > 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.JSON(w, r, BadRequestResponse(fmt.Sprintf("请求参数格式错误:%s", err.Error()), nil))
			return
		}
	}

	run, err := c.service.StartRun(r.Context(), req.Levels)
	if err != nil {
		if errors.Is(err, levelscore.ErrRunAlreadyActive) {
			render.JSON(w, r, ConflictResponse(err.Error(), nil))
			return
		}
		render.JSON(w, r, BadRequestResponse(err.Error(), nil))
		return
	}
	render.JSON(w, r, SuccessResponse("任务已创建", run))
}

// ProcessStep 推进评分任务一步
// @Summary 推进评分任务一步
// @Description 处理游标指向的层级并更新进度，已完成的任务原样返回
// @Tags 层级评分
// @Produce json
// @Param id path int true "任务ID"
// @Success 200 {object} APIResponse{data=models.LevelScoreRun}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Failure 409 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /level-scores/runs/{id}/step [post]
func (c *LevelScoreController) ProcessStep(w http.ResponseWriter, r *http.Request) {
	runID, err := parseRunID(r)
	if err != nil {
		render.JSON(w, r, BadRequestResponse(err.Error(), nil))
		return
	}

	run, err := c.service.ProcessNextStep(r.Context(), runID)
	if err != nil {
		if errors.Is(err, levelscore.ErrRunNotFound) {
			render.JSON(w, r, NotFoundResponse(err.Error(), nil))
			return
		}
		if errors.Is(err, levelscore.ErrStepConflict) {
			render.JSON(w, r, ConflictResponse(err.Error(), nil))
			return
		}
		render.JSON(w, r, InternalErrorResponse(err.Error(), nil))
		return
	}
	render.JSON(w, r, SuccessResponse("推进成功", run))
}

// ListRuns 查询最近的评分任务
// @Summary 查询最近的评分任务
// @Description 按创建顺序倒序返回最近的评分任务
// @Tags 层级评分
// @Produce json
// @Param limit query int false "返回条数上限，默认5"
// @Success 200 {object} APIResponse{data=[]models.LevelScoreRun}
// @Failure 500 {object} APIResponse
// @Router /level-scores/runs [get]
func (c *LevelScoreController) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := c.service.ListRuns(parseIntParam(r, "limit", 5))
	if err != nil {
		render.JSON(w, r, InternalErrorResponse(err.Error(), nil))
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", runs))
}

// GetRun 查询评分任务详情
// @Summary 查询评分任务详情
// @Description 按ID返回评分任务的状态和进度
// @Tags 层级评分
// @Produce json
// @Param id path int true "任务ID"
// @Success 200 {object} APIResponse{data=models.LevelScoreRun}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /level-scores/runs/{id} [get]
func (c *LevelScoreController) GetRun(w http.ResponseWriter, r *http.Request) {
	runID, err := parseRunID(r)
	if err != nil {
		render.JSON(w, r, BadRequestResponse(err.Error(), nil))
		return
	}

	run, err := c.service.GetRun(runID)
	if err != nil {
		if errors.Is(err, levelscore.ErrRunNotFound) {
			render.JSON(w, r, NotFoundResponse(err.Error(), nil))
			return
		}
		render.JSON(w, r, InternalErrorResponse(err.Error(), nil))
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", run))
}

// GetRunResults 查询评分结果
// @Summary 查询评分结果
// @Description 返回任务的层级评分结果，按最终分数倒序
// @Tags 层级评分
// @Produce json
// @Param id path int true "任务ID"
// @Success 200 {object} APIResponse{data=[]models.LevelScore}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /level-scores/runs/{id}/results [get]
func (c *LevelScoreController) GetRunResults(w http.ResponseWriter, r *http.Request) {
	runID, err := parseRunID(r)
	if err != nil {
		render.JSON(w, r, BadRequestResponse(err.Error(), nil))
		return
	}
	if _, err := c.service.GetRun(runID); err != nil {
		if errors.Is(err, levelscore.ErrRunNotFound) {
			render.JSON(w, r, NotFoundResponse(err.Error(), nil))
			return
		}
		render.JSON(w, r, InternalErrorResponse(err.Error(), nil))
		return
	}

	scores, err := c.service.GetRunResults(runID)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse(err.Error(), nil))
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", scores))
}

// GetActiveRun 查询活跃任务
// @Summary 查询活跃任务
// @Description 返回当前pending或running状态的任务，没有时data为空
// @Tags 层级评分
// @Produce json
// @Success 200 {object} APIResponse{data=models.LevelScoreRun}
// @Failure 500 {object} APIResponse
// @Router /level-scores/runs/active [get]
func (c *LevelScoreController) GetActiveRun(w http.ResponseWriter, r *http.Request) {
	run, err := c.service.GetActiveRun()
	if err != nil {
		render.JSON(w, r, InternalErrorResponse(err.Error(), nil))
		return
	}
	if run == nil {
		render.JSON(w, r, SuccessResponse("当前没有活跃任务", nil))
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", run))
}
