/*
 * @module api/controllers/status_controller
 * @description 数据库状态API控制器，展示候选数据源的在线状态和延迟
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/db_status_design.md
 * @stateFlow HTTP请求处理流程
 * @rules 每次请求实时探测，DSN不出现在响应中
 * @dependencies planning-service/service, github.com/go-chi/render
 * @refs service/dbstatus/status_service.go
 */

package controllers

import (
	"net/http"

	"planning-service/service"
	"planning-service/service/dbstatus"

	"github.com/go-chi/render"
)

// StatusController 数据库状态控制器
type StatusController struct {
	service *dbstatus.Service
}

// NewStatusController 创建数据库状态控制器实例
func NewStatusController() *StatusController {
	return &StatusController{
		service: service.GlobalStatusService,
	}
}

// GetDBStatus 查询数据库状态
// @Summary 查询数据库状态
// @Description 对全部候选数据源探活，返回在线状态、延迟和当前生效的数据源
// @Tags 系统状态
// @Produce json
// @Success 200 {object} APIResponse{data=[]dbstatus.Status}
// @Router /status/db [get]
func (c *StatusController) GetDBStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, SuccessResponse("查询成功", c.service.CheckAll()))
}
