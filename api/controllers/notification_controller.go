/*
 * @module api/controllers/notification_controller
 * @description 通知中心API控制器，供前端轮询长任务进度
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/notification_design.md
 * @stateFlow HTTP请求处理流程
 * @rules 通知为进程内状态，重启后清空
 * @dependencies planning-service/service, github.com/go-chi/render
 * @refs service/notification/center.go
 */

package controllers

import (
	"net/http"

	"planning-service/service"
	"planning-service/service/notification"

	"github.com/go-chi/render"
)

// NotificationController 通知中心控制器
type NotificationController struct {
	center *notification.Center
}

// NewNotificationController 创建通知中心控制器实例
func NewNotificationController() *NotificationController {
	return &NotificationController{
		center: service.GlobalNotificationCenter,
	}
}

// ListNotifications 查询通知列表
// @Summary 查询通知列表
// @Description 按更新时间倒序返回最近的通知
// @Tags 通知
// @Produce json
// @Success 200 {object} APIResponse{data=[]notification.Entry}
// @Router /notifications [get]
func (c *NotificationController) ListNotifications(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, SuccessResponse("查询成功", c.center.List()))
}
