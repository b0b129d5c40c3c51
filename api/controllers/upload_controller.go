/*
 * @module api/controllers/upload_controller
 * @description 数据导入API控制器，处理表格上传、数据行浏览、过滤选项和全量清空
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/upload_design.md
 * @stateFlow HTTP请求处理流程
 * @rules 统一的错误处理和响应格式，参数验证；全量清空须携带确认口令
 * @dependencies planning-service/service, github.com/go-chi/render
 * @refs service/upload/ingest_service.go
 */

package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"planning-service/service"
	"planning-service/service/upload"

	"github.com/go-chi/render"
)

// maxUploadBytes 上传文件大小上限（64MB）
const maxUploadBytes = 64 << 20

// UploadController 数据导入控制器
type UploadController struct {
	service *upload.Service
}

// NewUploadController 创建数据导入控制器实例
func NewUploadController() *UploadController {
	return &UploadController{
		service: service.GlobalUploadService,
	}
}

// UploadFile 上传销售计划表格
// @Summary 上传销售计划表格
// @Description 上传xlsx/xls/csv文件并导入销售计划数据，按自然键更新已存在的行
// @Tags 数据导入
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "表格文件"
// @Success 200 {object} APIResponse{data=upload.Result}
// @Failure 400 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /upload [post]
func (c *UploadController) UploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		render.JSON(w, r, BadRequestResponse(fmt.Sprintf("上传表单解析失败:%s", err.Error()), nil))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		render.JSON(w, r, BadRequestResponse("缺少file字段", nil))
		return
	}
	defer file.Close()

	result, err := c.service.ParseAndImport(r.Context(), file, header.Filename)
	if err != nil {
		if errors.Is(err, upload.ErrUnsupportedFormat) || errors.Is(err, upload.ErrEmptyFile) {
			render.JSON(w, r, BadRequestResponse(err.Error(), nil))
			return
		}
		render.JSON(w, r, InternalErrorResponse(err.Error(), nil))
		return
	}

	render.JSON(w, r, SuccessResponse("导入完成", result))
}

// ListRecords 浏览销售计划数据行
// @Summary 浏览销售计划数据行
// @Description 按维度过滤条件分页浏览已导入的数据行
// @Tags 数据导入
// @Produce json
// @Param year query string false "年份过滤"
// @Param director query string false "总监过滤"
// @Param state_code query string false "州代码过滤"
// @Param product_type query string false "产品类型过滤"
// @Param limit query int false "返回行数上限，默认100"
// @Param offset query int false "偏移量"
// @Success 200 {object} PaginatedResponse{data=[]models.PlanningRecord}
// @Failure 500 {object} APIResponse
// @Router /upload/records [get]
func (c *UploadController) ListRecords(w http.ResponseWriter, r *http.Request) {
	filters := parseFilters(r)
	limit := parseIntParam(r, "limit", 100)
	offset := parseIntParam(r, "offset", 0)

	records, err := c.service.ListRecords(filters, limit, offset)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse(err.Error(), nil))
		return
	}
	matched, _, err := c.service.CountRecords(filters)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse(err.Error(), nil))
		return
	}

	render.JSON(w, r, &PaginatedResponse{
		Status: 0,
		Msg:    "查询成功",
		Data:   records,
		Total:  matched,
		Page:   offset/maxInt(limit, 1) + 1,
		Size:   limit,
	})
}

// GetRecordsMeta 数据行统计信息
// @Summary 数据行统计信息
// @Description 返回匹配过滤条件的行数和全表行数
// @Tags 数据导入
// @Produce json
// @Success 200 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /upload/records/meta [get]
func (c *UploadController) GetRecordsMeta(w http.ResponseWriter, r *http.Request) {
	matched, total, err := c.service.CountRecords(parseFilters(r))
	if err != nil {
		render.JSON(w, r, InternalErrorResponse(err.Error(), nil))
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", map[string]interface{}{
		"matched_rows": matched,
		"total_rows":   total,
	}))
}

// GetFilterOptions 过滤字段候选值
// @Summary 过滤字段候选值
// @Description 返回每个可过滤字段的候选取值，计算时忽略该字段自身的过滤条件
// @Tags 数据导入
// @Produce json
// @Success 200 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /upload/records/filters [get]
func (c *UploadController) GetFilterOptions(w http.ResponseWriter, r *http.Request) {
	options, err := c.service.FilterOptions(parseFilters(r))
	if err != nil {
		render.JSON(w, r, InternalErrorResponse(err.Error(), nil))
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", options))
}

// WipeRecords 清空全部销售计划数据
// @Summary 清空全部销售计划数据
// @Description 删除全部数据行和组合快照，须携带confirm确认口令
// @Tags 数据导入
// @Produce json
// @Param confirm query string true "确认口令"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /upload/records [delete]
func (c *UploadController) WipeRecords(w http.ResponseWriter, r *http.Request) {
	expected := os.Getenv("WIPE_CONFIRM_TOKEN")
	if expected == "" {
		expected = "DELETE-ALL"
	}
	if r.URL.Query().Get("confirm") != expected {
		render.JSON(w, r, BadRequestResponse("确认口令错误，数据未删除", nil))
		return
	}

	deleted, err := c.service.WipeAllRecords(r.Context())
	if err != nil {
		render.JSON(w, r, InternalErrorResponse(err.Error(), nil))
		return
	}
	render.JSON(w, r, SuccessResponse("数据已清空", map[string]interface{}{"deleted_rows": deleted}))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
