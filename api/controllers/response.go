package controllers

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`
}

// PaginatedResponse 分页响应结构
type PaginatedResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data"`
	Total  int64       `json:"total" example:"100"`
	Page   int         `json:"page" example:"1"`
	Size   int         `json:"size" example:"10"`
}

// SuccessResponse 成功响应
func SuccessResponse(msg string, data interface{}) *APIResponse {
	return &APIResponse{Status: 0, Msg: msg, Data: data}
}

// BadRequestResponse 请求参数错误响应
func BadRequestResponse(msg string, data interface{}) *APIResponse {
	return &APIResponse{Status: 400, Msg: msg, Data: data}
}

// NotFoundResponse 资源不存在响应
func NotFoundResponse(msg string, data interface{}) *APIResponse {
	return &APIResponse{Status: 404, Msg: msg, Data: data}
}

// ConflictResponse 状态冲突响应
func ConflictResponse(msg string, data interface{}) *APIResponse {
	return &APIResponse{Status: 409, Msg: msg, Data: data}
}

// InternalErrorResponse 服务器内部错误响应
func InternalErrorResponse(msg string, data interface{}) *APIResponse {
	return &APIResponse{Status: 500, Msg: msg, Data: data}
}
