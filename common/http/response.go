package http

import "net/http"

// Response 统一响应结构
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// 预定义的响应码
const (
	CodeSuccess     = 0     // 成功
	CodeNotFound    = 10004 // 资源不存在
	CodeUnavailable = 10006 // 暂时无法响应
)

const (
	MsgSuccess  = "success"
	MsgNotFound = "not found"
)

// NewResponse 创建响应
func NewResponse(code int, message string, data any) *Response {
	return &Response{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// Success 成功响应
func (c *Context) Success(data any) {
	c.JSON(http.StatusOK, NewResponse(CodeSuccess, MsgSuccess, data))
}

// NotFound 404 资源不存在
func (c *Context) NotFound(message string) {
	if message == "" {
		message = MsgNotFound
	}
	c.JSON(http.StatusNotFound, NewResponse(CodeNotFound, message, nil))
}

// ServiceUnavailable 503 例如牌桌正在关闭
func (c *Context) ServiceUnavailable(message string) {
	c.JSON(http.StatusServiceUnavailable, NewResponse(CodeUnavailable, message, nil))
}
