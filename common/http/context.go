package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Context 封装 gin.Context
type Context struct {
	ginCtx *gin.Context
}

func newContext(c *gin.Context) *Context {
	return &Context{ginCtx: c}
}

// GetParam 获取路径参数
func (c *Context) GetParam(key string) string {
	return c.ginCtx.Param(key)
}

// JSON 返回 JSON 响应
func (c *Context) JSON(code int, obj any) {
	c.ginCtx.JSON(code, obj)
}

// ClientIP 获取客户端 IP
func (c *Context) ClientIP() string {
	return c.ginCtx.ClientIP()
}

// Method 获取请求方法
func (c *Context) Method() string {
	return c.ginCtx.Request.Method
}

// Path 获取请求路径
func (c *Context) Path() string {
	return c.ginCtx.Request.URL.Path
}

// Status 响应状态码
func (c *Context) Status() int {
	return c.ginCtx.Writer.Status()
}

// Request 原始请求
func (c *Context) Request() *http.Request {
	return c.ginCtx.Request
}

// Next 在中间件里执行后续处理
func (c *Context) Next() {
	c.ginCtx.Next()
}
