package response

import "github.com/gin-gonic/gin"

const (
	CodeBadRequest        = 40000
	CodeUnsupportedFormat = 40001
	CodeEmptyDocument     = 40002
	CodeFileTooLarge      = 40003
	CodeMissingFile       = 40004
	CodeInternalServer    = 50000
	CodeServiceDegraded   = 50300
)

// ErrorBody is the shape of every failed response.
type ErrorBody struct {
	Code   int    `json:"code"`
	Detail string `json:"detail"`
}

// OK writes data as the response body unchanged.
func OK(c *gin.Context, data any) {
	c.JSON(200, data)
}

func Error(c *gin.Context, httpStatus, code int, detail string) {
	c.AbortWithStatusJSON(httpStatus, ErrorBody{
		Code:   code,
		Detail: detail,
	})
}
