package response

import (
	"net/http"

	"github.com/Freeeeeet/slot_swapper/internal/apperror"
	"github.com/gin-gonic/gin"
)

// Response единый конверт ответа API
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Коды ошибок в теле ответа
const (
	CodeOK                = 0
	CodeValidation        = 10001
	CodeUnauthorized      = 10002
	CodeForbidden         = 10003
	CodeNotFound          = 10004
	CodeInvalidTransition = 10005
	CodeAlreadyProcessed  = 10006
	CodeConflict          = 10009
	CodeInternal          = 50000
)

var kindCodes = map[apperror.Kind]int{
	apperror.KindValidation:        CodeValidation,
	apperror.KindNotFound:          CodeNotFound,
	apperror.KindForbidden:         CodeForbidden,
	apperror.KindInvalidTransition: CodeInvalidTransition,
	apperror.KindAlreadyProcessed:  CodeAlreadyProcessed,
	apperror.KindConflict:          CodeConflict,
}

// OK 200
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeOK,
		Message: "success",
		Data:    data,
	})
}

// Created 201
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{
		Code:    CodeOK,
		Message: "success",
		Data:    data,
	})
}

// Error общий ответ с ошибкой
func Error(c *gin.Context, httpStatus int, code int, message string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 400
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeValidation, message)
}

// Unauthorized 401
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, CodeUnauthorized, message)
}

// FromError переводит ошибку приложения в HTTP статус и код.
// Нетипизированные ошибки отдаются как 500 без деталей.
func FromError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	code, ok := kindCodes[kind]
	if !ok {
		code = CodeInternal
	}

	if code == CodeInternal {
		_ = c.Error(err)
	}

	Error(c, apperror.HTTPStatus(kind), code, apperror.Message(err))
}
