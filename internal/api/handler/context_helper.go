package handler

import (
	"strconv"

	"github.com/Freeeeeet/slot_swapper/internal/api/middleware"
	"github.com/Freeeeeet/slot_swapper/internal/api/response"
	"github.com/gin-gonic/gin"
)

// MustGetUserID достаёт user_id, положенный JWT middleware.
// При ok=false ответ 401 уже записан, вызывающий должен просто вернуться.
func MustGetUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(middleware.UserIDKey)
	if !exists {
		response.Unauthorized(c, "unauthenticated")
		return 0, false
	}
	id, ok := v.(int64)
	if !ok || id <= 0 {
		response.Unauthorized(c, "unauthenticated")
		return 0, false
	}
	return id, true
}

// pathID разбирает положительный числовой параметр пути
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
