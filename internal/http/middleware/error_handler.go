package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/trades-marketplace/internal/interface/http/response"
	"github.com/ignatzorin/trades-marketplace/internal/logger"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки централизованно.
// Ошибки, добавленные через c.Error, превращаются в ответ по коду AppError.
// Паника в обработчике превращается в 500 без деталей.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Log.WithFields(logrus.Fields{
					"panic":  r,
					"path":   c.Request.URL.Path,
					"method": c.Request.Method,
				}).Error("panic in handler")
				if !c.Writer.Written() {
					response.Error(c, fmt.Errorf("panic: %v", r))
				}
			}
		}()

		c.Next()

		// Проверяем, не был ли уже отправлен ответ
		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		response.Error(c, c.Errors.Last().Err)
	}
}

// NotFoundHandler отвечает на неизвестные маршруты в общем формате.
func NotFoundHandler(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, response.Response{
		Success: false,
		Error: &response.ErrorInfo{
			Code:    string(apperror.ErrCodeNotFound),
			Message: "маршрут не найден",
		},
	})
}
