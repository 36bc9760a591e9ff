package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
)

// Ключи совпадают с теми, что выставляет middleware авторизации.
const (
	contextUserIDKey = "user_id"
	contextRoleKey   = "role"
)

func getUserID(c *gin.Context) (uuid.UUID, error) {
	userIDValue, exists := c.Get(contextUserIDKey)
	if !exists {
		return uuid.Nil, errors.New("user_id не найден в контексте")
	}

	userID, ok := userIDValue.(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.New("некорректный формат user_id")
	}

	return userID, nil
}

func getActor(c *gin.Context) (valueobject.Actor, error) {
	userID, err := getUserID(c)
	if err != nil {
		return valueobject.Actor{}, err
	}

	role, _ := c.Get(contextRoleKey)
	r, ok := role.(valueobject.Role)
	if !ok {
		return valueobject.Actor{}, errors.New("роль не найдена в контексте")
	}

	return valueobject.Actor{ID: userID, Role: r}, nil
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
