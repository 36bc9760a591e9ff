package service

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
)

var ErrInvalidRole = errors.New("token: неизвестная роль")

// TokenManager проверяет access токены, выпущенные внешним сервисом авторизации.
// Выпуск токенов здесь не реализован.
type TokenManager struct {
	accessSecret []byte
}

// NewTokenManager создаёт менеджер токенов.
func NewTokenManager(accessSecret string) *TokenManager {
	return &TokenManager{accessSecret: []byte(accessSecret)}
}

// ParseAccess извлекает пользователя и роль из access токена.
func (m *TokenManager) ParseAccess(token string) (valueobject.Actor, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return m.accessSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return valueobject.Actor{}, err
	}
	if !parsed.Valid {
		return valueobject.Actor{}, jwt.ErrTokenInvalidClaims
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return valueobject.Actor{}, jwt.ErrTokenInvalidClaims
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return valueobject.Actor{}, err
	}
	userID, err := uuid.Parse(sub)
	if err != nil || userID == uuid.Nil {
		return valueobject.Actor{}, jwt.ErrTokenInvalidSubject
	}

	role, _ := claims["role"].(string)
	switch valueobject.Role(role) {
	case valueobject.RoleCustomer, valueobject.RoleTradesperson, valueobject.RoleAdmin:
	default:
		return valueobject.Actor{}, ErrInvalidRole
	}

	return valueobject.Actor{ID: userID, Role: valueobject.Role(role)}, nil
}
