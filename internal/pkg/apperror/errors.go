package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"

	// Жизненный цикл заявки и оплаты.
	ErrCodeQuotaExceeded     ErrorCode = "QUOTA_EXCEEDED"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeAlreadyAssigned   ErrorCode = "ALREADY_ASSIGNED"
	ErrCodeJobNotOpen        ErrorCode = "JOB_NOT_OPEN"
	ErrCodeQuoteNotAccepted  ErrorCode = "QUOTE_NOT_ACCEPTED"
	ErrCodePayeeNotOnboarded ErrorCode = "PAYEE_NOT_ONBOARDED"
	ErrCodeNothingDue        ErrorCode = "NOTHING_DUE"
	ErrCodeInvalidAmount     ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidSignature  ErrorCode = "INVALID_SIGNATURE"
	ErrCodeConcurrentUpdate  ErrorCode = "CONCURRENT_UPDATE"
	ErrCodeGateway           ErrorCode = "GATEWAY_ERROR"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Details    map[string]any
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду, чтобы errors.Is работал с предопределёнными значениями.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// WithDetails возвращает копию ошибки с дополнительными полями для клиента.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeQuotaExceeded:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeNothingDue, ErrCodeInvalidAmount, ErrCodeInvalidSignature:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeInvalidTransition, ErrCodeAlreadyAssigned, ErrCodeJobNotOpen,
		ErrCodeQuoteNotAccepted, ErrCodePayeeNotOnboarded, ErrCodeConcurrentUpdate:
		return http.StatusConflict
	case ErrCodeGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HasCode проверяет, что в цепочке ошибок есть AppError с указанным кодом.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool {
	return HasCode(err, ErrCodeNotFound)
}

func IsForbidden(err error) bool {
	return HasCode(err, ErrCodeForbidden)
}

func IsValidation(err error) bool {
	return HasCode(err, ErrCodeValidation)
}

func IsInvalidTransition(err error) bool {
	return HasCode(err, ErrCodeInvalidTransition)
}

func IsConcurrentUpdate(err error) bool {
	return HasCode(err, ErrCodeConcurrentUpdate)
}

var (
	ErrJobNotFound          = New(ErrCodeNotFound, "заявка не найдена")
	ErrQuoteNotFound        = New(ErrCodeNotFound, "предложение не найдено")
	ErrTradespersonNotFound = New(ErrCodeNotFound, "профиль мастера не найден")
	ErrUnauthorized         = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden            = New(ErrCodeForbidden, "недостаточно прав")

	ErrJobNotOpen        = New(ErrCodeJobNotOpen, "заявка не принимает предложения")
	ErrAlreadyAssigned   = New(ErrCodeAlreadyAssigned, "по заявке уже выбран исполнитель")
	ErrQuoteNotAccepted  = New(ErrCodeQuoteNotAccepted, "предложение не принято заказчиком")
	ErrPayeeNotOnboarded = New(ErrCodePayeeNotOnboarded, "мастер ещё не подключил приём платежей")
	ErrNothingDue        = New(ErrCodeNothingDue, "к оплате ничего не причитается")
	ErrInvalidSignature  = New(ErrCodeInvalidSignature, "подпись события не прошла проверку")
	ErrConcurrentUpdate  = New(ErrCodeConcurrentUpdate, "заявка была изменена параллельно, повторите запрос")
	ErrGateway           = New(ErrCodeGateway, "платёжный сервис временно недоступен, попробуйте позже")
)

// InvalidTransition описывает запрещённый переход состояния.
func InvalidTransition(format string, args ...any) *AppError {
	return New(ErrCodeInvalidTransition, fmt.Sprintf(format, args...))
}

// QuotaExceeded описывает превышение месячного лимита предложений.
func QuotaExceeded(used, limit int, tier string) *AppError {
	return New(ErrCodeQuotaExceeded, "исчерпан месячный лимит предложений для вашего тарифа").WithDetails(map[string]any{
		"used":  used,
		"limit": limit,
		"tier":  tier,
	})
}
