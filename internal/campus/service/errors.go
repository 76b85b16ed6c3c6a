package service

import "errors"

// 业务错误，handler 层用 errors.Is 翻译为 HTTP 状态码
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrInvalidState      = errors.New("invalid state")
	ErrAlreadyProcessed  = errors.New("already processed")
	ErrBudgetExceeded    = errors.New("budget exceeded")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrValidation        = errors.New("validation failed")
)
