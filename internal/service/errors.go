package service

import "errors"

var (
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrAccountDeleted         = errors.New("account deleted")
	ErrAccountPendingApproval = errors.New("account pending approval")
	ErrInvalidToken           = errors.New("invalid token")
	ErrUnknownSubject         = errors.New("unknown token subject")
	ErrEmailTaken             = errors.New("email already registered")
	ErrNotFound               = errors.New("not found")
	ErrForbidden              = errors.New("forbidden")
	ErrNetworkUnavailable     = errors.New("identity authority unavailable")
	ErrInvalidEmail           = errors.New("invalid email")
	ErrEmptyPassword          = errors.New("empty password")
	ErrRateLimited            = errors.New("rate limited")
	ErrHashCorrupted          = errors.New("password hash corrupted")
	ErrInvalidInput           = errors.New("invalid input")
	ErrDuplicateCategory      = errors.New("category already exists")
)
