package domain

import "errors"

// Tenant errors
var (
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrTenantAlreadyExists = errors.New("tenant already exists")
	ErrInvalidTenantID     = errors.New("invalid tenant id")
)

// Authentication errors
var (
	ErrInvalidToken = errors.New("invalid token")
)
