package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrTokenInvalid  = errors.New("token is invalid")
	ErrTokenNotFound = errors.New("token not found")
	ErrPairMismatch  = errors.New("token pair could not be validated")
)
