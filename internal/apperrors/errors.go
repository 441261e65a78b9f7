package apperrors

import (
	"errors"
)

var (
	ErrRegTokenNotFound      = errors.New("registration token not found")
	ErrRegTokenIsUsed        = errors.New("registration token is used")
	ErrRegTokenAlreadyExists = errors.New("registration token already exists")
)
