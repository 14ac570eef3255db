package database

import "errors"

var (
	ErrInsufficientGems = errors.New("insufficient gems")
	ErrUserNotFound     = errors.New("user not found")
)
