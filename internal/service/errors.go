package service

import "errors"

var (
	// ErrBotNotFound is returned when a report names no registered bot.
	ErrBotNotFound = errors.New("bot not found in database")

	// ErrMalformedReport is returned when a report lacks a username or data.
	ErrMalformedReport = errors.New("missing username or data")

	// ErrPersistence wraps record store failures.
	ErrPersistence = errors.New("persistence failure")

	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidInput is returned when a request field fails validation.
	ErrInvalidInput = errors.New("invalid input")
)
