package models

import "errors"

// Caller-facing error kinds. None of these are retried by the engine.
var (
	ErrInvalidInput             = errors.New("invalid input")
	ErrNotFound                 = errors.New("not found")
	ErrExpired                  = errors.New("content has expired")
	ErrUnauthorized             = errors.New("unauthorized")
	ErrNotExpiredYet            = errors.New("content is not expired yet")
	ErrPrivateContent           = errors.New("cannot mint from private glimpse")
	ErrMustBeMutualFollowers    = errors.New("must be mutual followers to mint")
	ErrDuplicateToken           = errors.New("token already minted")
	ErrRestrictedToCloseFriends = errors.New("content is restricted to close friends")
)
