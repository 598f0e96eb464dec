package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure. Callers must not be able
	// to distinguish an unknown user from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionDestroy occurs when the session backend cannot clear a record.
	ErrSessionDestroy = errors.New("session destroy failed")
	// ErrStore wraps query execution failures; detail stays in logs.
	ErrStore = errors.New("store query failed")
	// ErrQueryUnknown occurs when a symbolic query id is not in the catalog.
	ErrQueryUnknown = errors.New("unknown query")
	// ErrCacheLoad indicates the permission cache could not be built.
	ErrCacheLoad = errors.New("permission cache load failed")
)
