package server

import "errors"

// Precondition errors, fired eagerly on programmer misuse per spec.md §7's
// "NotInServer"/"AlreadyRunning"/"NotRunning" family.
var (
	ErrAlreadyRunning = errors.New("server: already running")
	ErrNotRunning     = errors.New("server: not running")
	ErrNotInServer    = errors.New("server: connection is not registered with this server")
)
