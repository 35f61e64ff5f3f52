package uci

import "errors"

// Engine failure taxonomy. Transport-level errors (not found, start failed,
// crashed, timeout) abort the current run and are surfaced to the caller;
// protocol errors on a single evaluation may be retried once by the caller.
var (
	// ErrEngineNotFound means the engine binary path is missing or not executable.
	ErrEngineNotFound = errors.New("engine binary not found")

	// ErrEngineStartFailed means process creation itself failed.
	ErrEngineStartFailed = errors.New("engine failed to start")

	// ErrEngineNotRunning means a command was issued before Start or after exit.
	ErrEngineNotRunning = errors.New("engine not running")

	// ErrEngineCrashed means the subprocess exited while output was expected.
	ErrEngineCrashed = errors.New("engine crashed")

	// ErrEngineTimeout means no terminal line arrived within the read ceiling.
	ErrEngineTimeout = errors.New("engine timed out")

	// ErrProtocol means engine output could not be parsed into the expected
	// fields (missing score token, malformed move token, rejected option).
	ErrProtocol = errors.New("engine protocol error")
)
