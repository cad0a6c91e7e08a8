package domain

import "fmt"

// EngineError is the unified error type for the engine.
// Each error has a numeric code and human-readable message.
type EngineError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("engine error %d: %s", e.Code, e.Message)
}

// Is reports whether target is an EngineError with the same code, so errors
// built with NewEngineError or WrapEngineError match their sentinel.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewEngineError creates a new EngineError.
func NewEngineError(code int, msg string) *EngineError {
	return &EngineError{Code: code, Message: msg}
}

// WrapEngineError creates an EngineError that includes a cause.
func WrapEngineError(code int, msg string, cause error) *EngineError {
	return &EngineError{Code: code, Message: fmt.Sprintf("%s: %v", msg, cause)}
}

// Detail returns a copy of the sentinel carrying a more specific message.
func (e *EngineError) Detail(format string, args ...any) *EngineError {
	return &EngineError{Code: e.Code, Message: fmt.Sprintf("%s: %s", e.Message, fmt.Sprintf(format, args...))}
}

// ---- Planning model errors (-32010 to -32039) ----

var (
	ErrUnknownProposition = &EngineError{Code: -32010, Message: "proposition is not part of the universe"}
	ErrInvalidValue       = &EngineError{Code: -32011, Message: "value is outside the proposition's domain"}
	ErrInvalidAction      = &EngineError{Code: -32012, Message: "malformed action"}
	ErrDuplicateAction    = &EngineError{Code: -32013, Message: "action name already defined"}
	ErrIncompleteState    = &EngineError{Code: -32014, Message: "initial state does not bind every proposition"}
	ErrEmptyUniverse      = &EngineError{Code: -32015, Message: "universe has no propositions"}
	ErrInapplicableAction = &EngineError{Code: -32016, Message: "action precondition does not hold"}
	ErrInvalidBlocks      = &EngineError{Code: -32017, Message: "invalid blocks-world block list"}
)

// ---- Search errors (-32040 to -32069) ----

var (
	ErrExpansionLimit   = &EngineError{Code: -32040, Message: "search expansion limit reached"}
	ErrUnknownHeuristic = &EngineError{Code: -32041, Message: "unknown heuristic"}
	ErrUnknownStrategy  = &EngineError{Code: -32042, Message: "unknown search strategy"}
	ErrUnknownDirection = &EngineError{Code: -32043, Message: "unknown planning direction"}
	ErrSessionNotFound  = &EngineError{Code: -32044, Message: "planning session not found"}
	ErrSessionExhausted = &EngineError{Code: -32045, Message: "planning session has no further plans"}
)

// ---- Guard errors (-32100 to -32129) ----

var (
	ErrRateLimitExceeded = &EngineError{Code: -32100, Message: "rate limit exceeded"}
	ErrSessionLimit      = &EngineError{Code: -32101, Message: "maximum open sessions reached"}
)

// ---- Store / config / file errors (-32130 to -32159) ----

var (
	ErrStoreInit       = &EngineError{Code: -32130, Message: "failed to initialize store"}
	ErrStoreQuery      = &EngineError{Code: -32131, Message: "store query failed"}
	ErrStoreWrite      = &EngineError{Code: -32132, Message: "store write failed"}
	ErrSchemaMigration = &EngineError{Code: -32133, Message: "schema migration failed"}
	ErrRunNotFound     = &EngineError{Code: -32134, Message: "planning run not found"}
	ErrConfigInvalid   = &EngineError{Code: -32136, Message: "invalid configuration"}
	ErrProblemFile     = &EngineError{Code: -32137, Message: "invalid problem file"}
)
