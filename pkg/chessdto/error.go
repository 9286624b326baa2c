package chessdto

// Error codes carried in ErrorResponse.Code.
const (
	CodeBadRequest        = "bad_request"
	CodeNotFound          = "not_found"
	CodeMethodNotAllowed  = "method_not_allowed"
	CodeInvalidMove       = "invalid_move"
	CodeSessionNotFound   = "session_not_found"
	CodeSessionBusy       = "session_busy"
	CodeGameFinished      = "game_finished"
	CodeUndoNotAvailable  = "undo_not_available"
	CodeGameNotFound      = "game_not_found"
	CodeEngineTimeout     = "engine_timeout"
	CodeEngineUnavailable = "engine_unavailable"
	CodeEngineProtocol    = "engine_protocol_error"
	CodePoolTimeout       = "pool_timeout"
	CodePoolDegraded      = "pool_degraded"
	CodeInternal          = "internal_error"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	// Retryable marks infrastructure failures a client may simply retry,
	// as opposed to requests it must change.
	Retryable bool `json:"retryable,omitempty"`
}
