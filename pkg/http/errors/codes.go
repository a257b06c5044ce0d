package errors

// Error codes for standardized error responses and WebSocket error events.
const (
	// Authentication errors
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeInvalidToken = "invalid_token"
	ErrCodeTokenExpired = "token_expired"

	// Validation errors
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeInvalidPayload = "invalid_payload"
	ErrCodeInvalidMatchID = "invalid_match_id"
	ErrCodeUnknownEvent   = "unknown_event"

	// Queue errors
	ErrCodeAlreadyInQueue = "already_in_queue"
	ErrCodeJoinFailed     = "join_failed"

	// Match errors
	ErrCodeSessionNotFound        = "session_not_found"
	ErrCodeNotMatchParticipant    = "not_match_participant"
	ErrCodeAnswerOutOfOrder       = "answer_out_of_order"
	ErrCodeAnswerAlreadySubmitted = "answer_already_submitted"
	ErrCodeMatchCreationFailed    = "match_creation_failed"
	ErrCodeSubmitFailed           = "submit_failed"

	// Server errors
	ErrCodeNotFound           = "not_found"
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"

	// Leaderboard errors
	ErrCodeLeaderboardFetchFailed = "leaderboard_fetch_failed"
)
