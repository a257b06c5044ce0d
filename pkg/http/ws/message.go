package ws

import "encoding/json"

// Event type constants for the duel WebSocket protocol, styled domain:action.
const (
	// Client -> Server
	TypeQueueJoin     = "queue:join"
	TypeQueueLeave    = "queue:leave"
	TypeAnswerSubmit  = "answer:submit"
	TypeMatchAbandon  = "match:abandon"

	// Server -> Client
	TypeQueueJoined    = "queue:joined"
	TypeQueueLeft      = "queue:left"
	TypeQueueTimeout   = "queue:timeout"
	TypeMatchFound     = "match:found"
	TypeQuestionStart  = "question:start"
	TypeAnswerAccepted = "answer:accepted"
	TypeAnswerOpponent = "answer:opponent"
	TypeQuestionReveal = "question:reveal"
	TypeMatchEnded     = "match:ended"
	TypeMatchAbandoned = "match:abandoned"
	TypeError          = "error"
)

// Message wraps every WebSocket payload with its event type.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a Message envelope.
func NewMessage(eventType string, payload interface{}) Message {
	msg := Message{Type: eventType}
	msg.Payload, _ = json.Marshal(payload)
	return msg
}

// Client events (incoming)

type QueueJoinPayload struct {
	MatchType string `json:"match_type"`         // "ranked" or "unranked"
	ThemeID   string `json:"theme_id,omitempty"` // optional theme preference
}

type AnswerSubmitPayload struct {
	MatchID       string `json:"match_id"`
	QuestionOrder int    `json:"question_order"`
	SelectedIndex *int   `json:"selected_index"` // null signals a timeout
	ElapsedMs     int64  `json:"elapsed_ms"`
}

type MatchAbandonPayload struct {
	MatchID string `json:"match_id"`
}

// Server events (outgoing)

type QueueJoinedPayload struct {
	Position             int `json:"position"`
	EstimatedWaitSeconds int `json:"estimated_wait_seconds"`
}

type QueueTimeoutPayload struct {
	WaitedSeconds int `json:"waited_seconds"`
}

type MatchFoundPayload struct {
	MatchID        string `json:"match_id"`
	OpponentID     string `json:"opponent_id"`
	OpponentRating int    `json:"opponent_rating"`
	MatchType      string `json:"match_type"`
	ThemeID        string `json:"theme_id,omitempty"`
}

type QuestionStartPayload struct {
	MatchID        string   `json:"match_id"`
	QuestionOrder  int      `json:"question_order"`
	TotalQuestions int      `json:"total_questions"`
	QuestionID     string   `json:"question_id"`
	Text           string   `json:"text"`
	Options        []string `json:"options"`
	Difficulty     string   `json:"difficulty"`
	TimeLimitMs    int64    `json:"time_limit_ms"`
}

type AnswerAcceptedPayload struct {
	MatchID       string `json:"match_id"`
	QuestionOrder int    `json:"question_order"`
	IsCorrect     bool   `json:"is_correct"`
	PointsEarned  int    `json:"points_earned"`
	CorrectIndex  int    `json:"correct_index"`
}

// AnswerOpponentPayload tells a player that the opponent answered, never which
// option was chosen.
type AnswerOpponentPayload struct {
	MatchID       string `json:"match_id"`
	QuestionOrder int    `json:"question_order"`
	AnsweredAt    string `json:"answered_at"` // ISO 8601
}

type AnswerSummary struct {
	PlayerID      string `json:"player_id"`
	SelectedIndex *int   `json:"selected_index"`
	IsCorrect     bool   `json:"is_correct"`
	PointsEarned  int    `json:"points_earned"`
	ElapsedMs     int64  `json:"elapsed_ms"`
}

type QuestionRevealPayload struct {
	MatchID       string          `json:"match_id"`
	QuestionOrder int             `json:"question_order"`
	CorrectIndex  int             `json:"correct_index"`
	Explanation   string          `json:"explanation,omitempty"`
	Answers       []AnswerSummary `json:"answers"`
	Scores        map[string]int  `json:"scores"`
}

type MatchEndedPayload struct {
	MatchID      string         `json:"match_id"`
	WinnerID     *string        `json:"winner_id"` // null on draw
	Scores       map[string]int `json:"scores"`
	RatingDeltas map[string]int `json:"rating_deltas"`
	RatingsAfter map[string]int `json:"ratings_after"`
}

type MatchAbandonedPayload struct {
	MatchID     string `json:"match_id"`
	AbandonedBy string `json:"abandoned_by"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
