package match

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hamzaPixl/deenup/internal/auth/jwt"
	"github.com/hamzaPixl/deenup/internal/leaderboard"
	"github.com/hamzaPixl/deenup/internal/match/queue"
	httperrors "github.com/hamzaPixl/deenup/pkg/http/errors"
	"github.com/hamzaPixl/deenup/pkg/http/ws"
)

// Handler binds inbound WebSocket events to the queue and session engine, and
// fans outbound events back to the two connections of a match.
type Handler struct {
	engine      *Engine
	queue       *queue.Queue
	hub         *ws.Hub
	ladder      *leaderboard.Service // optional
	tokens      *jwt.Manager
	profiles    ProfileStore
	revealDelay time.Duration
	logger      zerolog.Logger
}

// NewHandler creates the transport orchestrator.
func NewHandler(engine *Engine, q *queue.Queue, hub *ws.Hub, ladder *leaderboard.Service, tokens *jwt.Manager, profiles ProfileStore, revealDelay time.Duration, logger zerolog.Logger) *Handler {
	if revealDelay <= 0 {
		revealDelay = 3 * time.Second
	}
	return &Handler{
		engine:      engine,
		queue:       q,
		hub:         hub,
		ladder:      ladder,
		tokens:      tokens,
		profiles:    profiles,
		revealDelay: revealDelay,
		logger:      logger,
	}
}

// Start launches the periodic pairing sweep.
func (h *Handler) Start() {
	h.queue.StartLoop(h.onPair, h.onTimeout)
}

// Stop halts the queue loop. Idempotent, required for graceful shutdown.
func (h *Handler) Stop() {
	h.queue.StopLoop()
}

// HandleConnection runs the read loop for one authenticated connection. A
// dropped connection leaves the queue and forfeits any active match.
func (h *Handler) HandleConnection(conn *ws.Connection, playerID uuid.UUID, username string, playerRating int) {
	h.hub.Register(playerID, conn)
	go conn.WritePump()

	conn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(context.Background(), playerID, username, playerRating, msg)
	})

	// Disconnect: never leave a ghost queue entry or a hung match. A
	// connection that was replaced by a reconnect skips the teardown so the
	// successor keeps the player's queue entry and match.
	if h.hub.Unregister(playerID, conn) {
		h.queue.Leave(playerID)
		if matchID, ok := h.engine.MatchForPlayer(playerID); ok {
			h.abandon(context.Background(), matchID, playerID)
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, playerID uuid.UUID, username string, playerRating int, msg ws.Message) error {
	switch msg.Type {
	case ws.TypeQueueJoin:
		return h.handleQueueJoin(ctx, playerID, username, playerRating, msg.Payload)
	case ws.TypeQueueLeave:
		return h.handleQueueLeave(ctx, playerID)
	case ws.TypeAnswerSubmit:
		return h.handleAnswerSubmit(ctx, playerID, msg.Payload)
	case ws.TypeMatchAbandon:
		return h.handleMatchAbandon(ctx, playerID, msg.Payload)
	default:
		return h.sendError(playerID, httperrors.ErrCodeUnknownEvent, fmt.Sprintf("Unknown event type: %s", msg.Type))
	}
}

func (h *Handler) handleQueueJoin(ctx context.Context, playerID uuid.UUID, username string, playerRating int, payload json.RawMessage) error {
	var req ws.QueueJoinPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(playerID, httperrors.ErrCodeInvalidPayload, "Invalid queue:join payload")
	}
	if req.MatchType != queue.TypeRanked && req.MatchType != queue.TypeUnranked {
		return h.sendError(playerID, httperrors.ErrCodeInvalidPayload, "match_type must be ranked or unranked")
	}

	size, err := h.queue.Join(playerID, username, playerRating, req.MatchType, req.ThemeID)
	if err != nil {
		if err == queue.ErrAlreadyQueued {
			return h.sendError(playerID, httperrors.ErrCodeAlreadyInQueue, "Already waiting in queue")
		}
		return h.sendError(playerID, httperrors.ErrCodeJoinFailed, err.Error())
	}

	return h.hub.SendToPlayer(playerID, ws.NewMessage(ws.TypeQueueJoined, ws.QueueJoinedPayload{
		Position:             size,
		EstimatedWaitSeconds: size * 2,
	}))
}

func (h *Handler) handleQueueLeave(ctx context.Context, playerID uuid.UUID) error {
	h.queue.Leave(playerID)
	return h.hub.SendToPlayer(playerID, ws.NewMessage(ws.TypeQueueLeft, struct{}{}))
}

func (h *Handler) handleAnswerSubmit(ctx context.Context, playerID uuid.UUID, payload json.RawMessage) error {
	var req ws.AnswerSubmitPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(playerID, httperrors.ErrCodeInvalidPayload, "Invalid answer:submit payload")
	}
	if req.ElapsedMs < 0 {
		return h.sendError(playerID, httperrors.ErrCodeInvalidPayload, "elapsed_ms must be non-negative")
	}
	matchID, err := uuid.Parse(req.MatchID)
	if err != nil {
		return h.sendError(playerID, httperrors.ErrCodeInvalidMatchID, "Invalid match ID")
	}

	result, err := h.engine.SubmitAnswer(ctx, matchID, playerID, req.QuestionOrder, req.SelectedIndex, req.ElapsedMs)
	if err != nil {
		return h.sendError(playerID, submitErrorCode(err), err.Error())
	}

	// The submitter gets its own result, correct answer included; the
	// opponent only learns that an answer arrived.
	ack := ws.NewMessage(ws.TypeAnswerAccepted, ws.AnswerAcceptedPayload{
		MatchID:       req.MatchID,
		QuestionOrder: req.QuestionOrder,
		IsCorrect:     result.IsCorrect,
		PointsEarned:  result.PointsEarned,
		CorrectIndex:  result.CorrectIndex,
	})
	if err := h.hub.SendToPlayer(playerID, ack); err != nil {
		h.logger.Warn().Err(err).Str("player_id", playerID.String()).Msg("answer ack failed")
	}

	if session, ok := h.engine.GetSession(matchID); ok {
		if opponent, ok := session.Opponent(playerID); ok {
			notice := ws.NewMessage(ws.TypeAnswerOpponent, ws.AnswerOpponentPayload{
				MatchID:       req.MatchID,
				QuestionOrder: req.QuestionOrder,
				AnsweredAt:    time.Now().UTC().Format(time.RFC3339),
			})
			if err := h.hub.SendToPlayer(opponent.PlayerID, notice); err != nil {
				h.logger.Warn().Err(err).Msg("opponent notice failed")
			}
		}
	}

	if result.BothAnswered {
		h.revealAndAdvance(matchID, req.QuestionOrder)
	}
	return nil
}

func (h *Handler) handleMatchAbandon(ctx context.Context, playerID uuid.UUID, payload json.RawMessage) error {
	var req ws.MatchAbandonPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(playerID, httperrors.ErrCodeInvalidPayload, "Invalid match:abandon payload")
	}
	matchID, err := uuid.Parse(req.MatchID)
	if err != nil {
		return h.sendError(playerID, httperrors.ErrCodeInvalidMatchID, "Invalid match ID")
	}

	h.abandon(ctx, matchID, playerID)
	return nil
}

func (h *Handler) abandon(ctx context.Context, matchID, playerID uuid.UUID) {
	result, ok := h.engine.AbandonMatch(ctx, matchID, playerID)
	if !ok {
		return
	}
	notice := ws.NewMessage(ws.TypeMatchAbandoned, ws.MatchAbandonedPayload{
		MatchID:     matchID.String(),
		AbandonedBy: playerID.String(),
	})
	if err := h.hub.SendToPlayer(result.WinnerID, notice); err != nil {
		h.logger.Warn().Err(err).Msg("abandon notice failed")
	}
	h.hub.CloseRoom(matchID)
}

// onPair runs for each matched pair produced by the sweep: create the
// session, join both connections to the match room, announce the match and
// broadcast the first question. Any failure is reported to both sides.
func (h *Handler) onPair(pairing queue.Pairing) {
	ctx := context.Background()

	p1 := Participant{PlayerID: pairing.Player.PlayerID, Username: pairing.Player.Username, RatingBefore: pairing.Player.Rating}
	p2 := Participant{PlayerID: pairing.Opponent.PlayerID, Username: pairing.Opponent.Username, RatingBefore: pairing.Opponent.Rating}

	session, err := h.engine.CreateSession(ctx, p1, p2, pairing.Player.MatchType, pairing.ThemeID)
	if err != nil {
		h.logger.Error().Err(err).Msg("session creation failed")
		msg := fmt.Sprintf("Could not start match: %v", err)
		_ = h.sendError(p1.PlayerID, httperrors.ErrCodeMatchCreationFailed, msg)
		_ = h.sendError(p2.PlayerID, httperrors.ErrCodeMatchCreationFailed, msg)
		return
	}

	h.hub.JoinRoom(session.MatchID, p1.PlayerID)
	h.hub.JoinRoom(session.MatchID, p2.PlayerID)

	h.sendMatchFound(session, p1, p2)
	h.sendMatchFound(session, p2, p1)

	first, err := h.engine.StartSession(ctx, session.MatchID)
	if err != nil {
		h.logger.Error().Err(err).Str("match_id", session.MatchID.String()).Msg("session start failed")
		msg := fmt.Sprintf("Could not start match: %v", err)
		_ = h.sendError(p1.PlayerID, httperrors.ErrCodeMatchCreationFailed, msg)
		_ = h.sendError(p2.PlayerID, httperrors.ErrCodeMatchCreationFailed, msg)
		return
	}

	h.broadcastQuestion(session.MatchID, 0, len(session.Questions), *first)
}

func (h *Handler) onTimeout(entry queue.Entry) {
	notice := ws.NewMessage(ws.TypeQueueTimeout, ws.QueueTimeoutPayload{
		WaitedSeconds: int(time.Since(entry.JoinedAt).Seconds()),
	})
	if err := h.hub.SendToPlayer(entry.PlayerID, notice); err != nil {
		h.logger.Warn().Err(err).Str("player_id", entry.PlayerID.String()).Msg("queue timeout notice failed")
	}
}

func (h *Handler) sendMatchFound(session *Session, to, opponent Participant) {
	msg := ws.NewMessage(ws.TypeMatchFound, ws.MatchFoundPayload{
		MatchID:        session.MatchID.String(),
		OpponentID:     opponent.PlayerID.String(),
		OpponentRating: opponent.RatingBefore,
		MatchType:      session.MatchType,
		ThemeID:        session.ThemeID,
	})
	if err := h.hub.SendToPlayer(to.PlayerID, msg); err != nil {
		h.logger.Warn().Err(err).Str("player_id", to.PlayerID.String()).Msg("match found notice failed")
	}
}

func (h *Handler) broadcastQuestion(matchID uuid.UUID, order, total int, q Question) {
	msg := ws.NewMessage(ws.TypeQuestionStart, ws.QuestionStartPayload{
		MatchID:        matchID.String(),
		QuestionOrder:  order,
		TotalQuestions: total,
		QuestionID:     q.ID.String(),
		Text:           q.Text,
		Options:        q.Options,
		Difficulty:     q.Difficulty,
		TimeLimitMs:    h.engine.QuestionTimeLimit().Milliseconds(),
	})
	if err := h.hub.BroadcastToRoom(matchID, msg); err != nil {
		h.logger.Warn().Err(err).Str("match_id", matchID.String()).Msg("question broadcast failed")
	}
}

// revealAndAdvance broadcasts the reveal for a fully answered question, waits
// the reveal delay, then either sends the next question or finalizes.
func (h *Handler) revealAndAdvance(matchID uuid.UUID, questionOrder int) {
	session, ok := h.engine.GetSession(matchID)
	if !ok {
		return
	}
	question := session.Questions[questionOrder]

	answers, _ := h.engine.QuestionAnswers(matchID, questionOrder)
	scores, _ := h.engine.Scores(matchID)

	summaries := make([]ws.AnswerSummary, 0, len(answers))
	for _, a := range answers {
		summaries = append(summaries, ws.AnswerSummary{
			PlayerID:      a.PlayerID.String(),
			SelectedIndex: a.SelectedIndex,
			IsCorrect:     a.IsCorrect,
			PointsEarned:  a.PointsEarned,
			ElapsedMs:     a.ElapsedMs,
		})
	}
	scoreMap := make(map[string]int, len(scores))
	for id, s := range scores {
		scoreMap[id.String()] = s
	}

	reveal := ws.NewMessage(ws.TypeQuestionReveal, ws.QuestionRevealPayload{
		MatchID:       matchID.String(),
		QuestionOrder: questionOrder,
		CorrectIndex:  question.CorrectIndex,
		Explanation:   question.Explanation,
		Answers:       summaries,
		Scores:        scoreMap,
	})
	if err := h.hub.BroadcastToRoom(matchID, reveal); err != nil {
		h.logger.Warn().Err(err).Str("match_id", matchID.String()).Msg("reveal broadcast failed")
	}

	total := len(session.Questions)
	go func() {
		time.Sleep(h.revealDelay)

		if next, ok := h.engine.AdvanceQuestion(matchID); ok {
			h.broadcastQuestion(matchID, questionOrder+1, total, *next)
			return
		}
		h.finalize(matchID)
	}()
}

func (h *Handler) finalize(matchID uuid.UUID) {
	ctx := context.Background()

	result, err := h.engine.FinalizeMatch(ctx, matchID)
	if err != nil {
		h.logger.Error().Err(err).Str("match_id", matchID.String()).Msg("finalize failed")
		errMsg := ws.NewMessage(ws.TypeError, ws.ErrorPayload{
			Code:    httperrors.ErrCodeInternalError,
			Message: "Could not finalize match",
		})
		_ = h.hub.BroadcastToRoom(matchID, errMsg)
		return
	}

	scores := make(map[string]int, len(result.Scores))
	deltas := make(map[string]int, len(result.RatingDeltas))
	after := make(map[string]int, len(result.RatingsAfter))
	for id, v := range result.Scores {
		scores[id.String()] = v
	}
	for id, v := range result.RatingDeltas {
		deltas[id.String()] = v
	}
	for id, v := range result.RatingsAfter {
		after[id.String()] = v
	}
	var winner *string
	if result.WinnerID != nil {
		s := result.WinnerID.String()
		winner = &s
	}

	ended := ws.NewMessage(ws.TypeMatchEnded, ws.MatchEndedPayload{
		MatchID:      matchID.String(),
		WinnerID:     winner,
		Scores:       scores,
		RatingDeltas: deltas,
		RatingsAfter: after,
	})
	if err := h.hub.BroadcastToRoom(matchID, ended); err != nil {
		h.logger.Warn().Err(err).Str("match_id", matchID.String()).Msg("match ended broadcast failed")
	}
	h.hub.CloseRoom(matchID)

	if h.ladder != nil && result.MatchType == TypeRanked {
		for _, p := range result.Players {
			won := result.WinnerID != nil && *result.WinnerID == p.PlayerID
			if err := h.ladder.RecordResult(ctx, leaderboard.RecordRequest{
				PlayerID: p.PlayerID,
				Username: p.Username,
				Rating:   result.RatingsAfter[p.PlayerID],
				Won:      won,
			}); err != nil {
				h.logger.Warn().Err(err).Str("player_id", p.PlayerID.String()).Msg("failed to record ladder result")
			}
		}
	}
}

func (h *Handler) sendError(playerID uuid.UUID, code, message string) error {
	msg := ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
	return h.hub.SendToPlayer(playerID, msg)
}

func submitErrorCode(err error) string {
	switch err {
	case ErrSessionNotFound:
		return httperrors.ErrCodeSessionNotFound
	case ErrNotParticipant:
		return httperrors.ErrCodeNotMatchParticipant
	case ErrAnswerOutOfOrder:
		return httperrors.ErrCodeAnswerOutOfOrder
	case ErrAnswerAlreadySubmitted:
		return httperrors.ErrCodeAnswerAlreadySubmitted
	default:
		return httperrors.ErrCodeSubmitFailed
	}
}
