package match

import (
	"net/http"

	"github.com/hamzaPixl/deenup/internal/server"
	httperrors "github.com/hamzaPixl/deenup/pkg/http/errors"
	"github.com/hamzaPixl/deenup/pkg/http/ws"
)

// HandleWebSocket upgrades the HTTP connection and authenticates the player.
// Joining the queue requires an authenticated identity, so unauthenticated
// upgrades are rejected before any upgrade happens.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Missing token")
		return
	}

	claims, err := h.tokens.Validate(token)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket token validation failed")
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid token")
		return
	}

	profile, err := h.profiles.GetPlayerProfile(r.Context(), claims.PlayerID)
	if err != nil {
		h.logger.Warn().Err(err).Str("player_id", claims.PlayerID.String()).Msg("profile lookup failed")
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeUnauthorized, "Unknown player")
		return
	}

	conn, err := server.WSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.HandleConnection(ws.NewConnection(conn, h.logger), profile.PlayerID, profile.Username, profile.Rating)
}
