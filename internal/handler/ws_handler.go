package handler

import (
	"net/http"
	"strings"

	"github.com/examgate/examgate-backend/internal/middleware"
	"github.com/examgate/examgate-backend/internal/service"
	ws "github.com/examgate/examgate-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow-list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams session events (ticks, expiry, sync status) to the
// candidate over a WebSocket.
type WSHandler struct {
	sessions *service.SessionService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessions *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/exams/:exam_id/stream
// Pushes engine events for the caller's active session. The client only
// sends pings; answers and navigation go through the HTTP endpoints.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID := c.Param("exam_id")
	engine, ok := h.sessions.Get(examID, claims.UserID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session for this exam"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("user_id", claims.UserID).
		Str("exam_id", examID).
		Logger()

	wsLog.Info().Msg("Candidate connected")

	// All writes happen in the select loop below; the reader goroutine only
	// forwards client messages and detects the peer going away.
	quit := make(chan struct{})
	defer close(quit)

	actions := make(chan ws.RequestEnvelope)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				} else {
					wsLog.Debug().Msg("Connection closed")
				}
				return
			}
			select {
			case actions <- msg:
			case <-quit:
				return
			}
		}
	}()

	for {
		select {
		case ev, open := <-engine.Events():
			if !open {
				wsLog.Debug().Msg("Engine closed, ending stream")
				return
			}
			if err := ws.WriteTyped(conn, ws.SessionEventResponse{Event: ws.EventSession, Payload: ev}); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed, ending stream")
				return
			}
		case msg := <-actions:
			var err error
			switch msg.Action {
			case ws.ActionPing:
				err = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			default:
				wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
				err = ws.WriteError(conn, "unknown action: "+string(msg.Action))
			}
			if err != nil {
				wsLog.Debug().Err(err).Msg("Write failed, ending stream")
				return
			}
		case <-done:
			return
		}
	}
}
