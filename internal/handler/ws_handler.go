package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/examrunner/internal/middleware"
	"github.com/stemsi/examrunner/internal/session"
	ws "github.com/stemsi/examrunner/internal/websocket"
)

var (
	errUnknownAction = errors.New("unknown action")
	errMissingIndex  = errors.New("index is required")
	errMissingOption = errors.New("option is required")
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
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

// WSHandler streams a session's snapshot and accepts actions over WebSocket.
type WSHandler struct {
	log          zerolog.Logger
	upgrader     websocket.Upgrader
	pushInterval time.Duration
}

// NewWSHandler creates a new WSHandler. pushInterval is how often a tick
// snapshot is pushed to the client.
func NewWSHandler(log zerolog.Logger, allowedOrigins []string, pushInterval time.Duration) *WSHandler {
	if pushInterval <= 0 {
		pushInterval = session.DefaultTickInterval
	}
	return &WSHandler{
		log:          log.With().Str("component", "ws_handler").Logger(),
		upgrader:     buildUpgrader(allowedOrigins),
		pushInterval: pushInterval,
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/:session_id/stream
// Pushes a tick snapshot every interval, applies client actions and sends
// the result once the session completes.
func (h *WSHandler) SessionStream(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("session_id", c.Param("session_id")).Logger()
	wsLog.Info().Msg("Client connected")

	// Only this goroutine writes to conn; the reader hands requests over.
	requests := make(chan ws.RequestPayload)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			var msg ws.RequestPayload
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				} else {
					wsLog.Debug().Msg("Connection closed")
				}
				return
			}
			select {
			case requests <- msg:
			case <-c.Request.Context().Done():
				return
			}
		}
	}()

	deliverResult := func() bool {
		res, done := sess.Result()
		if !done {
			return false
		}
		ws.WriteEvent(conn, ws.EventCompleted, "", res)
		ws.WriteClose(conn, "session completed")
		wsLog.Info().Int("score", res.Score).Msg("Result delivered, closing stream")
		return true
	}

	ticker := time.NewTicker(h.pushInterval)
	defer ticker.Stop()

	if err := ws.WriteEvent(conn, ws.EventTick, "", sess.Snapshot()); err != nil || deliverResult() {
		return
	}

	for {
		select {
		case <-readDone:
			return

		case <-ticker.C:
			if err := ws.WriteEvent(conn, ws.EventTick, "", sess.Snapshot()); err != nil {
				wsLog.Debug().Err(err).Msg("Tick write failed")
				return
			}

		case msg := <-requests:
			if msg.Action == ws.ActionPing {
				ws.WriteTyped(conn, ws.ResponsePayload{Event: ws.EventPong})
				continue
			}

			applied, err := applyAction(sess, msg)
			if err != nil {
				wsLog.Warn().Str("action", string(msg.Action)).Err(err).Msg("Bad action")
				ws.WriteError(conn, err.Error()+": "+string(msg.Action))
				continue
			}

			event := ws.EventState
			if !applied {
				event = ws.EventRejected
			}
			if err := ws.WriteEvent(conn, event, msg.Action, sess.Snapshot()); err != nil {
				return
			}
		}

		if deliverResult() {
			return
		}
	}
}

// applyAction maps a client action onto the session. It reports whether
// the session accepted it.
func applyAction(sess *session.ExamSession, msg ws.RequestPayload) (bool, error) {
	switch msg.Action {
	case ws.ActionSelect:
		if msg.Option == "" {
			return false, errMissingOption
		}
		return sess.SelectOption(msg.Option), nil
	case ws.ActionClear:
		return sess.ClearResponse(), nil
	case ws.ActionNext:
		return sess.Next(), nil
	case ws.ActionPrevious:
		return sess.Previous(), nil
	case ws.ActionMark:
		return sess.MarkForReviewAndNext(), nil
	case ws.ActionJump:
		if msg.Index == nil {
			return false, errMissingIndex
		}
		return sess.JumpTo(*msg.Index), nil
	case ws.ActionFinish:
		return sess.Finish(), nil
	default:
		return false, errUnknownAction
	}
}
