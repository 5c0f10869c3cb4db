package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Rescueaii/rescue-ai-web/internal/cases"
	"github.com/Rescueaii/rescue-ai-web/internal/realtime"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		// CORS policy is enforced on the REST surface; the stream carries
		// no credentials and only mirrors what GET /api/cases exposes.
		return true
	},
}

// StreamCases upgrades to a websocket and pushes case lifecycle events
// for the whole board. Message events are not delivered here.
func (h *Handler) StreamCases(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.serveStream(conn, h.Hub.SubscribeGlobal())
}

// StreamCase pushes every event for one case, messages included.
func (h *Handler) StreamCase(c *gin.Context) {
	caseID := c.Param("id")
	if _, err := h.Cases.GetCase(c.Request.Context(), caseID); err != nil {
		if errors.Is(err, cases.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Case not found", nil)
			return
		}
		h.Logger.Error().Err(err).Msg("loading case for stream failed")
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", "Operation failed", nil)
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.serveStream(conn, h.Hub.Subscribe(caseID))
}

func (h *Handler) serveStream(conn *websocket.Conn, sub *realtime.Subscription) {
	go h.writePump(conn, sub)
	h.readPump(conn, sub)
}

func (h *Handler) writePump(conn *websocket.Conn, sub *realtime.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case ev, ok := <-sub.Events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection so close frames and pongs are processed.
// Incoming data frames are ignored, the stream is one-way.
func (h *Handler) readPump(conn *websocket.Conn, sub *realtime.Subscription) {
	defer func() {
		sub.Close()
		conn.Close()
	}()
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
