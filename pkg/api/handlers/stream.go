package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/telemetry-hub/pkg/api/types"
	"github.com/urmzd/telemetry-hub/pkg/broadcast"
	"github.com/urmzd/telemetry-hub/pkg/command"
)

const (
	writeWait      = 10 * time.Second
	sseBuffer      = 256
	heartbeatEvery = 30 * time.Second
	maxMessageSize = 64 << 10
)

// StreamHandler attaches live observers to the broadcaster
type StreamHandler struct {
	broadcaster *broadcast.Broadcaster
	executor    *command.Executor
	upgrader    websocket.Upgrader
}

// NewStreamHandler creates a new stream handler. allowedOrigin restricts
// browser websocket origins; empty or "*" accepts any.
func NewStreamHandler(b *broadcast.Broadcaster, x *command.Executor, allowedOrigin string) *StreamHandler {
	return &StreamHandler{
		broadcaster: b,
		executor:    x,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "" || allowedOrigin == "*" || origin == allowedOrigin
			},
		},
	}
}

// wsObserver delivers broadcast payloads over one websocket connection.
type wsObserver struct {
	id   string
	conn *websocket.Conn

	mu        sync.Mutex
	closeOnce sync.Once
}

func newWSObserver(conn *websocket.Conn) *wsObserver {
	return &wsObserver{id: uuid.NewString(), conn: conn}
}

func (o *wsObserver) ID() string { return o.id }

func (o *wsObserver) Send(ctx context.Context, payload []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeWait)
	}
	if err := o.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return o.conn.WriteMessage(websocket.TextMessage, payload)
}

func (o *wsObserver) Close() error {
	var err error
	o.closeOnce.Do(func() {
		o.mu.Lock()
		_ = o.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		o.mu.Unlock()
		err = o.conn.Close()
	})
	return err
}

// WebSocket handles GET /ws
// @Summary      Live event stream with commands
// @Description  Upgrades to a websocket that receives every broadcast event and accepts command payloads
// @Tags         stream
// @Success      101  {string}  string  "Switching protocols"
// @Router       /ws [get]
func (h *StreamHandler) WebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxMessageSize)

	o := newWSObserver(conn)
	h.broadcaster.Connect(o)
	defer h.broadcaster.Disconnect(o)

	ctx := context.WithoutCancel(c.Request.Context())

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("observer", o.ID()).Msg("Websocket closed unexpectedly")
			}
			return
		}

		cmd, err := h.executor.HandleIncoming(ctx, o, raw)
		if err != nil {
			continue
		}
		h.executor.Execute(ctx, cmd)
	}
}

// Events handles GET /events (SSE stream)
// @Summary      Subscribe to broadcast events
// @Description  Server-Sent Events stream of every broadcast event
// @Tags         stream
// @Produce      text/event-stream
// @Success      200  {string}  string  "SSE event stream"
// @Router       /events [get]
func (h *StreamHandler) Events(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	o := broadcast.NewChannelObserver("sse-"+uuid.NewString(), sseBuffer)
	h.broadcaster.Connect(o)
	defer h.broadcaster.Disconnect(o)

	sendSSEEvent(c.Writer, "connected", map[string]any{
		"timestamp": time.Now(),
		"observer":  o.ID(),
	})
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()

	ticker := time.NewTicker(heartbeatEvery)
	defer ticker.Stop()

	for {
		select {
		case <-clientGone:
			return

		case payload, ok := <-o.Events():
			if !ok {
				return
			}
			writeSSE(c.Writer, "event", payload)
			c.Writer.Flush()

		case <-ticker.C:
			sendSSEEvent(c.Writer, "heartbeat", map[string]any{
				"timestamp": time.Now(),
			})
			c.Writer.Flush()
		}
	}
}

// Connections handles GET /connections
// @Summary      List observers
// @Description  Returns the ids of every connected observer
// @Tags         stream
// @Produce      json
// @Success      200  {object}  types.ConnectionsResponse
// @Router       /connections [get]
func (h *StreamHandler) Connections(c *gin.Context) {
	ids := h.broadcaster.Observers()
	c.JSON(http.StatusOK, types.ConnectionsResponse{Count: len(ids), Observers: ids})
}

func sendSSEEvent(w io.Writer, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	writeSSE(w, eventType, jsonData)
}

func writeSSE(w io.Writer, eventType string, data []byte) {
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: "+string(data)+"\n\n")
}
