package web

import (
	"net/http"
	"time"

	"github.com/KNICEX/oi-radar/internal/service/broadcast"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client bridges one websocket connection to one hub subscription.
type client[T any] struct {
	conn   *websocket.Conn
	sub    *broadcast.Subscription[T]
	logger zerolog.Logger
}

func (s *Server) streamAlerts(c *gin.Context) {
	serveWebSocket(c, s.hub, s.logger.With().Str("feed", "alerts").Logger())
}

func (s *Server) streamLogs(c *gin.Context) {
	// The feed's own logs stay out of the feed.
	serveWebSocket(c, s.logs, zerolog.Nop())
}

func serveWebSocket[T any](c *gin.Context, hub *broadcast.Hub[T], logger zerolog.Logger) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("upgrade websocket failed")
		return
	}
	cl := &client[T]{
		conn:   conn,
		sub:    hub.Subscribe(),
		logger: logger.With().Str("remote", c.ClientIP()).Logger(),
	}
	cl.logger.Debug().Msg("websocket client connected")

	go cl.writePump()
	go cl.readPump()
}

// readPump only watches the connection: inbound messages are discarded and
// any read error ends the subscription.
func (cl *client[T]) readPump() {
	defer func() {
		cl.sub.Close()
		_ = cl.conn.Close()
		cl.logger.Debug().Int64("dropped", cl.sub.Dropped()).Msg("websocket client disconnected")
	}()

	cl.conn.SetReadLimit(maxMessageSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				cl.logger.Info().Err(err).Msg("websocket read error")
			}
			return
		}
	}
}

func (cl *client[T]) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.sub.Close()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.sub.C():
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteJSON(msg); err != nil {
				cl.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
