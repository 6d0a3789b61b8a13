package feed

import (
	"log/slog"
	"net/http"
	"time"

	"busline/pkg/logger"

	"github.com/gorilla/websocket"
)

// StreamConfig tunes the websocket keepalive
type StreamConfig struct {
	PingPeriod time.Duration
	PongWait   time.Duration
	WriteWait  time.Duration
}

func (c StreamConfig) withDefaults() StreamConfig {
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = c.PongWait * 9 / 10
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	return c
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced in front of the API
	},
}

// stream upgrades the request and pumps sub's events to the client until
// either side goes away. It owns sub and closes it.
func stream(w http.ResponseWriter, r *http.Request, sub *Subscription, cfg StreamConfig, log *logger.Logger) {
	cfg = cfg.withDefaults()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Close()
		log.Warn("Failed to upgrade feed connection", slog.Any("error", err))
		return
	}
	defer conn.Close()

	log.Debug("Feed subscriber connected", slog.String("topic", sub.Topic))

	// Reader: only control frames are expected. It ends the subscription when
	// the client disconnects or stops answering pings.
	go func() {
		defer sub.Close()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug("Feed connection closed unexpectedly", slog.Any("error", err))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.Events:
			_ = conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				log.Debug("Feed subscriber disconnected", slog.String("topic", sub.Topic))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				sub.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				sub.Close()
				return
			}
		}
	}
}
