package node

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// BlockFeedConfig configures block feed behavior.
type BlockFeedConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing control frames.
	WriteTimeout time.Duration
}

// DefaultBlockFeedConfig returns default block feed configuration.
func DefaultBlockFeedConfig() BlockFeedConfig {
	return BlockFeedConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       120 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// blockEvent is the wire shape of a new-block notification.
type blockEvent struct {
	Height int64 `json:"height"`
}

// BlockFeed subscribes to the node's websocket event stream and delivers new
// block heights. The driver uses it to pace rounds by block count instead of
// wall-clock sleeps.
type BlockFeed struct {
	endpoint string
	config   BlockFeedConfig
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	heights chan int64
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewBlockFeed connects to the websocket endpoint and starts delivering
// heights. config may be nil for defaults.
func NewBlockFeed(ctx context.Context, endpoint string, config *BlockFeedConfig, logger *log.Logger) (*BlockFeed, error) {
	cfg := DefaultBlockFeedConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}

	f := &BlockFeed{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		heights:  make(chan int64, 64),
		done:     make(chan struct{}),
	}

	if err := f.connect(ctx); err != nil {
		return nil, err
	}

	f.wg.Add(1)
	go f.readLoop()

	f.wg.Add(1)
	go f.pingLoop()

	return f, nil
}

// Heights returns the channel of new block heights. Closed on shutdown.
func (f *BlockFeed) Heights() <-chan int64 {
	return f.heights
}

// Close shuts the feed down and closes the heights channel.
func (f *BlockFeed) Close() error {
	if f.closed.Swap(true) {
		return nil // Already closed
	}

	close(f.done)

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		f.conn.Close()
	}
	f.connMu.Unlock()

	f.wg.Wait()
	close(f.heights)
	return nil
}

// connect establishes the websocket connection.
func (f *BlockFeed) connect(ctx context.Context) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	f.conn = conn
	return nil
}

// readLoop reads block events and reconnects with exponential backoff on
// connection errors.
func (f *BlockFeed) readLoop() {
	defer f.wg.Done()

	reconnectDelay := f.config.ReconnectDelay

	for !f.closed.Load() {
		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()

		if conn == nil {
			if !f.reconnect(reconnectDelay) {
				return
			}
			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > f.config.MaxReconnectDelay {
				reconnectDelay = f.config.MaxReconnectDelay
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if f.closed.Load() {
				return
			}

			f.logger.Printf("[blockfeed] read error, reconnecting: %v", err)
			f.connMu.Lock()
			f.conn.Close()
			f.conn = nil
			f.connMu.Unlock()
			continue
		}

		// Reset delay on successful read
		reconnectDelay = f.config.ReconnectDelay

		var ev blockEvent
		if err := json.Unmarshal(message, &ev); err != nil || ev.Height <= 0 {
			continue
		}

		select {
		case f.heights <- ev.Height:
		case <-f.done:
			return
		}
	}
}

// reconnect waits and redials. Returns false when the feed is shutting down.
func (f *BlockFeed) reconnect(delay time.Duration) bool {
	select {
	case <-f.done:
		return false
	case <-time.After(delay):
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := f.connect(ctx); err != nil {
		f.logger.Printf("[blockfeed] reconnect failed: %v", err)
		return true
	}

	f.logger.Printf("[blockfeed] reconnected")
	return true
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (f *BlockFeed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			if f.conn != nil {
				f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
				f.conn.WriteMessage(websocket.PingMessage, nil)
			}
			f.connMu.Unlock()
		}
	}
}
