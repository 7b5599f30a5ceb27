package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// StreamConfig configures the quote stream.
type StreamConfig struct {
	URL string

	ReconnectMinDelay time.Duration
	ReconnectMaxDelay time.Duration
	HeartbeatInterval time.Duration
	ReadTimeout       time.Duration
}

// DefaultStreamConfig returns a config with sensible defaults.
func DefaultStreamConfig(url string) StreamConfig {
	return StreamConfig{
		URL:               url,
		ReconnectMinDelay: 1 * time.Second,
		ReconnectMaxDelay: 30 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
	}
}

// StreamHandlers holds callbacks for stream events.
type StreamHandlers struct {
	OnQuote func(ticker string, yesAskCents, noBidCents, volume int64)
	OnError func(err error)
}

// Stream is a websocket quote-update subscriber with automatic
// reconnection. It supplies fresh market snapshots between REST polls.
type Stream struct {
	config   StreamConfig
	handlers StreamHandlers
	tickers  []string
}

// NewStream creates a quote stream for the given tickers.
func NewStream(config StreamConfig, tickers []string, handlers StreamHandlers) *Stream {
	return &Stream{config: config, handlers: handlers, tickers: tickers}
}

// quoteMsg is the wire shape of a quote update.
type quoteMsg struct {
	Type   string `json:"type"`
	Ticker string `json:"ticker"`
	YesAsk int64  `json:"yes_ask"`
	NoBid  int64  `json:"no_bid"`
	Volume int64  `json:"volume"`
}

// Run connects and consumes quote updates until the context is canceled,
// reconnecting with exponential backoff on failure.
func (s *Stream) Run(ctx context.Context) error {
	delay := s.config.ReconnectMinDelay
	for {
		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && s.handlers.OnError != nil {
			s.handlers.OnError(err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > s.config.ReconnectMaxDelay {
			delay = s.config.ReconnectMaxDelay
		}
	}
}

func (s *Stream) runOnce(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, s.config.URL, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	sub := map[string]any{"cmd": "subscribe", "channel": "ticker", "tickers": s.tickers}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}

	// Close the connection when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if s.config.HeartbeatInterval > 0 {
		go s.heartbeat(done, conn)
	}

	for {
		if s.config.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		var msg quoteMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type != "ticker" || msg.Ticker == "" || msg.YesAsk < 1 || msg.YesAsk > 99 {
			continue
		}
		if s.handlers.OnQuote != nil {
			s.handlers.OnQuote(msg.Ticker, msg.YesAsk, msg.NoBid, msg.Volume)
		}
	}
}

func (s *Stream) heartbeat(done <-chan struct{}, conn *websocket.Conn) {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
