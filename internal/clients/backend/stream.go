package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"nhooyr.io/websocket"

	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/interfaces"
	"github.com/bobmcallan/rebal/internal/models"
)

const (
	writeWait   = 10 * time.Second
	dialTimeout = 30 * time.Second

	baseReconnectDelay = 2 * time.Second
	maxReconnectDelay  = 2 * time.Minute
)

// PriceStream subscribes to live prices for a portfolio over WebSocket.
type PriceStream struct {
	url        string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	backoff    func() backoff.BackOff
}

var _ interfaces.PriceStream = (*PriceStream)(nil)

// StreamOption configures a PriceStream
type StreamOption func(*PriceStream)

// WithStreamLogger sets the logger
func WithStreamLogger(logger *common.Logger) StreamOption {
	return func(s *PriceStream) {
		s.logger = logger
	}
}

// WithReconnectBackOff overrides the reconnect schedule
func WithReconnectBackOff(newBackOff func() backoff.BackOff) StreamOption {
	return func(s *PriceStream) {
		s.backoff = newBackOff
	}
}

// NewPriceStream creates a stream client for the given ws:// or wss:// URL.
func NewPriceStream(url, apiKey string, opts ...StreamOption) *PriceStream {
	s := &PriceStream{
		url:        url,
		apiKey:     apiKey,
		httpClient: &http.Client{},
		logger:     common.NewSilentLogger(),
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = baseReconnectDelay
			b.MaxInterval = maxReconnectDelay
			b.MaxElapsedTime = 0 // retry until stopped
			return b
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type subscribeMessage struct {
	Type      string `json:"type"`
	Portfolio string `json:"portfolio"`
}

// priceMessage is a server frame: either a batch in Updates or a single tick.
type priceMessage struct {
	Type      string               `json:"type"`
	Portfolio string               `json:"portfolio"`
	Updates   []models.PriceUpdate `json:"updates"`
	Symbol    string               `json:"symbol"`
	Price     decimal.NullDecimal  `json:"price"`
	Timestamp time.Time            `json:"timestamp"`
}

func (m *priceMessage) priceUpdates() []models.PriceUpdate {
	if len(m.Updates) > 0 {
		return m.Updates
	}
	if m.Symbol != "" && m.Price.Valid {
		return []models.PriceUpdate{{Symbol: m.Symbol, Price: m.Price.Decimal, Timestamp: m.Timestamp}}
	}
	return nil
}

// Run connects, subscribes and delivers price batches to handler until ctx is
// cancelled. Dropped connections are re-established with exponential backoff.
// Run returns nil when ctx is cancelled.
func (s *PriceStream) Run(ctx context.Context, portfolio string, handler func([]models.PriceUpdate)) error {
	log := s.logger.With().Str("component", "price_stream").Str("portfolio", portfolio).Logger()
	b := s.backoff()

	for {
		connected, err := s.session(ctx, portfolio, handler)
		if ctx.Err() != nil {
			log.Info().Msg("Price stream stopped")
			return nil
		}
		if connected {
			b.Reset()
		}

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			return fmt.Errorf("price stream for %s gave up: %w", portfolio, err)
		}
		log.Warn().Err(err).Dur("retry_in", delay).Msg("Price stream disconnected, reconnecting")

		select {
		case <-ctx.Done():
			log.Info().Msg("Price stream stopped")
			return nil
		case <-time.After(delay):
		}
	}
}

// session runs one connection until it fails. connected reports whether the
// subscription was established.
func (s *PriceStream) session(ctx context.Context, portfolio string, handler func([]models.PriceUpdate)) (connected bool, err error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	header := http.Header{}
	if s.apiKey != "" {
		header.Set("Authorization", "Bearer "+s.apiKey)
	}

	conn, _, err := websocket.Dial(dialCtx, s.url, &websocket.DialOptions{
		HTTPClient: s.httpClient,
		HTTPHeader: header,
	})
	if err != nil {
		return false, fmt.Errorf("failed to dial WebSocket: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := s.subscribe(ctx, conn, portfolio); err != nil {
		return false, err
	}
	s.logger.Info().Str("portfolio", portfolio).Msg("Subscribed to price stream")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return true, errors.New("server closed the stream")
			}
			return true, fmt.Errorf("read: %w", err)
		}

		var msg priceMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug().Err(err).Msg("Ignoring malformed price message")
			continue
		}
		if msg.Portfolio != "" && msg.Portfolio != portfolio {
			continue
		}
		if updates := msg.priceUpdates(); len(updates) > 0 {
			handler(updates)
		}
	}
}

func (s *PriceStream) subscribe(ctx context.Context, conn *websocket.Conn, portfolio string) error {
	data, err := json.Marshal(subscribeMessage{Type: "subscribe", Portfolio: portfolio})
	if err != nil {
		return fmt.Errorf("failed to marshal subscription message: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()

	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("failed to send subscription message: %w", err)
	}
	return nil
}
