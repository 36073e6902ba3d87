package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/bobmcallan/rebal/internal/models"
)

// priceServer accepts a subscription and pushes the given frames, then closes.
func priceServer(t *testing.T, frames []string, connections *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(connections, 1)
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx := r.Context()
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var sub subscribeMessage
		if err := json.Unmarshal(data, &sub); err != nil || sub.Type != "subscribe" {
			t.Errorf("bad subscribe message %s", data)
			return
		}

		for _, f := range frames {
			if err := conn.Write(ctx, websocket.MessageText, []byte(f)); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestPriceStream_DeliversUpdates(t *testing.T) {
	var connections int32
	srv := priceServer(t, []string{
		`{"type":"prices","portfolio":"growth","updates":[{"symbol":"A","price":"101.5"},{"symbol":"B","price":20}]}`,
		`not json`,
		`{"type":"price","portfolio":"other","symbol":"X","price":1}`,
		`{"type":"price","portfolio":"growth","symbol":"C","price":7.25}`,
	}, &connections)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	var got [][]models.PriceUpdate
	stream := NewPriceStream(wsURL(srv), "key", WithReconnectBackOff(zeroBackOff))

	done := make(chan error, 1)
	go func() {
		done <- stream.Run(ctx, "growth", func(updates []models.PriceUpdate) {
			mu.Lock()
			got = append(got, updates)
			n := len(got)
			mu.Unlock()
			if n == 2 {
				cancel()
			}
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("stream did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	require.Len(t, got[0], 2)
	assert.Equal(t, "A", got[0][0].Symbol)
	assert.Equal(t, "101.5", got[0][0].Price.String())
	require.Len(t, got[1], 1)
	assert.Equal(t, "C", got[1][0].Symbol)
	assert.Equal(t, "7.25", got[1][0].Price.String())
}

func TestPriceStream_ReconnectsAfterClose(t *testing.T) {
	var connections int32
	srv := priceServer(t, []string{
		`{"type":"price","symbol":"A","price":1}`,
	}, &connections)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var ticks int32
	stream := NewPriceStream(wsURL(srv), "", WithReconnectBackOff(zeroBackOff))
	err := stream.Run(ctx, "growth", func(updates []models.PriceUpdate) {
		if atomic.AddInt32(&ticks, 1) == 3 {
			cancel()
		}
	})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&connections), int32(3))
}

func TestPriceStream_StopsWhileDialFails(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	stream := NewPriceStream("ws://127.0.0.1:1/nothing", "")
	err := stream.Run(ctx, "growth", func([]models.PriceUpdate) {})

	assert.NoError(t, err)
}
