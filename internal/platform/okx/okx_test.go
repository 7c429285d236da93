package okx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okquant/costsim/internal/domain"
)

const sampleFrame = `{
	"timestamp": "2025-03-01T14:05:00Z",
	"exchange": "OKX",
	"symbol": "BTC-USDT",
	"asks": [["95001.5", "0.42"], ["95002.0", "1.1"]],
	"bids": [["95000.0", "0.8"], ["94999.5", "2.3"]]
}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleMessageDispatchesUpdate(t *testing.T) {
	client := NewWSClient("ws://unused", testLogger())

	var got []domain.RawBookUpdate
	client.OnBook(func(u domain.RawBookUpdate) {
		got = append(got, u)
	})

	client.handleMessage([]byte(sampleFrame))

	require.Len(t, got, 1)
	assert.Equal(t, "2025-03-01T14:05:00Z", got[0].Timestamp)
	require.Len(t, got[0].Asks, 2)
	assert.Equal(t, [2]string{"95001.5", "0.42"}, got[0].Asks[0])
	require.Len(t, got[0].Bids, 2)
	assert.Equal(t, [2]string{"94999.5", "2.3"}, got[0].Bids[1])
}

func TestHandleMessageDropsUnparseableFrame(t *testing.T) {
	client := NewWSClient("ws://unused", testLogger())

	called := false
	client.OnBook(func(domain.RawBookUpdate) { called = true })

	client.handleMessage([]byte(`{"asks": "not-an-array"}`))
	assert.False(t, called)
}

func depthFrame(ts string) string {
	return fmt.Sprintf(`{"timestamp": %q, "exchange": "OKX", "symbol": "BTC-USDT", "asks": [["101", "1"]], "bids": [["100", "1"]]}`, ts)
}

func TestClientSurvivesDroppedConnection(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var conns int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		switch atomic.AddInt32(&conns, 1) {
		case 1:
			// First connection: one frame, then an abrupt drop.
			_ = c.WriteMessage(websocket.TextMessage, []byte(depthFrame("2025-03-01T14:05:00Z")))
			_ = c.Close()
		default:
			_ = c.WriteMessage(websocket.TextMessage, []byte(depthFrame("2025-03-01T14:05:01Z")))
			// The reconnected connection must still be usable well after
			// the first connection's loops have wound down.
			time.Sleep(300 * time.Millisecond)
			if err := c.WriteMessage(websocket.TextMessage, []byte(depthFrame("2025-03-01T14:05:02Z"))); err != nil {
				return
			}
			// Hold the connection open until the client closes it.
			for {
				if _, _, err := c.NextReader(); err != nil {
					return
				}
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client := NewWSClient(wsURL, testLogger())
	defer client.Close()

	updates := make(chan domain.RawBookUpdate, 16)
	client.OnBook(func(u domain.RawBookUpdate) { updates <- u })

	require.NoError(t, client.Connect(context.Background()))

	waitFor := func(ts string, timeout time.Duration) {
		t.Helper()
		deadline := time.After(timeout)
		for {
			select {
			case u := <-updates:
				if u.Timestamp == ts {
					return
				}
			case <-deadline:
				t.Fatalf("timed out waiting for update %s", ts)
			}
		}
	}

	waitFor("2025-03-01T14:05:00Z", 2*time.Second)
	// Redial happens after the backoff delay; frames must then keep
	// flowing on the new connection, including ones sent long after the
	// old connection finished tearing down.
	waitFor("2025-03-01T14:05:01Z", 10*time.Second)
	waitFor("2025-03-01T14:05:02Z", 5*time.Second)

	assert.GreaterOrEqual(t, atomic.LoadInt32(&conns), int32(2))
}

func TestToRawUpdate(t *testing.T) {
	msg := &BookMessage{
		Timestamp: "2025-03-01T14:05:00Z",
		Exchange:  "OKX",
		Symbol:    "BTC-USDT",
		Asks:      [][2]string{{"101", "1"}},
		Bids:      [][2]string{{"100", "2"}},
	}

	update := ToRawUpdate(msg)
	assert.Equal(t, msg.Timestamp, update.Timestamp)
	assert.Equal(t, msg.Asks, update.Asks)
	assert.Equal(t, msg.Bids, update.Bids)
}
