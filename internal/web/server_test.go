package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guidoenr/micshift/internal/analyzer"
	"github.com/guidoenr/micshift/internal/broadcast"
)

func newTestServer(t *testing.T) (*Server, *broadcast.Hub, *httptest.Server) {
	t.Helper()
	hub := broadcast.NewHub(nil)
	s := NewServer(":0", hub, nil)
	ts := httptest.NewServer(http.HandlerFunc(s.handleWebSocket))
	t.Cleanup(func() {
		ts.Close()
		hub.Close()
	})
	return s, hub, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestWebSocketDeliversSpectrum(t *testing.T) {
	_, hub, ts := newTestServer(t)

	conn := dial(t, ts)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	hub.Publish(broadcast.NewMessage(analyzer.Pair{
		Input:  analyzer.SpectrumFrame{Bins: []float64{1}, SampleRate: 44100, FFTSize: 1024},
		Output: analyzer.SpectrumFrame{Bins: []float64{2}, SampleRate: 44100, FFTSize: 1024},
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var m broadcast.Message
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "fft_data", m.Type)
	assert.Equal(t, 44100, m.SampleRate)
	assert.Equal(t, []float64{2}, m.OutputSpectrum)
}

func TestClientDisconnectIsDetected(t *testing.T) {
	_, hub, ts := newTestServer(t)

	conn := dial(t, ts)
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMultipleClientsEachReceive(t *testing.T) {
	_, hub, ts := newTestServer(t)

	a := dial(t, ts)
	defer a.Close()
	b := dial(t, ts)
	defer b.Close()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 2
	}, time.Second, 10*time.Millisecond)

	hub.Publish(broadcast.NewMessage(analyzer.Pair{
		Output: analyzer.SpectrumFrame{Bins: []float64{1}, SampleRate: 48000, FFTSize: 1024},
	}))

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(data), "fft_data")
	}
}
