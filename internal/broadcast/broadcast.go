package broadcast

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/guidoenr/micshift/internal/analyzer"
)

// Message is the wire envelope pairing one input and one output spectrum.
type Message struct {
	Type           string    `json:"type"`
	InputSpectrum  []float64 `json:"input_spectrum"`
	OutputSpectrum []float64 `json:"output_spectrum"`
	SampleRate     int       `json:"sample_rate"`
	FFTSize        int       `json:"fft_size"`
}

// NewMessage builds the fft_data envelope from one analysis cycle.
func NewMessage(p analyzer.Pair) Message {
	return Message{
		Type:           "fft_data",
		InputSpectrum:  p.Input.Bins,
		OutputSpectrum: p.Output.Bins,
		SampleRate:     int(p.Output.SampleRate),
		FFTSize:        p.Output.FFTSize,
	}
}

// Conn is the transport a client speaks. The web package adapts a WebSocket
// connection to it; tests substitute fakes.
type Conn interface {
	WriteText(data []byte) error
	Close() error
}

const clientQueueLen = 8

// Client is one live consumer with a bounded outbound queue.
type Client struct {
	conn    Conn
	send    chan []byte
	dropped atomic.Uint64
	once    sync.Once
}

// Dropped reports how many messages this client lost to backpressure.
func (c *Client) Dropped() uint64 { return c.dropped.Load() }

func (c *Client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Hub owns the set of connected clients and fans spectrum messages out to
// them. A slow client loses messages (drop-newest, per client) but stays
// connected; only a transport error removes it. Publishing never blocks on
// any client.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	local   chan Message
	log     *logrus.Entry
	wg      sync.WaitGroup
}

// NewHub creates an empty hub. The local channel feeds the terminal
// visualizer and follows the same drop-newest policy as remote clients.
func NewHub(log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.New()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		local:   make(chan Message, clientQueueLen),
		log:     log.WithField("component", "broadcast"),
	}
}

// Add registers a connection and starts its writer. The returned client is
// owned by the hub; callers only need it for introspection.
func (h *Hub) Add(conn Conn) *Client {
	c := &Client{
		conn: conn,
		send: make(chan []byte, clientQueueLen),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.log.WithField("clients", n).Info("client connected")

	h.wg.Add(1)
	go h.writePump(c)
	return c
}

// Remove detaches a client, stopping its writer and closing the transport.
// Removing one client has no effect on the others.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.close()
	_ = c.conn.Close()
	h.log.WithField("clients", n).Info("client disconnected")
}

// Publish serializes the message once and offers it to every client queue
// and the local sink. Full queues drop this message for that consumer only.
func (h *Hub) Publish(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		h.log.WithError(err).Warn("marshal broadcast message")
		return
	}

	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			c.dropped.Add(1)
		}
	}
	h.mu.Unlock()

	select {
	case h.local <- m:
	default:
	}
}

// Local exposes the in-process consumer side (terminal visualizer).
func (h *Hub) Local() <-chan Message { return h.local }

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close detaches every client and waits for their writers to finish.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.Remove(c)
	}
	h.wg.Wait()
}

// writePump drains one client's queue onto its transport. A write error
// removes only that client.
func (h *Hub) writePump(c *Client) {
	defer h.wg.Done()
	for data := range c.send {
		if err := c.conn.WriteText(data); err != nil {
			h.log.WithError(err).Debug("client write failed")
			h.Remove(c)
			return
		}
	}
}
