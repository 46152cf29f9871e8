package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/atlas-desktop/pulsecore/internal/events"
)

// wsClient is one connected /ws/events subscriber.
type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// eventFrame is the wire shape broadcast to every connected client.
type eventFrame struct {
	Kind      events.Kind `json:"kind"`
	EventID   string      `json:"eventId"`
	Timestamp time.Time   `json:"timestamp"`
	Event     events.Event `json:"event"`
}

// Hub fans out bus events to every connected websocket client.
// Broadcast-only: inbound messages are drained solely to detect
// disconnects.
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*wsClient

	broadcastCh chan []byte
	closeCh     chan struct{}
}

func newHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger: logger.Named("ws_hub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients:     make(map[string]*wsClient),
		broadcastCh: make(chan []byte, 256),
		closeCh:     make(chan struct{}),
	}
}

// subscribeTo wires every bus event kind into the hub's broadcast
// channel. Handler errors never propagate (the bus isolates them), so a
// full broadcast channel simply drops the frame.
func (h *Hub) subscribeTo(bus *events.Bus) {
	for _, kind := range allKinds {
		bus.Subscribe(kind, func(ev events.Event) error {
			h.publish(ev)
			return nil
		})
	}
}

var allKinds = []events.Kind{
	events.KindDataFetched, events.KindNewCandle, events.KindDataFetchError,
	events.KindIndicatorsCalculated, events.KindRegimeChanged, events.KindIndicatorCalculationError,
	events.KindEntrySignal, events.KindExitSignal, events.KindTradesReady, events.KindStrategyEvaluationError,
	events.KindOrderPlaced, events.KindOrderRejected, events.KindPositionClosed, events.KindTradesExecuted,
	events.KindTradingAuthorized, events.KindTradingBlocked, events.KindRiskLimitBreached,
	events.KindTPLevelHit, events.KindPositionPartiallyClosed, events.KindStopLossMoved,
	events.KindToggleAutomation, events.KindAutomationStateChanged,
}

func (h *Hub) publish(ev events.Event) {
	frame := eventFrame{Kind: ev.Kind(), EventID: ev.EventID(), Timestamp: ev.Timestamp(), Event: ev}
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case h.broadcastCh <- data:
	default:
		h.logger.Warn("broadcast channel full, dropping frame", zap.String("kind", string(ev.Kind())))
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.closeCh:
			return
		case data := <-h.broadcastCh:
			h.mu.RLock()
			for _, c := range h.clients {
				select {
				case c.send <- data:
				default:
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &wsClient{id: uuid.NewString(), conn: conn, send: make(chan []byte, 64)}

	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()

	go h.writePump(client)
	go h.readPump(client)
}

// readPump only drains the socket to detect disconnects; this surface
// accepts no inbound commands.
func (h *Hub) readPump(c *wsClient) {
	defer h.dropClient(c)
	c.conn.SetReadLimit(4096)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) dropClient(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
}

func (h *Hub) close() {
	h.mu.Lock()
	for _, c := range h.clients {
		c.conn.Close()
	}
	h.mu.Unlock()
	close(h.closeCh)
}
