package handler

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/mimosa-toolkit/internal/model"
)

// WebSocket configuration constants.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// FeedPath is the route of the catalog WebSocket feed.
const FeedPath = "/ws/products"

// ProductLister loads the current product collection.
type ProductLister interface {
	Products(ctx context.Context) ([]model.Product, error)
}

// FeedHandler pushes catalog snapshots to WebSocket subscribers: once on
// connect, then every time the stored collection changes.
type FeedHandler struct {
	upgrader websocket.Upgrader
	source   ProductLister
	interval time.Duration
	logger   *zap.Logger
	mu       sync.RWMutex
	clients  map[*websocket.Conn]context.CancelFunc
}

// NewFeedHandler creates a FeedHandler that polls source every interval.
func NewFeedHandler(source ProductLister, interval time.Duration, logger *zap.Logger) *FeedHandler {
	return &FeedHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		source:   source,
		interval: interval,
		logger:   logger,
		clients:  make(map[*websocket.Conn]context.CancelFunc),
	}
}

// RegisterRoutes registers the WebSocket routes with the router.
func (h *FeedHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc(FeedPath, h.HandleWebSocket).Methods(http.MethodGet)
}

// HandleWebSocket handles WebSocket connection requests.
//
//nolint:contextcheck // WebSocket connections outlive the HTTP request context
func (h *FeedHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	// The request context ends when this handler returns.
	ctx, cancel := context.WithCancel(context.Background())

	h.mu.Lock()
	h.clients[conn] = cancel
	h.mu.Unlock()

	h.logger.Info("feed client connected", zap.String("remote_addr", conn.RemoteAddr().String()))

	go h.writePump(ctx, conn)
	go h.readPump(ctx, conn, cancel)
}

// readPump drains incoming frames so control messages are processed.
func (h *FeedHandler) readPump(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	defer func() {
		cancel()
		h.removeClient(conn)
		if err := conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		h.logger.Error("failed to set read deadline", zap.Error(err))
		return
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logger.Warn("websocket read error", zap.Error(err))
				}
				return
			}
			h.logger.Debug("received message", zap.ByteString("message", message))
		}
	}
}

// writePump sends the initial snapshot, then polls the source and sends a
// new snapshot whenever the collection differs from the last one sent.
func (h *FeedHandler) writePump(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(h.interval)
	pingTicker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		pingTicker.Stop()
	}()

	last, err := h.sendSnapshot(ctx, conn, nil, true)
	if err != nil {
		h.logger.Debug("failed to send snapshot", zap.Error(err))
		return
	}

	for {
		select {
		case <-ctx.Done():
			h.sendCloseMessage(conn)
			return
		case <-ticker.C:
			if last, err = h.sendSnapshot(ctx, conn, last, false); err != nil {
				h.logger.Debug("failed to send snapshot", zap.Error(err))
				return
			}
		case <-pingTicker.C:
			if err := h.sendPing(conn); err != nil {
				h.logger.Debug("failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

// sendSnapshot loads the collection and writes it unless it equals last
// and force is false. It returns the collection now known to the client.
// Load failures are reported to the client as error messages.
func (h *FeedHandler) sendSnapshot(
	ctx context.Context,
	conn *websocket.Conn,
	last []model.Product,
	force bool,
) ([]model.Product, error) {
	products, err := h.source.Products(ctx)
	if err != nil {
		h.logger.Warn("feed failed to load products", zap.Error(err))
		return last, h.write(conn, model.FeedMessage{
			Type:      model.FeedMessageTypeError,
			Error:     "failed to load products",
			Timestamp: time.Now().UTC(),
		})
	}

	if !force && last != nil && slices.Equal(last, products) {
		return last, nil
	}

	msg := model.FeedMessage{
		Type:      model.FeedMessageTypeSnapshot,
		Count:     len(products),
		Products:  products,
		Timestamp: time.Now().UTC(),
	}
	if err := h.write(conn, msg); err != nil {
		return last, err
	}

	return products, nil
}

func (h *FeedHandler) write(conn *websocket.Conn, msg model.FeedMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

// sendPing sends a ping message to the connection.
func (h *FeedHandler) sendPing(conn *websocket.Conn) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.PingMessage, nil)
}

// sendCloseMessage sends a close message to the connection.
func (h *FeedHandler) sendCloseMessage(conn *websocket.Conn) {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		h.logger.Debug("failed to set write deadline for close", zap.Error(err))
		return
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down")
	if err := conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
		h.logger.Debug("failed to send close message", zap.Error(err))
	}
}

// removeClient removes a client from the clients map.
func (h *FeedHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cancel, exists := h.clients[conn]; exists {
		cancel()
		delete(h.clients, conn)
		h.logger.Info("feed client disconnected", zap.String("remote_addr", conn.RemoteAddr().String()))
	}
}

// ClientCount returns the number of connected subscribers.
func (h *FeedHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAllConnections closes all active WebSocket connections.
func (h *FeedHandler) CloseAllConnections() {
	h.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(h.clients))
	for _, cancel := range h.clients {
		cancels = append(cancels, cancel)
	}
	h.mu.Unlock()

	// Cancelling makes each writePump send a close frame.
	for _, cancel := range cancels {
		cancel()
	}

	time.Sleep(100 * time.Millisecond)

	h.mu.Lock()
	for conn := range h.clients {
		if err := conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
		delete(h.clients, conn)
	}
	h.mu.Unlock()

	h.logger.Info("all feed connections closed")
}
