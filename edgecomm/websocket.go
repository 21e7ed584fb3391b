package edgecomm

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	integrationerrors "github.com/allenshie/integration-core/errors"
)

// WebSocketAdapter accepts a persistent connection per edge producer over a
// single upgrade path, decoding one JSON event per inbound message, and
// broadcasts phase changes to every connected client.
type WebSocketAdapter struct {
	addr        string
	path        string
	serviceName string
	logger      *slog.Logger
	upgrader    websocket.Upgrader

	server *http.Server

	mu      sync.Mutex
	started bool
	stopped bool
	conns   map[*websocket.Conn]struct{}
}

// NewWebSocketAdapter builds a WebSocket-backed adapter listening on addr
// for upgrade requests at path.
func NewWebSocketAdapter(addr, path, serviceName string, logger *slog.Logger) *WebSocketAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketAdapter{
		addr:        addr,
		path:        path,
		serviceName: serviceName,
		logger:      logger,
		upgrader:    websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		conns:       make(map[*websocket.Conn]struct{}),
	}
}

func (a *WebSocketAdapter) StartEventIngestion(onEvent OnEvent) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return integrationerrors.WrapFatal(integrationerrors.ErrAlreadyStarted, "WebSocketAdapter", "StartEventIngestion", "check started state")
	}
	a.started = true
	a.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc(a.path, a.handleUpgrade(onEvent))

	ln, err := net.Listen("tcp", a.addr)
	if err != nil {
		return integrationerrors.WrapFatal(err, "WebSocketAdapter", "StartEventIngestion", "listen")
	}

	a.server = &http.Server{Handler: mux}
	go func() {
		if err := a.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			a.logger.Error("WebSocket adapter server exited", "error", err)
		}
	}()

	a.logger.Info("WebSocket edge comm adapter listening", "addr", a.addr, "path", a.path)
	return nil
}

func (a *WebSocketAdapter) handleUpgrade(onEvent OnEvent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := a.upgrader.Upgrade(w, r, nil)
		if err != nil {
			a.logger.Warn("WebSocket upgrade failed", "error", err)
			return
		}

		a.mu.Lock()
		a.conns[conn] = struct{}{}
		a.mu.Unlock()

		defer func() {
			a.mu.Lock()
			delete(a.conns, conn)
			a.mu.Unlock()
			_ = conn.Close()
		}()

		for {
			_, body, err := conn.ReadMessage()
			if err != nil {
				return
			}

			event, err := decodeWirePayload(body)
			if err != nil {
				a.logger.Warn("malformed edge event payload on WebSocket", "error", err)
				continue
			}

			func() {
				defer func() {
					if rec := recover(); rec != nil {
						a.logger.Error("ingestion callback panicked, event dropped", "recover", rec)
					}
				}()
				onEvent(event)
			}()
		}
	}
}

func (a *WebSocketAdapter) PublishPhase(phaseName string, timestamp float64) bool {
	payload, err := json.Marshal(phasePayload{Phase: phaseName, Timestamp: timestamp, Service: a.serviceName})
	if err != nil {
		a.logger.Error("failed to marshal phase payload", "error", err)
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	ok := true
	for conn := range a.conns {
		_ = conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			a.logger.Warn("WebSocket phase publish failed for a client", "error", err)
			ok = false
		}
	}
	return ok
}

func (a *WebSocketAdapter) Stop() error {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return nil
	}
	a.stopped = true
	conns := make([]*websocket.Conn, 0, len(a.conns))
	for c := range a.conns {
		conns = append(conns, c)
	}
	server := a.server
	a.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	if server != nil {
		_ = server.Close()
	}
	return nil
}
