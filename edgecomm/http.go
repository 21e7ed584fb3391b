package edgecomm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	integrationerrors "github.com/allenshie/integration-core/errors"
)

const maxEventBodyBytes = 1 << 20

// HTTPAdapter listens for POST /edge/events and serves the last-published
// phase over GET /edge/phase, since plain HTTP has no broker-side retained
// value the way MQTT does.
type HTTPAdapter struct {
	addr        string
	serviceName string
	logger      *slog.Logger

	server *http.Server

	mu        sync.Mutex
	started   bool
	stopped   bool
	lastPhase phasePayload
	havePhase bool
}

// NewHTTPAdapter builds an HTTP-backed adapter listening on addr (e.g. ":8000").
func NewHTTPAdapter(addr, serviceName string, logger *slog.Logger) *HTTPAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPAdapter{addr: addr, serviceName: serviceName, logger: logger}
}

func (a *HTTPAdapter) StartEventIngestion(onEvent OnEvent) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return integrationerrors.WrapFatal(integrationerrors.ErrAlreadyStarted, "HTTPAdapter", "StartEventIngestion", "check started state")
	}
	a.started = true
	a.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/edge/events", a.handleEvents(onEvent))
	mux.HandleFunc("/edge/phase", a.handlePhase)

	ln, err := net.Listen("tcp", a.addr)
	if err != nil {
		return integrationerrors.WrapFatal(err, "HTTPAdapter", "StartEventIngestion", "listen")
	}

	a.server = &http.Server{Handler: mux}
	go func() {
		if err := a.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP adapter server exited", "error", err)
		}
	}()

	a.logger.Info("HTTP edge comm adapter listening", "addr", a.addr)
	return nil
}

func (a *HTTPAdapter) handleEvents(onEvent OnEvent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		defer func() {
			if rec := recover(); rec != nil {
				a.logger.Error("panic handling edge event", "recover", rec)
				w.WriteHeader(http.StatusInternalServerError)
			}
		}()

		raw, err := io.ReadAll(io.LimitReader(r.Body, maxEventBodyBytes))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		event, err := decodeWirePayload(raw)
		if err != nil {
			a.logger.Warn("malformed edge event payload", "error", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		accepted := func() (accepted bool) {
			defer func() {
				if rec := recover(); rec != nil {
					a.logger.Error("ingestion callback panicked, event dropped", "recover", rec)
					accepted = false
				}
			}()
			return onEvent(event)
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if accepted {
			_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
		} else {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "reason": "rejected by store"})
		}
	}
}

func (a *HTTPAdapter) handlePhase(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	payload, ok := a.lastPhase, a.havePhase
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func (a *HTTPAdapter) PublishPhase(phaseName string, timestamp float64) bool {
	a.mu.Lock()
	a.lastPhase = phasePayload{Phase: phaseName, Timestamp: timestamp, Service: a.serviceName}
	a.havePhase = true
	a.mu.Unlock()
	return true
}

func (a *HTTPAdapter) Stop() error {
	a.mu.Lock()
	if a.stopped || a.server == nil {
		a.stopped = true
		a.mu.Unlock()
		return nil
	}
	a.stopped = true
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTPAdapter.Stop: shutdown failed: %w", err)
	}
	return nil
}
