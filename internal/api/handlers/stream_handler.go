package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gigmarket/marketplace/backend/internal/domain/providers"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/observability"
)

// DefaultHeartbeatInterval keeps idle streams open through proxies
const DefaultHeartbeatInterval = 30 * time.Second

// StreamHandler pushes provider change events to browsers over Server-Sent
// Events so open provider pages can refetch.
type StreamHandler struct {
	eventBus  providers.EventBus
	heartbeat time.Duration
	clients   int64
}

// NewStreamHandler creates a new stream handler. heartbeat <= 0 uses
// DefaultHeartbeatInterval.
func NewStreamHandler(eventBus providers.EventBus, heartbeat time.Duration) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeatInterval
	}
	return &StreamHandler{eventBus: eventBus, heartbeat: heartbeat}
}

// StreamProviderUpdates handles GET /api/stream/providers, optionally
// restricted with ?ids=a,b
func (h *StreamHandler) StreamProviderUpdates(w http.ResponseWriter, r *http.Request) {
	var ids map[string]bool
	if raw := strings.TrimSpace(r.URL.Query().Get("ids")); raw != "" {
		ids = make(map[string]bool)
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids[id] = true
			}
		}
	}
	h.stream(w, r, ids)
}

// StreamProvider handles GET /api/stream/providers/{id}
func (h *StreamHandler) StreamProvider(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "provider ID is required")
		return
	}
	h.stream(w, r, map[string]bool{id: true})
}

// Stats handles GET /api/stream/stats
func (h *StreamHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]int64{
		"connected_clients": h.ClientCount(),
	})
}

// ClientCount returns the number of open streams
func (h *StreamHandler) ClientCount() int64 {
	return atomic.LoadInt64(&h.clients)
}

// stream forwards events until the client goes away. A nil filter passes
// every provider.
func (h *StreamHandler) stream(w http.ResponseWriter, r *http.Request, filter map[string]bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx)

	events, err := h.eventBus.Subscribe(ctx, providers.EventChannelProviderUpdates)
	if err != nil {
		logger.Error().Err(err).Msg("failed to subscribe to provider updates")
		respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	atomic.AddInt64(&h.clients, 1)
	defer atomic.AddInt64(&h.clients, -1)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeEvent(w, "connected", map[string]interface{}{"timestamp": time.Now().UTC()})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("stream client disconnected")
			return
		case <-ticker.C:
			// SSE comment line; EventSource ignores it
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			if event == nil || (filter != nil && !filter[event.ProviderID]) {
				continue
			}
			writeEvent(w, string(event.EventType), event)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
}
