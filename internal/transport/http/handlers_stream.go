package httptransport

import (
	"context"
	"fmt"
	"net/http"

	"audittrail/internal/audit/stream"
)

// StreamService opens live event sessions for connected clients.
type StreamService interface {
	Open(ctx context.Context) (*stream.Session, error)
}

// handleStream serves a long-lived text/event-stream response. Each
// broadcast document is written as one SSE data frame and flushed
// immediately. The session is released on every exit path; the loop ends
// only on client disconnect or when the subscription closes underneath us.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming not supported by response writer")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "streaming unsupported"})
		return
	}

	session, err := h.streams.Open(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to open stream", "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "stream unavailable"})
		return
	}
	defer session.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, open := <-session.Events():
			if !open {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
