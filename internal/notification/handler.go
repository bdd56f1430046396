package notification

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/claim-workflow/internal/transport"
	"github.com/frahmantamala/claim-workflow/pkg/logger"
)

// Handler exposes the manual flush trigger. The scheduled worker covers
// normal operation; this endpoint exists for operators and tests.
type Handler struct {
	*transport.BaseHandler
	Queue *Queue
}

func NewHandler(queue *Queue) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Queue:       queue,
	}
}

func (h *Handler) FlushDigests(w http.ResponseWriter, r *http.Request) {
	if err := h.Queue.Flush(r.Context()); err != nil {
		h.Logger.Error("manual digest flush failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
