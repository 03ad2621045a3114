package http

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/attendify/notify-agent/internal/modules/notification/infrastructure/persistence/postgres"
	"github.com/attendify/notify-agent/internal/shared/utils"
)

const (
	defaultJournalLimit = 50
	maxJournalLimit     = 500
)

// JournalReader reads back journaled live frames.
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]postgres.JournalEntry, error)
	Count(ctx context.Context) (int, error)
}

type JournalHandler struct {
	journal JournalReader
	logger  *zap.Logger
}

func NewJournalHandler(journal JournalReader, logger *zap.Logger) *JournalHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JournalHandler{journal: journal, logger: logger}
}

// Recent lists the newest journaled frames with the total count. The limit
// query parameter defaults to 50 and is capped at 500.
func (h *JournalHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := defaultJournalLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.WriteError(w, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = min(n, maxJournalLimit)
	}

	entries, err := h.journal.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to read notification journal", zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "failed to read journal", nil)
		return
	}
	total, err := h.journal.Count(r.Context())
	if err != nil {
		h.logger.Error("failed to count notification journal", zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "failed to read journal", nil)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"data":  entries,
		"total": total,
	})
}
