package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openmohaa/matchmaker/internal/models"
	"github.com/openmohaa/matchmaker/internal/store"
)

// ListQueues returns every queue with its current waiting count.
func (h *Handler) ListQueues(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	configs, err := h.queues.ListQueueConfigs(ctx)
	if err != nil {
		h.logger.Errorw("Failed to list queues", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to list queues")
		return
	}

	out := make([]models.QueueStatus, 0, len(configs))
	for i := range configs {
		out = append(out, h.queueStatus(r, &configs[i]))
	}
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{"queues": out})
}

// GetQueue returns one queue's status.
func (h *Handler) GetQueue(w http.ResponseWriter, r *http.Request) {
	q, ok := h.lookupQueue(w, r)
	if !ok {
		return
	}
	h.jsonResponse(w, http.StatusOK, h.queueStatus(r, q))
}

// RebuildQueue restores the queue's waiting index from the ticket records.
func (h *Handler) RebuildQueue(w http.ResponseWriter, r *http.Request) {
	q, ok := h.lookupQueue(w, r)
	if !ok {
		return
	}
	res, err := h.tickets.Rebuild(r.Context(), q.TitleID, q.QueueName)
	if err != nil {
		h.logger.Errorw("Queue rebuild failed", "titleId", q.TitleID, "queueName", q.QueueName, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Rebuild failed")
		return
	}
	h.jsonResponse(w, http.StatusOK, res)
}

func (h *Handler) lookupQueue(w http.ResponseWriter, r *http.Request) (*models.QueueConfig, bool) {
	titleID := chi.URLParam(r, "titleId")
	queueName := chi.URLParam(r, "queueName")
	q, err := h.queues.GetQueueConfig(r.Context(), titleID, queueName)
	if errors.Is(err, store.ErrQueueNotFound) {
		h.errorResponse(w, http.StatusNotFound, "Queue not found")
		return nil, false
	}
	if err != nil {
		h.logger.Errorw("Failed to load queue", "titleId", titleID, "queueName", queueName, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to load queue")
		return nil, false
	}
	return q, true
}

func (h *Handler) queueStatus(r *http.Request, q *models.QueueConfig) models.QueueStatus {
	st := models.QueueStatus{
		TitleID:     q.TitleID,
		QueueName:   q.QueueName,
		DisplayName: q.DisplayName,
		Enabled:     q.Enabled,
		MinPlayers:  q.MinPlayers,
		MaxPlayers:  q.MaxPlayers,
		Strategy:    q.Strategy(),
		Waiting:     -1,
	}
	if err := q.Validate(); err != nil {
		st.ConfigError = err.Error()
	}
	depth, err := h.index.Depth(r.Context(), q.TitleID, q.QueueName)
	if err != nil {
		h.logger.Warnw("Failed to read queue depth", "titleId", q.TitleID, "queueName", q.QueueName, "error", err)
		return st
	}
	st.Waiting = depth
	return st
}
