package notify

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// Handler simulates an email provider: deliveries take a little while and
// are kept in a bounded in-memory log for inspection.
type Handler struct {
	logger *slog.Logger

	mu     sync.Mutex
	recent []Delivery
	limit  int
}

type Delivery struct {
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{
		logger: logger,
		limit:  100,
	}
}

type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type sendResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.To == "" || req.Subject == "" {
		h.writeError(w, http.StatusBadRequest, "to and subject are required")
		return
	}

	delay := time.Duration(50+rand.Intn(151)) * time.Millisecond
	time.Sleep(delay)

	h.record(Delivery{To: req.To, Subject: req.Subject, Body: req.Body, SentAt: time.Now().UTC()})

	h.logger.Info("notification sent", "to", req.To, "subject", req.Subject)
	h.writeJSON(w, http.StatusOK, sendResponse{Status: "sent"})
}

// HandleRecent lists the most recent deliveries, newest first.
func (h *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	deliveries := make([]Delivery, len(h.recent))
	copy(deliveries, h.recent)
	h.mu.Unlock()

	for i, j := 0, len(deliveries)-1; i < j; i, j = i+1, j-1 {
		deliveries[i], deliveries[j] = deliveries[j], deliveries[i]
	}

	h.writeJSON(w, http.StatusOK, deliveries)
}

func (h *Handler) record(d Delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.recent = append(h.recent, d)
	if len(h.recent) > h.limit {
		h.recent = h.recent[len(h.recent)-h.limit:]
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
