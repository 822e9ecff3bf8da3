package orders

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/freshmart/grocery-service/internal/checkout"
	"github.com/freshmart/grocery-service/internal/domain"
	"github.com/freshmart/grocery-service/internal/messaging"
	"github.com/freshmart/grocery-service/internal/telemetry"
)

type Handler struct {
	verifier  *checkout.Verifier
	committer *checkout.Committer
	repo      *OrderRepository
	producer  *messaging.Producer
	metrics   *telemetry.CheckoutMetrics
	logger    *slog.Logger
}

func NewHandler(verifier *checkout.Verifier, committer *checkout.Committer, repo *OrderRepository, producer *messaging.Producer, metrics *telemetry.CheckoutMetrics, logger *slog.Logger) *Handler {
	return &Handler{
		verifier:  verifier,
		committer: committer,
		repo:      repo,
		producer:  producer,
		metrics:   metrics,
		logger:    logger,
	}
}

type placeOrderRequest struct {
	PurchaserID string              `json:"purchaser_id"`
	Address     string              `json:"address"`
	Items       []domain.BasketLine `json:"items"`
}

// HandlePlace runs the advisory stock check and, if the basket is
// admitted, commits the order. A stock shortage that only shows up at
// commit time means the inventory moved after admission, and is reported
// as a concurrency conflict rather than a plain rejection.
func (h *Handler) HandlePlace(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.PurchaserID == "" || req.Address == "" {
		h.writeError(w, http.StatusBadRequest, "purchaser_id and address are required")
		return
	}

	if err := h.verifier.Verify(r.Context(), req.Items); err != nil {
		h.rejectOrFail(w, r, err, false)
		return
	}

	order, err := h.committer.Commit(r.Context(), req.PurchaserID, req.Address, req.Items)
	if err != nil {
		h.rejectOrFail(w, r, err, true)
		return
	}

	h.metrics.OrderPlaced(r.Context())

	if h.producer != nil {
		event := domain.OrderPlacedEvent{
			OrderID:     order.ID,
			PurchaserID: order.PurchaserID,
			Lines:       order.Lines,
			TotalCents:  order.TotalCents,
			Timestamp:   order.CreatedAt,
		}
		if err := h.producer.PublishOrderPlaced(r.Context(), event); err != nil {
			h.logger.Error("failed to publish order placed event", "error", err, "order_id", order.ID)
		}
	}

	h.logger.Info("order placed", "order_id", order.ID, "purchaser_id", order.PurchaserID, "total_cents", order.TotalCents)
	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("orders listed", "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
}

type rejectResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Line      int    `json:"line"`
	ProductID string `json:"product_id,omitempty"`
}

func (h *Handler) rejectOrFail(w http.ResponseWriter, r *http.Request, err error, afterAdmission bool) {
	var rej *checkout.RejectError
	if !errors.As(err, &rej) {
		h.logger.Error("order placement failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	kind := rej.Kind
	status := http.StatusBadRequest
	switch {
	case kind == checkout.KindNotFound:
		status = http.StatusNotFound
	case afterAdmission && kind == checkout.KindInsufficientStock:
		// Verification admitted this basket, so the stock moved in between.
		kind = checkout.KindConflict
		status = http.StatusConflict
	}

	h.metrics.OrderRejected(r.Context(), string(kind))
	h.logger.Info("order rejected", "kind", kind, "line", rej.Line, "product_id", rej.ProductID, "reason", rej.Reason)
	h.writeJSON(w, status, rejectResponse{
		Error:     rej.Reason,
		Kind:      string(kind),
		Line:      rej.Line,
		ProductID: rej.ProductID,
	})
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
