package inventory

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/freshmart/grocery-service/internal/domain"
)

type Handler struct {
	repo   *ProductRepository
	logger *slog.Logger
}

func NewHandler(repo *ProductRepository, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

type createProductRequest struct {
	Name           string          `json:"name"`
	PriceCents     int64           `json:"price_cents"`
	QuantityOnHand int             `json:"quantity_on_hand"`
	Category       domain.Category `json:"category"`
	CreatedBy      string          `json:"created_by"`
}

func (req *createProductRequest) validate() string {
	switch {
	case req.Name == "":
		return "name is required"
	case req.PriceCents < 0:
		return "price_cents must not be negative"
	case req.QuantityOnHand < 0:
		return "quantity_on_hand must not be negative"
	case !domain.ValidCategory(req.Category):
		return "category does not exist"
	case req.CreatedBy == "":
		return "created_by is required"
	}
	return ""
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if msg := req.validate(); msg != "" {
		h.writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	product := &domain.Product{
		Name:           req.Name,
		PriceCents:     req.PriceCents,
		QuantityOnHand: req.QuantityOnHand,
		Category:       req.Category,
		CreatedBy:      req.CreatedBy,
	}

	if err := h.repo.Create(r.Context(), product); err != nil {
		h.logger.Error("failed to create product", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("product created", "product_id", product.ID, "name", product.Name)
	h.writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	product, err := h.repo.GetProduct(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get product", "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if product == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("products listed", "count", len(products))
	h.writeJSON(w, http.StatusOK, products)
}

type updateProductRequest struct {
	Name       string          `json:"name"`
	PriceCents int64           `json:"price_cents"`
	Category   domain.Category `json:"category"`
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	var req updateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || req.PriceCents < 0 {
		h.writeError(w, http.StatusUnprocessableEntity, "name is required and price_cents must not be negative")
		return
	}
	if !domain.ValidCategory(req.Category) {
		h.writeError(w, http.StatusUnprocessableEntity, "category does not exist")
		return
	}

	product, err := h.repo.Update(r.Context(), id, req.Name, req.PriceCents, req.Category)
	if err != nil {
		h.logger.Error("failed to update product", "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if product == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.logger.Info("product updated", "product_id", product.ID)
	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	found, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrProductReferenced) {
			h.writeError(w, http.StatusConflict, "product is referenced by existing orders")
			return
		}
		h.logger.Error("failed to delete product", "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !found {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.logger.Info("product deleted", "product_id", id)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type adjustRequest struct {
	Delta int `json:"delta"`
}

type adjustResponse struct {
	ProductID      string `json:"product_id"`
	QuantityOnHand int    `json:"quantity_on_hand"`
}

// HandleAdjust applies a restock or manual stock correction. It is never
// part of the order path; the request layer has already established the
// caller is an administrator.
func (h *Handler) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	newQuantity, found, err := h.repo.Adjust(r.Context(), id, req.Delta)
	if err != nil {
		if errors.Is(err, ErrAdjustmentBelowZero) {
			h.writeError(w, http.StatusUnprocessableEntity, "adjustment would drive stock below zero")
			return
		}
		h.logger.Error("failed to adjust stock", "error", err, "product_id", id, "delta", req.Delta)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !found {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.logger.Info("stock adjusted", "product_id", id, "delta", req.Delta, "quantity_on_hand", newQuantity)
	h.writeJSON(w, http.StatusOK, adjustResponse{ProductID: id, QuantityOnHand: newQuantity})
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
