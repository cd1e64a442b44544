package order

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-bakehouse/internal/common"
	"github.com/noah-isme/backend-bakehouse/internal/pricing"
	"github.com/noah-isme/backend-bakehouse/internal/repo"
)

// Handler exposes customer-facing order endpoints.
type Handler struct {
	Q *repo.Queries
}

type summaryView struct {
	Subtotal       int64  `json:"subtotal"`
	OriginalTotal  int64  `json:"originalTotal"`
	Savings        int64  `json:"savings"`
	DeliveryCharge int64  `json:"deliveryCharge"`
	FreeCashUsed   int64  `json:"freeCashUsed"`
	GrandTotal     int64  `json:"grandTotal"`
	TotalLabel     string `json:"totalLabel"`
}

type itemView struct {
	ProductID    string `json:"productId"`
	ProductName  string `json:"productName"`
	VariantLabel string `json:"variantLabel,omitempty"`
	Quantity     int32  `json:"quantity"`
	UnitPrice    int64  `json:"unitPrice"`
	UnitMRP      int64  `json:"unitMrp"`
	DiscountPct  int32  `json:"discountPercentage"`
	IsFree       bool   `json:"isFreeProduct"`
	LineTotal    int64  `json:"lineTotal"`
}

// List handles GET /api/v1/orders for the authenticated user.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order queries not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	offset := int32((page - 1) * perPage)
	total, err := h.Q.CountOrdersByUser(r.Context(), userID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to count orders", nil)
		return
	}
	orders, err := h.Q.ListOrdersByUser(r.Context(), userID, int32(perPage), offset)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	response := make([]map[string]any, 0, len(orders))
	for _, ord := range orders {
		response = append(response, map[string]any{
			"id":        ord.ID,
			"status":    ord.Status,
			"summary":   storedSummaryView(ord),
			"createdAt": ord.CreatedAt,
		})
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": response,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(total),
		},
	})
}

// Get handles GET /api/v1/orders/{orderId} with full line detail.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order queries not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	ord, ok := h.loadOwnedOrder(w, r, userID)
	if !ok {
		return
	}
	items, err := h.Q.ListOrderItems(r.Context(), ord.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order items", nil)
		return
	}
	responseItems := make([]itemView, 0, len(items))
	for _, it := range items {
		view := itemView{
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			VariantLabel: it.VariantLabel,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			UnitMRP:      it.UnitMRP,
			DiscountPct:  it.DiscountPct,
			IsFree:       it.IsFree,
		}
		if !it.IsFree {
			view.LineTotal = it.UnitPrice * int64(it.Quantity)
		}
		responseItems = append(responseItems, view)
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"id":            ord.ID,
			"status":        ord.Status,
			"summary":       h.reconciledSummary(ord, items),
			"items":         responseItems,
			"deliveryName":  ord.DeliveryName,
			"deliveryPhone": ord.DeliveryPhone,
			"deliveryNotes": ord.DeliveryNotes,
			"createdAt":     ord.CreatedAt,
		},
	})
}

// Track handles GET /api/v1/orders/{orderId}/track with the status timeline.
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order queries not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	ord, ok := h.loadOwnedOrder(w, r, userID)
	if !ok {
		return
	}
	steps := []string{
		repo.OrderStatusPlaced,
		repo.OrderStatusConfirmed,
		repo.OrderStatusBaking,
		repo.OrderStatusDispatched,
		repo.OrderStatusDelivered,
	}
	currentRank := statusRank(ord.Status)
	timeline := make([]map[string]any, 0, len(steps))
	for _, step := range steps {
		timeline = append(timeline, map[string]any{
			"status":  step,
			"reached": statusRank(step) <= currentRank && ord.Status != repo.OrderStatusCancelled,
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"id":        ord.ID,
			"status":    ord.Status,
			"cancelled": ord.Status == repo.OrderStatusCancelled,
			"timeline":  timeline,
			"updatedAt": ord.UpdatedAt.Format(time.RFC3339),
		},
	})
}

// Cancel handles POST /api/v1/orders/{orderId}/cancel for pre-dispatch orders.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order queries not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	ord, ok := h.loadOwnedOrder(w, r, userID)
	if !ok {
		return
	}
	if statusRank(ord.Status) >= statusRank(repo.OrderStatusDispatched) || ord.Status == repo.OrderStatusCancelled {
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", "order can no longer be cancelled", nil)
		return
	}
	updated, err := h.Q.UpdateOrderStatus(r.Context(), ord.ID, repo.OrderStatusCancelled)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to cancel order", nil)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{"id": updated.ID, "status": updated.Status})
}

func (h *Handler) loadOwnedOrder(w http.ResponseWriter, r *http.Request, userID string) (repo.Order, bool) {
	orderID := chi.URLParam(r, "orderId")
	ord, err := h.Q.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return repo.Order{}, false
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return repo.Order{}, false
	}
	if ord.UserID != userID {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		return repo.Order{}, false
	}
	return ord, true
}

func storedSummaryView(ord repo.Order) summaryView {
	return toSummaryView(storedSummary(ord))
}

func (h *Handler) reconciledSummary(ord repo.Order, items []repo.OrderItem) summaryView {
	stored := storedSummary(ord)
	fresh := SummaryFromItems(items, stored)
	return toSummaryView(ReconcileSummary(stored, fresh))
}

func storedSummary(ord repo.Order) repo.OrderSummary {
	return repo.OrderSummary{
		Subtotal:       ord.Subtotal,
		OriginalTotal:  ord.OriginalTotal,
		Savings:        ord.Savings,
		DeliveryCharge: ord.DeliveryCharge,
		FreeCashUsed:   ord.FreeCashUsed,
		GrandTotal:     ord.GrandTotal,
	}
}

func toSummaryView(s repo.OrderSummary) summaryView {
	return summaryView{
		Subtotal:       s.Subtotal,
		OriginalTotal:  s.OriginalTotal,
		Savings:        s.Savings,
		DeliveryCharge: s.DeliveryCharge,
		FreeCashUsed:   s.FreeCashUsed,
		GrandTotal:     s.GrandTotal,
		TotalLabel:     pricing.FormatCurrency(float64(s.GrandTotal), false),
	}
}

func statusRank(status string) int {
	switch status {
	case repo.OrderStatusPlaced:
		return 0
	case repo.OrderStatusConfirmed:
		return 1
	case repo.OrderStatusBaking:
		return 2
	case repo.OrderStatusDispatched:
		return 3
	case repo.OrderStatusDelivered:
		return 4
	case repo.OrderStatusCancelled:
		return -1
	default:
		return -2
	}
}
