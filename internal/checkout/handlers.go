package checkout

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dukapoint/storefront/internal/auth"
	"github.com/dukapoint/storefront/internal/fault"
)

// Handler serves the checkout endpoint and the admin transaction views.
type Handler struct {
	coordinator *Coordinator
	orders      OrderRepository
	log         *zap.SugaredLogger
}

// NewHandler creates the checkout handler.
func NewHandler(coordinator *Coordinator, orders OrderRepository, log *zap.SugaredLogger) *Handler {
	return &Handler{coordinator: coordinator, orders: orders, log: log}
}

// CheckoutRequest is the wire shape of a checkout call.
type CheckoutRequest struct {
	Cart        []CartItemRequest `json:"cart"`
	PhoneNumber string            `json:"phoneNumber"`
}

// CartItemRequest is one submitted cart line. Price is in minor units.
type CartItemRequest struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

type updateOrderRequest struct {
	TotalAmount int64  `json:"total_amount"`
	UserID      *int64 `json:"user_id"`
}

// Checkout handles POST /api/checkout.
func (h *Handler) Checkout(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty or invalid"})
		return
	}

	lines := make([]CartLine, 0, len(req.Cart))
	for _, item := range req.Cart {
		lines = append(lines, CartLine{
			ProductID: item.ID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
		})
	}

	customer := Customer{ID: identity.UserID, Email: identity.Email}
	receipt, err := h.coordinator.SubmitOrder(c.Request.Context(), customer, req.PhoneNumber, lines)
	if err != nil {
		c.JSON(fault.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Checkout successful",
		"transactionId": receipt.OrderID,
	})
}

// ListTransactions handles GET /api/transactions (admin).
func (h *Handler) ListTransactions(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context())
	if err != nil {
		h.log.Errorw("❌ Failed to list transactions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, orders)
}

// UpdateTransaction handles PUT /api/transactions/:id (admin override).
func (h *Handler) UpdateTransaction(c *gin.Context) {
	id := c.Param("id")

	var req updateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TotalAmount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid total_amount is required"})
		return
	}

	if err := h.orders.UpdateOrder(c.Request.Context(), id, req.TotalAmount, req.UserID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "total_amount": req.TotalAmount, "user_id": req.UserID})
}

// DeleteTransaction handles DELETE /api/transactions/:id (admin).
func (h *Handler) DeleteTransaction(c *gin.Context) {
	id := c.Param("id")

	if err := h.orders.DeleteOrder(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted"})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := fault.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Errorw("❌ Transaction operation failed", "error", err)
		c.JSON(status, gin.H{"error": "Database error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
