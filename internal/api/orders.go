package api

import (
	"net/http"

	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

type cancelOrderRequest struct {
	Reason  string `json:"reason" binding:"required"`
	Comment string `json:"comment" binding:"max=500"`
}

type updateRoleRequest struct {
	Role models.Role `json:"role" binding:"required,oneof=customer admin superadmin"`
}

// placeOrder checks out the caller's cart
func (h *Handler) placeOrder(c *gin.Context) {
	var req service.PlaceOrderRequest
	if !h.bind(c, &req) {
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	user := currentUser(c)
	order, err := h.checkout.PlaceOrder(c.Request.Context(), sessionID(c), user.ID, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) listMyOrders(c *gin.Context) {
	orders, err := h.orders.GetUserOrders(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

func (h *Handler) getMyOrder(c *gin.Context) {
	order, err := h.orders.GetOrderForUser(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) cancelOrder(c *gin.Context) {
	var req cancelOrderRequest
	if !h.bind(c, &req) {
		return
	}
	order, err := h.orders.CancelOrder(c.Request.Context(), &service.CancelOrderRequest{
		OrderID: c.Param("id"),
		UserID:  currentUser(c).ID,
		Reason:  req.Reason,
		Comment: req.Comment,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) adminListOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if status := models.OrderStatus(c.Query("status")); status != "" {
		filtered := orders[:0]
		for _, o := range orders {
			if o.Status == status {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

func (h *Handler) adminGetOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) adminAdvanceStatus(c *gin.Context) {
	var req service.AdvanceStatusRequest
	if !h.bind(c, &req) {
		return
	}
	req.OrderID = c.Param("id")

	order, err := h.orders.AdvanceStatus(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) adminOrderStats(c *gin.Context) {
	stats, err := h.orders.Stats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) adminUpdateRole(c *gin.Context) {
	var req updateRoleRequest
	if !h.bind(c, &req) {
		return
	}
	user, err := h.auth.UpdateRole(c.Request.Context(), currentUser(c), c.Param("id"), req.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
