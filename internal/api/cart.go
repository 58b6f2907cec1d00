package api

import (
	"net/http"

	"storefront/internal/cart"

	"github.com/gin-gonic/gin"
)

type addCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (h *Handler) cartResponse(c *gin.Context, st cart.State, effect cart.Effect) {
	body := gin.H{
		"cart":    st,
		"items":   st.Lines(),
		"summary": h.cart.Price(st),
	}
	if effect != "" {
		body["effect"] = effect
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) getCart(c *gin.Context) {
	st, err := h.cart.Get(c.Request.Context(), sessionID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.cartResponse(c, st, "")
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req addCartItemRequest
	if !h.bind(c, &req) {
		return
	}
	st, effect, err := h.cart.AddProduct(c.Request.Context(), sessionID(c), req.ProductID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.cartResponse(c, st, effect)
}

func (h *Handler) updateCartItem(c *gin.Context) {
	var req updateCartItemRequest
	if !h.bind(c, &req) {
		return
	}
	st, effect, err := h.cart.Dispatch(c.Request.Context(), sessionID(c), cart.UpdateQuantity{
		ProductID: c.Param("productId"),
		Quantity:  *req.Quantity,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.cartResponse(c, st, effect)
}

func (h *Handler) removeCartItem(c *gin.Context) {
	st, effect, err := h.cart.Dispatch(c.Request.Context(), sessionID(c), cart.RemoveItem{ProductID: c.Param("productId")})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.cartResponse(c, st, effect)
}

func (h *Handler) clearCart(c *gin.Context) {
	st, effect, err := h.cart.Dispatch(c.Request.Context(), sessionID(c), cart.Clear{})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.cartResponse(c, st, effect)
}
