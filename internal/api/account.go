package api

import (
	"net/http"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listAddresses(c *gin.Context) {
	addresses, err := h.profiles.ListAddresses(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

func (h *Handler) addAddress(c *gin.Context) {
	var req service.AddressRequest
	if !h.bind(c, &req) {
		return
	}
	address, err := h.profiles.AddAddress(c.Request.Context(), currentUser(c).ID, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, address)
}

func (h *Handler) updateAddress(c *gin.Context) {
	var req service.AddressRequest
	if !h.bind(c, &req) {
		return
	}
	address, err := h.profiles.UpdateAddress(c.Request.Context(), currentUser(c).ID, c.Param("id"), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, address)
}

func (h *Handler) deleteAddress(c *gin.Context) {
	if err := h.profiles.DeleteAddress(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) setDefaultAddress(c *gin.Context) {
	if err := h.profiles.SetDefaultAddress(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listPaymentMethods(c *gin.Context) {
	methods, err := h.profiles.ListPaymentMethods(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paymentMethods": methods})
}

func (h *Handler) addPaymentMethod(c *gin.Context) {
	var req service.AddPaymentMethodRequest
	if !h.bind(c, &req) {
		return
	}
	method, err := h.profiles.AddPaymentMethod(c.Request.Context(), currentUser(c).ID, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, method)
}

func (h *Handler) updatePaymentMethod(c *gin.Context) {
	var req service.UpdatePaymentMethodRequest
	if !h.bind(c, &req) {
		return
	}
	method, err := h.profiles.UpdatePaymentMethod(c.Request.Context(), currentUser(c).ID, c.Param("id"), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, method)
}

func (h *Handler) deletePaymentMethod(c *gin.Context) {
	if err := h.profiles.DeletePaymentMethod(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) setDefaultPaymentMethod(c *gin.Context) {
	if err := h.profiles.SetDefaultPaymentMethod(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
