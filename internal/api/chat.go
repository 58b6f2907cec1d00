package api

import (
	"net/http"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) chatWelcome(c *gin.Context) {
	c.JSON(http.StatusOK, h.chat.Welcome())
}

func (h *Handler) chatReply(c *gin.Context) {
	var req service.ChatRequest
	if !h.bind(c, &req) {
		return
	}
	reply, err := h.chat.Reply(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}
