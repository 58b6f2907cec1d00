package api

import (
	"net/http"
	"strconv"

	"storefront/internal/apperr"
	"storefront/internal/catalog"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listProducts(c *gin.Context) {
	filter := catalog.Filter{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		Protocol: c.Query("protocol"),
		UseCase:  c.Query("useCase"),
	}

	var err error
	if filter.MinPrice, err = queryInt(c, "minPrice"); err != nil {
		h.respondError(c, err)
		return
	}
	if filter.MaxPrice, err = queryInt(c, "maxPrice"); err != nil {
		h.respondError(c, err)
		return
	}
	if v := c.Query("inStock"); v != "" {
		inStock, err := strconv.ParseBool(v)
		if err != nil {
			h.respondError(c, apperr.ValidationError("inStock must be true or false"))
			return
		}
		filter.InStock = inStock
	}

	products := h.catalog.Search(filter)
	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.catalog.Categories()})
}

func queryInt(c *gin.Context, key string) (int64, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, apperr.Newf(apperr.Validation, "%s must be a non-negative whole number", key)
	}
	return n, nil
}
