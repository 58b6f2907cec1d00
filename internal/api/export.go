package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// csvRow joins fields into one CSV line. Strings are always quoted, numbers never are.
type csvRow []string

func (r csvRow) str(s string) csvRow {
	return append(r, `"`+strings.ReplaceAll(s, `"`, `""`)+`"`)
}

func (r csvRow) num(n int64) csvRow {
	return append(r, strconv.FormatInt(n, 10))
}

func (r csvRow) String() string {
	return strings.Join(r, ",")
}

func writeCSV(c *gin.Context, kind string, header string, rows []csvRow) {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(row.String())
		b.WriteString("\n")
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-export.csv", kind))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(b.String()))
}

func (h *Handler) exportProducts(c *gin.Context) {
	products := h.catalog.List()
	rows := make([]csvRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, csvRow{}.
			str(p.ID).
			str(p.Name).
			str(p.Category).
			num(p.Price).
			num(int64(p.Stock)))
	}
	writeCSV(c, "products", "id,name,category,price,stock", rows)
}

func (h *Handler) exportOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	rows := make([]csvRow, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, csvRow{}.
			str(o.OrderNumber).
			str(o.ShippingAddress.FullName).
			str(o.CreatedAt.Format("2006-01-02")).
			str(string(o.Status)).
			num(o.Total))
	}
	writeCSV(c, "orders", "id,customer,date,status,total", rows)
}
