package handler

import (
	"net/http"
	"strconv"
	"time"

	"shopbill/internal/middleware"
	"shopbill/internal/model"
	"shopbill/internal/service"
	"shopbill/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleStaff)

	reports := router.Group("/api/reports")
	reports.Use(staff)
	{
		reports.GET("/sales", h.SalesSummary)
		reports.GET("/top-products", h.TopProducts)
		reports.GET("/payments", h.PaymentBreakdown)
		reports.GET("/low-stock", h.LowStock)
	}
}

// dateRange parses start_date/end_date query params, defaulting to the
// current month so a bare request shows something useful
func dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := now

	if s := c.Query("start_date"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid start_date, expected YYYY-MM-DD"))
			return start, end, false
		}
		start = parsed
	}
	if s := c.Query("end_date"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid end_date, expected YYYY-MM-DD"))
			return start, end, false
		}
		end = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	return start, end, true
}

// SalesSummary returns aggregate sales totals for a date range
// @Summary      Sales summary
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        start_date  query     string  false  "Start date (YYYY-MM-DD, default first of month)"
// @Param        end_date    query     string  false  "End date (YYYY-MM-DD, default today)"
// @Success      200         {object}  response.Response{data=service.SalesSummaryResponse}
// @Failure      500         {object}  response.Response
// @Router       /api/reports/sales [get]
func (h *ReportHandler) SalesSummary(c *gin.Context) {
	start, end, ok := dateRange(c)
	if !ok {
		return
	}

	summary, err := h.reportService.SalesSummary(c.Request.Context(), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// TopProducts returns best-selling products for a date range
// @Summary      Top products
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        start_date  query     string  false  "Start date (YYYY-MM-DD)"
// @Param        end_date    query     string  false  "End date (YYYY-MM-DD)"
// @Param        limit       query     int     false  "Number of products (default 10)"
// @Success      200         {object}  response.Response{data=[]service.TopProductResponse}
// @Failure      500         {object}  response.Response
// @Router       /api/reports/top-products [get]
func (h *ReportHandler) TopProducts(c *gin.Context) {
	start, end, ok := dateRange(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	products, err := h.reportService.TopProducts(c.Request.Context(), start, end, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, products))
}

// PaymentBreakdown returns sales totals grouped by payment method
// @Summary      Payment breakdown
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        start_date  query     string  false  "Start date (YYYY-MM-DD)"
// @Param        end_date    query     string  false  "End date (YYYY-MM-DD)"
// @Success      200         {object}  response.Response{data=[]service.PaymentBreakdownResponse}
// @Failure      500         {object}  response.Response
// @Router       /api/reports/payments [get]
func (h *ReportHandler) PaymentBreakdown(c *gin.Context) {
	start, end, ok := dateRange(c)
	if !ok {
		return
	}

	breakdown, err := h.reportService.PaymentBreakdown(c.Request.Context(), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, breakdown))
}

// LowStock returns products at or below the low-stock threshold
// @Summary      Low stock products
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.ProductResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/reports/low-stock [get]
func (h *ReportHandler) LowStock(c *gin.Context) {
	products, err := h.reportService.LowStock(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, products))
}
