package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"shopbill/internal/billing"
	"shopbill/internal/middleware"
	"shopbill/internal/model"
	"shopbill/internal/service"
	"shopbill/pkg/response"

	"github.com/gin-gonic/gin"
)

type BillHandler struct {
	billService service.BillService
}

func NewBillHandler(billService service.BillService) *BillHandler {
	return &BillHandler{billService: billService}
}

func (h *BillHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleStaff)

	bills := router.Group("/api/bills")
	{
		bills.POST("", staff, h.CreateBill)
		bills.GET("", staff, h.ListBills)
		bills.GET("/:id", staff, h.GetBill)
		bills.GET("/:id/print", staff, h.PrintBill)
		bills.POST("/:id/notify", staff, h.ResendNotification)

		// Public receipt page, authenticated by the opaque share token alone
		bills.GET("/shared/:token", h.GetSharedBill)
	}
}

// CreateBill validates the cart and raises a new bill
// @Summary      Create bill
// @Description  Validates the cart against stock, computes totals, decrements stock and notifies the customer
// @Tags         bills
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateBillRequest  true  "Create Bill Payload"
// @Success      201      {object}  response.Response{data=service.BillResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/bills [post]
func (h *BillHandler) CreateBill(c *gin.Context) {
	var req service.CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := c.Get("userID")
	userIDStr, _ := userID.(string)

	bill, warnings, err := h.billService.CreateBill(c.Request.Context(), req, userIDStr)
	if err != nil {
		var shortfall *billing.StockShortfallError
		if errors.As(err, &shortfall) {
			c.JSON(http.StatusConflict, response.ErrorWithData(http.StatusConflict, shortfall.Error(), map[string]interface{}{
				"shortfalls": shortfall.Shortfalls,
			}))
			return
		}
		// Empty carts and bad references are both client mistakes
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	if len(warnings) > 0 {
		c.JSON(http.StatusCreated, response.SuccessWithWarnings(http.StatusCreated, bill, warnings))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, bill))
}

// ListBills returns a paginated list of bills
// @Summary      List bills
// @Description  Retrieves bills filtered by bill number, client and date range
// @Tags         bills
// @Security     BearerAuth
// @Produce      json
// @Param        bill_number  query     string  false  "Partial bill number match"
// @Param        client_id    query     string  false  "Filter by client"
// @Param        start_date   query     string  false  "Start date (YYYY-MM-DD)"
// @Param        end_date     query     string  false  "End date (YYYY-MM-DD)"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=object}
// @Failure      500          {object}  response.Response
// @Router       /api/bills [get]
func (h *BillHandler) ListBills(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	filter := service.BillFilter{
		BillNumber: c.Query("bill_number"),
		ClientID:   c.Query("client_id"),
		Page:       page,
		Limit:      limit,
	}

	if start := c.Query("start_date"); start != "" {
		parsed, err := time.Parse("2006-01-02", start)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid start_date, expected YYYY-MM-DD"))
			return
		}
		filter.StartDate = &parsed
	}
	if end := c.Query("end_date"); end != "" {
		parsed, err := time.Parse("2006-01-02", end)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid end_date, expected YYYY-MM-DD"))
			return
		}
		// Inclusive through the end of the day
		endOfDay := parsed.Add(24*time.Hour - time.Nanosecond)
		filter.EndDate = &endOfDay
	}

	bills, total, err := h.billService.ListBills(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"bills": bills,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	}))
}

// GetBill returns one bill with its items
// @Summary      Get bill
// @Tags         bills
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Bill ID"
// @Success      200  {object}  response.Response{data=service.BillResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/bills/{id} [get]
func (h *BillHandler) GetBill(c *gin.Context) {
	bill, err := h.billService.GetBill(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, bill))
}

// PrintBill returns the receipt payload with shop identity and greeting
// @Summary      Get printable bill
// @Description  Returns the bill together with shop profile and a time-of-day greeting for the receipt view
// @Tags         bills
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Bill ID"
// @Success      200  {object}  response.Response{data=service.PrintableBill}
// @Failure      404  {object}  response.Response
// @Router       /api/bills/{id}/print [get]
func (h *BillHandler) PrintBill(c *gin.Context) {
	printable, err := h.billService.PrintBill(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, printable))
}

// ResendNotification re-sends the bill to the customer's channels
// @Summary      Resend bill notification
// @Tags         bills
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Bill ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/bills/{id}/notify [post]
func (h *BillHandler) ResendNotification(c *gin.Context) {
	warnings, err := h.billService.ResendNotification(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	if len(warnings) > 0 {
		c.JSON(http.StatusOK, response.SuccessWithWarnings(http.StatusOK, gin.H{"sent": false}, warnings))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"sent": true}))
}

// GetSharedBill serves the public receipt by share token
// @Summary      Get shared bill
// @Description  Public endpoint; the share token is the only credential
// @Tags         bills
// @Produce      json
// @Param        token  path      string  true  "Share token"
// @Success      200    {object}  response.Response{data=service.PrintableBill}
// @Failure      404    {object}  response.Response
// @Router       /api/bills/shared/{token} [get]
func (h *BillHandler) GetSharedBill(c *gin.Context) {
	printable, err := h.billService.GetBillByShareToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, printable))
}
