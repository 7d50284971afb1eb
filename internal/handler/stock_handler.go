package handler

import (
	"net/http"
	"strconv"
	"time"

	"shopbill/internal/middleware"
	"shopbill/internal/model"
	"shopbill/internal/service"
	"shopbill/pkg/pagination"
	"shopbill/pkg/response"

	"github.com/gin-gonic/gin"
)

type StockHandler struct {
	stockHistory service.StockHistoryService
}

func NewStockHandler(stockHistory service.StockHistoryService) *StockHandler {
	return &StockHandler{stockHistory: stockHistory}
}

func (h *StockHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleStaff)
	admin := middleware.RequireRole(model.RoleAdmin)

	stock := router.Group("/api/stock")
	{
		stock.GET("/history", staff, h.ListMovements)
		stock.DELETE("/history", admin, h.ClearHistory)
		stock.POST("/history/archive", admin, h.ArchiveOldMovements)
	}
}

// ListMovements returns the stock movement log
// @Summary      List stock movements
// @Tags         stock
// @Security     BearerAuth
// @Produce      json
// @Param        product_id  query     string  false  "Filter by product"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 20, max 100)"
// @Success      200         {object}  response.Response{data=object}
// @Failure      500         {object}  response.Response
// @Router       /api/stock/history [get]
func (h *StockHandler) ListMovements(c *gin.Context) {
	params := pagination.Parse(c)

	logs, total, err := h.stockHistory.ListMovements(c.Request.Context(), c.Query("product_id"), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"movements": logs,
		"total":     total,
		"page":      params.Page,
		"limit":     params.Limit,
	}))
}

// ClearHistory wipes the stock movement log
// @Summary      Clear stock history
// @Description  Deletes all hot stock movement entries; archived rows are untouched
// @Tags         stock
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /api/stock/history [delete]
func (h *StockHandler) ClearHistory(c *gin.Context) {
	userID, _ := c.Get("userID")
	userIDStr, _ := userID.(string)

	deleted, err := h.stockHistory.ClearHistory(c.Request.Context(), userIDStr)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": deleted}))
}

// ArchiveOldMovements rotates old movements into the archive table
// @Summary      Archive old stock movements
// @Description  Moves entries older than the given number of days (default 30) into the archive table
// @Tags         stock
// @Security     BearerAuth
// @Produce      json
// @Param        days  query     int  false  "Retention window in days (default 30)"
// @Success      200   {object}  response.Response
// @Failure      500   {object}  response.Response
// @Router       /api/stock/history/archive [post]
func (h *StockHandler) ArchiveOldMovements(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	if days <= 0 {
		days = 30
	}

	archived, err := h.stockHistory.ArchiveOldMovements(c.Request.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"archived": archived}))
}
