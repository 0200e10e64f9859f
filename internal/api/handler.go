package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/CodeWithFin/warehouse-inventory/internal/ledger"
	"github.com/CodeWithFin/warehouse-inventory/internal/service"
	"github.com/CodeWithFin/warehouse-inventory/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	inventoryService *service.InventoryService
}

// NewHandler creates a new HTTP handler
func NewHandler(inventoryService *service.InventoryService) *Handler {
	return &Handler{
		inventoryService: inventoryService,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.GET("/products/:id/stock", h.getStockSnapshot)
		v1.GET("/products/:id/verify", h.verifyProduct)
		v1.POST("/products/:id/adjustments", h.adjustStock)
		v1.GET("/products/:id/adjustments", h.getHistory)
		v1.GET("/adjustments", h.recentActivity)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// listProducts returns all products with derived stock statuses
func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.inventoryService.ListProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list products",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// getProduct returns one product with its batches in expiry order
func (h *Handler) getProduct(c *gin.Context) {
	detail, err := h.inventoryService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Product not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, detail)
}

// getStockSnapshot returns the cached quantity and status fast path
func (h *Handler) getStockSnapshot(c *gin.Context) {
	snapshot, err := h.inventoryService.GetStockSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Product not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// verifyProduct reports whether quantity matches the batch sum
func (h *Handler) verifyProduct(c *gin.Context) {
	ok, err := h.inventoryService.VerifyProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Product not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id": c.Param("id"),
		"reconciled": ok,
	})
}

// adjustStock applies one stock adjustment
func (h *Handler) adjustStock(c *gin.Context) {
	var req service.AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.inventoryService.AdjustStock(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		c.JSON(adjustmentStatusCode(err), gin.H{
			"error":   "Adjustment rejected",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// getHistory returns a product's adjustment history
func (h *Handler) getHistory(c *gin.Context) {
	history, err := h.inventoryService.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load adjustment history",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id":  c.Param("id"),
		"adjustments": history,
	})
}

// recentActivity returns the latest adjustments across all products
func (h *Handler) recentActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	records, err := h.inventoryService.RecentActivity(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load recent adjustments",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"adjustments": records})
}

// adjustmentStatusCode maps ledger validation failures to HTTP codes so the
// caller can present an actionable message.
func adjustmentStatusCode(err error) int {
	switch {
	case errors.Is(err, ledger.ErrBatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrDuplicateBatchID),
		errors.Is(err, service.ErrAdjustmentInFlight):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientStock),
		errors.Is(err, ledger.ErrInsufficientBatchQuantity),
		errors.Is(err, ledger.ErrInvalidQuantity),
		errors.Is(err, ledger.ErrInvalidThreshold):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
