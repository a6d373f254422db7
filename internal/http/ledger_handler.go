package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"finance-tracker/internal/service"
)

// LedgerHandler mantiene dependencias para endpoints de gastos y categorias.
type LedgerHandler struct {
	logger *zap.Logger
	ledger *service.LedgerService
}

// NewLedgerHandler crea una instancia de LedgerHandler con dependencias necesarias.
func NewLedgerHandler(logger *zap.Logger, ledger *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		logger: logger,
		ledger: ledger,
	}
}

// amount acepta tanto numeros como strings numericos ("12.50").
type amount float64

func (a *amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return err
		}
		*a = amount(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = amount(v)
	return nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}

// CreateExpense maneja POST /expense.
func (h *LedgerHandler) CreateExpense(c *gin.Context) {
	var req struct {
		Amount      amount `json:"amount" binding:"required"`
		Currency    string `json:"currency"`
		Category    string `json:"category" binding:"required"`
		Description string `json:"description"`
		Type        string `json:"type"`
		Date        string `json:"date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create expense request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request"})
		return
	}
	occurredAt, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid date"})
		return
	}

	owner, _ := GetIdentity(c)
	expense, err := h.ledger.CreateExpense(c.Request.Context(), owner, service.CreateExpenseInput{
		Amount:      float64(req.Amount),
		Currency:    req.Currency,
		Category:    req.Category,
		Description: req.Description,
		Type:        req.Type,
		OccurredAt:  occurredAt,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid expense"})
			return
		}
		h.logger.Error("create expense failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not create expense"})
		return
	}

	c.JSON(http.StatusCreated, expense)
}

// ListExpenses maneja GET /expenses.
func (h *LedgerHandler) ListExpenses(c *gin.Context) {
	owner, _ := GetIdentity(c)
	expenses, err := h.ledger.ListExpenses(c.Request.Context(), owner)
	if err != nil {
		h.logger.Error("list expenses failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not list expenses"})
		return
	}
	c.JSON(http.StatusOK, expenses)
}

// DeleteExpense maneja DELETE /expenses/:id.
func (h *LedgerHandler) DeleteExpense(c *gin.Context) {
	owner, _ := GetIdentity(c)
	if err := h.ledger.DeleteExpense(c.Request.Context(), owner, c.Param("id")); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Expense not found"})
			return
		}
		h.logger.Error("delete expense failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not delete expense"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted"})
}

// CreateCategory maneja POST /categories.
func (h *LedgerHandler) CreateCategory(c *gin.Context) {
	var req struct {
		Category string `json:"category" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create category request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request"})
		return
	}

	owner, _ := GetIdentity(c)
	category, err := h.ledger.CreateCategory(c.Request.Context(), owner, req.Category)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateCategory):
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Category already exists"})
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid category"})
		default:
			h.logger.Error("create category failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not create category"})
		}
		return
	}
	c.JSON(http.StatusCreated, category)
}

// ListCategories maneja GET /categories.
func (h *LedgerHandler) ListCategories(c *gin.Context) {
	owner, _ := GetIdentity(c)
	categories, err := h.ledger.ListCategories(c.Request.Context(), owner)
	if err != nil {
		h.logger.Error("list categories failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not list categories"})
		return
	}
	names := make([]string, 0, len(categories))
	for _, cat := range categories {
		names = append(names, cat.Name)
	}
	c.JSON(http.StatusOK, names)
}

// DeleteCategory maneja DELETE /categories/:name.
func (h *LedgerHandler) DeleteCategory(c *gin.Context) {
	owner, _ := GetIdentity(c)
	if err := h.ledger.DeleteCategory(c.Request.Context(), owner, c.Param("name")); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Category not found"})
			return
		}
		h.logger.Error("delete category failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not delete category"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}
