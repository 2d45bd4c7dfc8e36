package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/folio-service/folio_service/internal/domain/entities"
	"github.com/folio-service/folio_service/internal/domain/services/ledger"
	"github.com/folio-service/folio_service/internal/domain/services/portfolio"
	"github.com/folio-service/folio_service/pkg/logger"
)

// TransactionHandler handles ledger endpoints
type TransactionHandler struct {
	ledger     *ledger.Service
	portfolios *portfolio.Service
	logger     *logger.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(ledgerSvc *ledger.Service, portfolios *portfolio.Service, logger *logger.Logger) *TransactionHandler {
	return &TransactionHandler{
		ledger:     ledgerSvc,
		portfolios: portfolios,
		logger:     logger,
	}
}

// Create handles POST /api/v1/portfolios/:id/transactions
// @Summary Record transaction
// @Description Records a ledger entry; non-CASH trades get a mirrored CASH leg
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param request body entities.CreateTransactionRequest true "Transaction to record"
// @Success 201 {object} entities.Transaction
// @Failure 400 {object} entities.ErrorResponse
// @Failure 422 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/portfolios/{id}/transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondUnauthorized(c, "authentication required")
		return
	}
	portfolioID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if _, err := h.portfolios.GetOwned(c.Request.Context(), portfolioID, userID); err != nil {
		respondFromError(c, err)
		return
	}

	var req entities.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error(), nil)
		return
	}

	txn, err := h.ledger.CreateTransaction(c.Request.Context(), portfolioID, ledger.CreateTransactionInput{
		Type:            req.Type,
		Ticker:          req.Ticker,
		Quantity:        req.Quantity,
		Price:           req.Price,
		TransactionDate: req.TransactionDate,
	})
	if err != nil {
		h.logger.WithContext(c.Request.Context()).WithError(err).Warnw("create transaction rejected",
			"portfolio_id", portfolioID.String(),
		)
		respondFromError(c, err)
		return
	}

	c.JSON(http.StatusCreated, txn)
}

// List handles GET /api/v1/portfolios/:id/transactions
// @Summary List transactions
// @Tags transactions
// @Produce json
// @Param id path string true "Portfolio ID"
// @Success 200 {array} entities.Transaction
// @Security BearerAuth
// @Router /api/v1/portfolios/{id}/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondUnauthorized(c, "authentication required")
		return
	}
	portfolioID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if _, err := h.portfolios.GetOwned(c.Request.Context(), portfolioID, userID); err != nil {
		respondFromError(c, err)
		return
	}

	txns, err := h.ledger.ListTransactions(c.Request.Context(), portfolioID)
	if err != nil {
		respondFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

// Delete handles DELETE /api/v1/portfolios/:id/transactions/:txnId
// @Summary Delete transaction
// @Description Deletes a ledger entry and its mirrored CASH leg, if any
// @Tags transactions
// @Param id path string true "Portfolio ID"
// @Param txnId path string true "Transaction ID"
// @Success 204
// @Failure 404 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/portfolios/{id}/transactions/{txnId} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondUnauthorized(c, "authentication required")
		return
	}
	portfolioID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	txnID, ok := pathUUID(c, "txnId")
	if !ok {
		return
	}
	if _, err := h.portfolios.GetOwned(c.Request.Context(), portfolioID, userID); err != nil {
		respondFromError(c, err)
		return
	}

	if err := h.ledger.DeleteTransaction(c.Request.Context(), txnID, portfolioID); err != nil {
		respondFromError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
