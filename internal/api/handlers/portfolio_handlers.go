package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/folio-service/folio_service/internal/domain/entities"
	"github.com/folio-service/folio_service/internal/domain/services/portfolio"
	"github.com/folio-service/folio_service/pkg/logger"
)

// PortfolioHandler handles portfolio lifecycle endpoints
type PortfolioHandler struct {
	portfolios *portfolio.Service
	logger     *logger.Logger
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(portfolios *portfolio.Service, logger *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{portfolios: portfolios, logger: logger}
}

// Create handles POST /api/v1/portfolios
// @Summary Create portfolio
// @Tags portfolios
// @Accept json
// @Produce json
// @Param request body entities.CreatePortfolioRequest true "Portfolio to create"
// @Success 201 {object} entities.Portfolio
// @Failure 400 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/portfolios [post]
func (h *PortfolioHandler) Create(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondUnauthorized(c, "authentication required")
		return
	}

	var req entities.CreatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error(), nil)
		return
	}

	p, err := h.portfolios.Create(c.Request.Context(), userID, req)
	if err != nil {
		h.logger.WithContext(c.Request.Context()).WithError(err).Errorw("create portfolio failed")
		respondFromError(c, err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

// Get handles GET /api/v1/portfolios/:id
// @Summary Get portfolio
// @Tags portfolios
// @Produce json
// @Param id path string true "Portfolio ID"
// @Success 200 {object} entities.Portfolio
// @Failure 404 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/portfolios/{id} [get]
func (h *PortfolioHandler) Get(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondUnauthorized(c, "authentication required")
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.portfolios.GetOwned(c.Request.Context(), id, userID)
	if err != nil {
		respondFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// List handles GET /api/v1/portfolios
// @Summary List portfolios
// @Tags portfolios
// @Produce json
// @Success 200 {array} entities.Portfolio
// @Security BearerAuth
// @Router /api/v1/portfolios [get]
func (h *PortfolioHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondUnauthorized(c, "authentication required")
		return
	}

	portfolios, err := h.portfolios.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		h.logger.WithContext(c.Request.Context()).WithError(err).Errorw("list portfolios failed")
		respondFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"portfolios": portfolios})
}

// Delete handles DELETE /api/v1/portfolios/:id
// @Summary Delete portfolio
// @Tags portfolios
// @Param id path string true "Portfolio ID"
// @Success 204
// @Failure 404 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/portfolios/{id} [delete]
func (h *PortfolioHandler) Delete(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondUnauthorized(c, "authentication required")
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.portfolios.Delete(c.Request.Context(), id, userID); err != nil {
		respondFromError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
