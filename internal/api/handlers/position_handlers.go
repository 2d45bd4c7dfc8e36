package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/folio-service/folio_service/internal/domain/services/portfolio"
	"github.com/folio-service/folio_service/internal/domain/services/position"
	"github.com/folio-service/folio_service/pkg/logger"
)

// PositionHandler handles position endpoints
type PositionHandler struct {
	positions  *position.Service
	portfolios *portfolio.Service
	logger     *logger.Logger
}

// NewPositionHandler creates a new position handler
func NewPositionHandler(positions *position.Service, portfolios *portfolio.Service, logger *logger.Logger) *PositionHandler {
	return &PositionHandler{
		positions:  positions,
		portfolios: portfolios,
		logger:     logger,
	}
}

// List handles GET /api/v1/portfolios/:id/positions
// @Summary List positions
// @Description Returns current positions with latest close and market value where available
// @Tags positions
// @Produce json
// @Param id path string true "Portfolio ID"
// @Success 200 {array} entities.PricedPosition
// @Failure 404 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/portfolios/{id}/positions [get]
func (h *PositionHandler) List(c *gin.Context) {
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

	priced, err := h.positions.ListPriced(c.Request.Context(), portfolioID)
	if err != nil {
		h.logger.WithContext(c.Request.Context()).WithError(err).Errorw("list positions failed",
			"portfolio_id", portfolioID.String(),
		)
		respondFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"positions": priced})
}
