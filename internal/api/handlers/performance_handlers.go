package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/folio-service/folio_service/internal/domain/entities"
	"github.com/folio-service/folio_service/internal/domain/services/performance"
	"github.com/folio-service/folio_service/internal/domain/services/portfolio"
	"github.com/folio-service/folio_service/pkg/logger"
)

// PerformanceHandler handles performance endpoints
type PerformanceHandler struct {
	performance *performance.Service
	portfolios  *portfolio.Service
	recalcs     RecalculationQueue
	logger      *logger.Logger
}

// RecalculationQueue accepts asynchronous backfill requests
type RecalculationQueue interface {
	PublishTransactionMutation(event entities.TransactionMutationEvent)
}

// NewPerformanceHandler creates a new performance handler
func NewPerformanceHandler(perf *performance.Service, portfolios *portfolio.Service, recalcs RecalculationQueue, logger *logger.Logger) *PerformanceHandler {
	return &PerformanceHandler{
		performance: perf,
		portfolios:  portfolios,
		recalcs:     recalcs,
		logger:      logger,
	}
}

// parseDateRange reads optional from/to query parameters.
func parseDateRange(c *gin.Context) (time.Time, time.Time, bool) {
	var from, to time.Time
	var err error
	if raw := c.Query("from"); raw != "" {
		from, err = time.Parse("2006-01-02", raw)
		if err != nil {
			respondBadRequest(c, "invalid from date, expected YYYY-MM-DD", nil)
			return from, to, false
		}
	}
	if raw := c.Query("to"); raw != "" {
		to, err = time.Parse("2006-01-02", raw)
		if err != nil {
			respondBadRequest(c, "invalid to date, expected YYYY-MM-DD", nil)
			return from, to, false
		}
	}
	return from, to, true
}

// Daily handles GET /api/v1/portfolios/:id/performance/daily
// @Summary Daily performance series
// @Tags performance
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {array} entities.DailyPerformance
// @Security BearerAuth
// @Router /api/v1/portfolios/{id}/performance/daily [get]
func (h *PerformanceHandler) Daily(c *gin.Context) {
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
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}

	series, err := h.performance.GetDailyPerformance(c.Request.Context(), portfolioID, from, to)
	if err != nil {
		h.logger.WithContext(c.Request.Context()).WithError(err).Errorw("daily performance failed",
			"portfolio_id", portfolioID.String(),
		)
		respondFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"performance": series})
}

// Cumulative handles GET /api/v1/portfolios/:id/performance/cumulative
// @Summary Cumulative return
// @Description Geometrically linked return over the range; exclude_cash strips cash from the equity base
// @Tags performance
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param exclude_cash query bool false "Compute over invested equity only"
// @Success 200 {object} entities.CumulativeReturnResponse
// @Security BearerAuth
// @Router /api/v1/portfolios/{id}/performance/cumulative [get]
func (h *PerformanceHandler) Cumulative(c *gin.Context) {
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
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	excludeCash := c.Query("exclude_cash") == "true"

	value, err := h.performance.GetCumulativeReturn(c.Request.Context(), portfolioID, from, to, excludeCash)
	if err != nil {
		respondFromError(c, err)
		return
	}

	resp := entities.CumulativeReturnResponse{
		PortfolioID:      portfolioID.String(),
		ExcludeCash:      excludeCash,
		CumulativeReturn: value,
	}
	if !from.IsZero() {
		resp.From = from.Format("2006-01-02")
	}
	if !to.IsZero() {
		resp.To = to.Format("2006-01-02")
	}
	c.JSON(http.StatusOK, resp)
}

// Snapshot handles POST /api/v1/portfolios/:id/performance/snapshot
// @Summary Compute one day's snapshot
// @Description Synchronously computes and stores the snapshot for a single day; fails if a held ticker has no close price
// @Tags performance
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param date query string true "Snapshot date (YYYY-MM-DD)"
// @Success 200 {object} entities.DailyPerformance
// @Failure 422 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/portfolios/{id}/performance/snapshot [post]
func (h *PerformanceHandler) Snapshot(c *gin.Context) {
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

	day, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		respondBadRequest(c, "invalid date, expected YYYY-MM-DD", nil)
		return
	}

	snap, err := h.performance.CalculateDailySnapshot(c.Request.Context(), portfolioID, day)
	if err != nil {
		respondFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

// Recalculate handles POST /api/v1/portfolios/:id/performance/recalculate
// @Summary Trigger snapshot rebuild
// @Description Asynchronously rebuilds all snapshots from the start date through today
// @Tags performance
// @Accept json
// @Param id path string true "Portfolio ID"
// @Param request body entities.RecalculateRequest true "Rebuild start date"
// @Success 202
// @Security BearerAuth
// @Router /api/v1/portfolios/{id}/performance/recalculate [post]
func (h *PerformanceHandler) Recalculate(c *gin.Context) {
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

	var req entities.RecalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error(), nil)
		return
	}

	h.recalcs.PublishTransactionMutation(entities.TransactionMutationEvent{
		PortfolioID:     portfolioID,
		TransactionDate: req.StartDate,
	})

	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "request_id": getRequestID(c)})
}
