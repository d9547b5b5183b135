package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"launchpad/internal/query"
)

type queryHandler struct {
	svc *query.Service
	log zerolog.Logger
}

// RegisterQueryRoutes binds the read-side routes backed by Postgres. They are
// registered separately from the settlement routes because the event log is
// optional infrastructure; a service running without it simply omits them.
func RegisterQueryRoutes(r *gin.Engine, svc *query.Service, log zerolog.Logger) {
	q := &queryHandler{svc: svc, log: log}

	r.GET("/events", q.handleListEvents)
	r.GET("/integrity", q.handleIntegrity)
	r.GET("/sales/:asset/snapshot", q.handleGetSnapshot)
}

func (q *queryHandler) handleListEvents(c *gin.Context) {
	after, err := strconv.ParseInt(c.DefaultQuery("after", "-1"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid after parameter"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
		return
	}

	events, err := q.svc.Events(c.Request.Context(), c.Query("asset"), after, limit)
	if err != nil {
		q.log.Error().Err(err).Msg("event query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

func (q *queryHandler) handleIntegrity(c *gin.Context) {
	report, err := q.svc.VerifyIntegrity(c.Request.Context())
	if err != nil {
		q.log.Error().Err(err).Msg("integrity check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleGetSnapshot serves the persisted snapshot of a sale, which may trail
// the live record served by the settlement routes.
func (q *queryHandler) handleGetSnapshot(c *gin.Context) {
	rec, err := q.svc.Sale(c.Request.Context(), c.Param("asset"))
	if err != nil {
		h := handler{log: q.log}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
