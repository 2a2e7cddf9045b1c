package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func sinceParam(c *gin.Context) time.Time {
	days := queryInt(c, "days")
	if days <= 0 {
		days = 30
	}
	return time.Now().AddDate(0, 0, -days)
}

func (s *Server) analyticsSummary(c *gin.Context) {
	summary, err := s.svc.Analytics.Summary(c.Request.Context(), sinceParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (s *Server) dailyRevenue(c *gin.Context) {
	buckets, err := s.svc.Analytics.DailyRevenue(c.Request.Context(), sinceParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revenue": buckets})
}

func (s *Server) topProducts(c *gin.Context) {
	products, err := s.svc.Analytics.TopProducts(c.Request.Context(), int64(queryInt(c, "limit")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}
