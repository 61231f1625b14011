package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/KNICEX/oi-radar/internal/repo"
	"github.com/KNICEX/oi-radar/internal/service/monitor"
	"github.com/KNICEX/oi-radar/internal/service/radar"
	"github.com/gin-gonic/gin"
)

type listAlertsReq struct {
	Symbol     string `form:"symbol"`
	Verdict    string `form:"verdict"`
	MinVerdict string `form:"min_verdict"`
	Since      int64  `form:"since"` // unix ms, inclusive
	Until      int64  `form:"until"` // unix ms, inclusive
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

type listAlertsResp struct {
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
	Alerts []radar.Alert `json:"alerts"`
}

type symbolResp struct {
	Symbol string        `json:"symbol"`
	Phase  monitor.Phase `json:"phase"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.status.Snapshot())
}

func (s *Server) getSymbols(c *gin.Context) {
	phases := s.radar.Phases()
	symbols := s.radar.Symbols()
	res := make([]symbolResp, 0, len(symbols))
	for _, symbol := range symbols {
		res = append(res, symbolResp{Symbol: symbol, Phase: phases[symbol]})
	}
	c.JSON(http.StatusOK, gin.H{"symbols": res})
}

func (s *Server) listAlerts(c *gin.Context) {
	var req listAlertsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q, err := req.toQuery()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	alerts, err := s.alerts.Query(ctx, q)
	if err != nil {
		s.logger.Error().Err(err).Msg("query alerts failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query alerts failed"})
		return
	}
	total, err := s.alerts.Count(ctx, q)
	if err != nil {
		s.logger.Error().Err(err).Msg("count alerts failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count alerts failed"})
		return
	}
	c.JSON(http.StatusOK, listAlertsResp{
		Total:  total,
		Limit:  q.Limit,
		Offset: q.Offset,
		Alerts: alerts,
	})
}

func (s *Server) getAlert(c *gin.Context) {
	alert, err := s.alerts.FindByID(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, repo.ErrAlertNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
	case err != nil:
		s.logger.Error().Err(err).Str("alert_id", c.Param("id")).Msg("find alert failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "find alert failed"})
	default:
		c.JSON(http.StatusOK, alert)
	}
}

func (r listAlertsReq) toQuery() (repo.AlertQuery, error) {
	if r.Limit < 0 || r.Offset < 0 {
		return repo.AlertQuery{}, errors.New("limit and offset must not be negative")
	}
	q := repo.AlertQuery{
		Symbol: r.Symbol,
		Limit:  r.Limit,
		Offset: r.Offset,
	}
	if q.Limit == 0 {
		q.Limit = repo.DefaultQueryLimit
	}
	q.Limit = min(q.Limit, repo.MaxQueryLimit)
	if r.Verdict != "" {
		v, err := radar.ParseVerdict(r.Verdict)
		if err != nil {
			return repo.AlertQuery{}, err
		}
		q.Verdict = &v
	}
	if r.MinVerdict != "" {
		v, err := radar.ParseVerdict(r.MinVerdict)
		if err != nil {
			return repo.AlertQuery{}, err
		}
		q.MinVerdict = v
	}
	if r.Since > 0 {
		q.Since = time.UnixMilli(r.Since)
	}
	if r.Until > 0 {
		q.Until = time.UnixMilli(r.Until)
	}
	if !q.Since.IsZero() && !q.Until.IsZero() && q.Until.Before(q.Since) {
		return repo.AlertQuery{}, errors.New("until is before since")
	}
	return q, nil
}
