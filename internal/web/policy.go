package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/KNICEX/oi-radar/internal/service/monitor"
	"github.com/KNICEX/oi-radar/internal/service/radar"
	"github.com/gin-gonic/gin"
)

// WithPolicyTuner enables runtime edits of the scoring policy through
// POST /api/config and POST /api/config/reset.
func WithPolicyTuner(tuner monitor.PolicyTuner) Option {
	return func(s *Server) {
		s.tuner = tuner
	}
}

type configResp struct {
	Config any           `json:"config"`
	Policy *radar.Policy `json:"policy,omitempty"`
}

func (s *Server) configRoutes(api *gin.RouterGroup) {
	api.GET("/config", s.getConfig)
	if s.tuner == nil {
		return
	}
	api.POST("/config", s.updatePolicy)
	api.POST("/config/reset", s.resetPolicy)
}

func (s *Server) getConfig(c *gin.Context) {
	resp := configResp{Config: s.view}
	if s.tuner != nil {
		p := s.tuner.Policy()
		resp.Policy = &p
	}
	c.JSON(http.StatusOK, resp)
}

// updatePolicy merges a partial policy document onto the current one.
// Fields the body omits keep their current values.
func (s *Server) updatePolicy(c *gin.Context) {
	s.policyMu.Lock()
	defer s.policyMu.Unlock()

	p := s.tuner.Policy()
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.tuner.SetPolicy(p); err != nil {
		if errors.Is(err, radar.ErrInvalidPolicy) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.logger.Error().Err(err).Msg("update policy failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update policy failed"})
		return
	}
	c.JSON(http.StatusOK, configResp{Config: s.view, Policy: &p})
}

func (s *Server) resetPolicy(c *gin.Context) {
	s.policyMu.Lock()
	defer s.policyMu.Unlock()

	p := s.tuner.ResetPolicy()
	c.JSON(http.StatusOK, configResp{Config: s.view, Policy: &p})
}
