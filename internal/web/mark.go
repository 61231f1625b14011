package web

import (
	"net/http"
	"time"

	"github.com/KNICEX/oi-radar/internal/entity"
	"github.com/KNICEX/oi-radar/internal/repo"
	"github.com/KNICEX/oi-radar/internal/service/exchange"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// WithSymbolRepo enables the symbol mark routes. Ignore marks are applied
// the next time the scan universe is resolved.
func WithSymbolRepo(symbols repo.SymbolRepo) Option {
	return func(s *Server) {
		s.symbols = symbols
	}
}

type markReq struct {
	Mark string `json:"mark"`
}

type markResp struct {
	Symbol    string    `json:"symbol"`
	Mark      string    `json:"mark"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Server) markRoutes(api *gin.RouterGroup) {
	if s.symbols == nil {
		return
	}
	api.GET("/marks", s.listMarks)
	api.PUT("/mark/:symbol", s.putMark)
}

func (s *Server) listMarks(c *gin.Context) {
	mark := c.DefaultQuery("mark", entity.MarkIgnore)
	symbols, err := s.symbols.FindByMark(c.Request.Context(), mark)
	if err != nil {
		s.logger.Error().Err(err).Str("mark", mark).Msg("find marked symbols failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "find marked symbols failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbols": lo.Map(symbols, func(sym entity.Symbol, _ int) markResp {
		return markResp{Symbol: sym.Name, Mark: sym.Mark, UpdatedAt: sym.UpdatedAt}
	})})
}

func (s *Server) putMark(c *gin.Context) {
	var req markReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !lo.Contains([]string{"", entity.MarkIgnore, entity.MarkFavorite}, req.Mark) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown mark " + req.Mark})
		return
	}
	pair, err := exchange.ParseTradingPair(c.Param("symbol"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sym := entity.Symbol{
		Name:  pair.ToString(),
		Base:  pair.Base,
		Quote: pair.Quote,
		Mark:  req.Mark,
	}
	if err = s.symbols.Mark(c.Request.Context(), sym); err != nil {
		s.logger.Error().Err(err).Str("symbol", sym.Name).Msg("mark symbol failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mark symbol failed"})
		return
	}
	s.logger.Info().Str("symbol", sym.Name).Str("mark", sym.Mark).Msg("symbol marked")
	c.JSON(http.StatusOK, markResp{Symbol: sym.Name, Mark: sym.Mark})
}
