package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pedro-hbl/fraudshield-stream/internal/alerts"
	"github.com/pedro-hbl/fraudshield-stream/internal/stream"
	"github.com/pedro-hbl/fraudshield-stream/pkg/transactions"
)

type connectionRequest struct {
	Connected *bool `json:"connected" binding:"required"`
}

type soundRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func statusBody(status stream.Status) gin.H {
	return gin.H{
		"status": status,
		"label":  status.Label(),
	}
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, statusBody(s.pipeline.Status()))
}

func (s *Server) handleTransactions(c *gin.Context) {
	term := c.Query("search")

	var txs []transactions.Transaction
	if term == "" {
		txs = s.pipeline.Transactions()
	} else {
		txs = s.pipeline.Search(term)
	}
	if txs == nil {
		txs = []transactions.Transaction{}
	}

	c.JSON(http.StatusOK, gin.H{
		"search":       term,
		"transactions": txs,
		"count":        len(txs),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.pipeline.Stats())
}

func (s *Server) handleConnection(c *gin.Context) {
	var req connectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "body must be {\"connected\": true|false}",
		})
		return
	}

	if err := s.pipeline.SetConnected(*req.Connected); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	body := statusBody(s.pipeline.Status())
	body["success"] = true
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleSound(c *gin.Context) {
	var req soundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "body must be {\"enabled\": true|false}",
		})
		return
	}

	s.prefs.SetSound(*req.Enabled)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"sound":   *req.Enabled,
	})
}

func (s *Server) handleDesktopToggle(c *gin.Context) {
	enabled, err := s.prefs.ToggleDesktop(c.Request.Context())
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, alerts.ErrPreferenceUnavailable) {
			code = http.StatusConflict
		}
		c.JSON(code, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"desktop": enabled,
	})
}

func (s *Server) handleSimulate(c *gin.Context) {
	var in transactions.SimulationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	result, err := transactions.Simulate(in)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, result)
}
