// Package web serves the monitor over a JSON API for the dashboard front end.
package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pedro-hbl/fraudshield-stream/internal/stream"
	"github.com/pedro-hbl/fraudshield-stream/pkg/transactions"
)

// Pipeline is the part of stream.Monitor the API exposes
type Pipeline interface {
	Status() stream.Status
	Transactions() []transactions.Transaction
	Search(term string) []transactions.Transaction
	SetConnected(connected bool) error
	Stats() stream.Stats
}

// Preferences applies the alert toggles
type Preferences interface {
	SetSound(enabled bool)
	ToggleDesktop(ctx context.Context) (bool, error)
}

// Server is the FraudShield web server
type Server struct {
	pipeline Pipeline
	prefs    Preferences
	router   *gin.Engine
}

// NewServer creates a new web server
func NewServer(pipeline Pipeline, prefs Preferences) *Server {
	router := gin.Default()

	s := &Server{
		pipeline: pipeline,
		prefs:    prefs,
		router:   router,
	}

	api := router.Group("/api")
	{
		api.GET("/status", s.handleStatus)
		api.GET("/transactions", s.handleTransactions)
		api.GET("/stats", s.handleStats)
		api.POST("/connection", s.handleConnection)
		api.PUT("/preferences/sound", s.handleSound)
		api.POST("/preferences/desktop/toggle", s.handleDesktopToggle)
		api.POST("/simulate", s.handleSimulate)
	}

	return s
}

// Handler returns the HTTP handler for embedding or testing
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Serving FraudShield API on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}
	return nil
}
