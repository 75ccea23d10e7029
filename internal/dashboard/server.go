// Package dashboard serves a read-only status page over HTTP: live
// per-session relay state plus recent history.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/heliograph/internal/history"
)

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	StateRoot string // root directory holding per-session state dirs
	Recorder  *history.Recorder // optional; history endpoints 404 when nil
	Addr      string
	Out       io.Writer
}

// Start launches the dashboard HTTP server. It blocks until ctx is
// cancelled, then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.StateRoot == "" {
		return fmt.Errorf("dashboard: state root is required")
	}
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:7667"
	}

	router := buildRouter(opts)
	srv := &http.Server{
		Addr:    opts.Addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard running at http://%s\n", opts.Addr)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// buildRouter assembles the Gin router. Split out for tests.
func buildRouter(opts StartOpts) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", handleIndex(opts))
	router.GET("/api/sessions", handleSessions(opts.StateRoot))
	router.GET("/api/prompts", handlePrompts(opts.Recorder))
	router.GET("/api/inbox", handleInbox(opts.Recorder))
	return router
}
