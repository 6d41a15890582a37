package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sayan2713/QR-Generator-Verify-System/config"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/handler"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/middleware"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the mirror reconciler",
	RunE:  runServe,
}

var serveNoReconcile bool

func init() {
	serveCmd.Flags().BoolVar(&serveNoReconcile, "no-reconcile", false, "do not run the mirror reconciler in this process")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	e := newServer(a)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Server.Port).Msg("Check-in service starting")
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	if !serveNoReconcile {
		g.Go(func() error {
			return a.reconciler().Start(gctx, cfg.Reconcile.Interval)
		})
	}

	err = g.Wait()
	log.Info().Msg("Check-in service stopped")
	return err
}

func newServer(a *app) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Validator = middleware.NewValidator()
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(echoMw.Recover())
	e.Use(echoMw.CORS())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "checkin"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	handler.NewEventHandler(a.events).RegisterRoutes(api.Group("/events"))
	handler.NewAttendeeHandler(a.register).RegisterRoutes(api.Group("/attendees"))
	handler.NewVerifyHandler(a.verify).RegisterRoutes(api.Group("/verify"))
	handler.NewMirrorHandler(a.register).RegisterRoutes(api.Group("/mirror"))
	return e
}
