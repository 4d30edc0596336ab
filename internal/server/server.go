package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/handler"
	"storefront/internal/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Routes is anything that mounts itself on the router.
type Routes interface {
	RegisterRoutes(e *echo.Echo, guards handler.Guards)
}

// PublicRoutes mount without any auth chain.
type PublicRoutes interface {
	RegisterRoutes(e *echo.Echo)
}

type Options struct {
	Addr           string
	AllowedOrigins []string
}

type Server struct {
	echo *echo.Echo
	http *http.Server
	log  *logrus.Logger
}

// New builds the echo router with the shared middleware and error handler,
// mounts the given routes and wraps the lot in CORS.
func New(opts Options, log *logrus.Logger, guards handler.Guards, public []PublicRoutes, routes ...Routes) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(log)

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	e.Use(securityHeaders)
	e.Use(echomw.BodyLimit("1M"))

	for _, r := range public {
		r.RegisterRoutes(e)
	}
	for _, r := range routes {
		r.RegisterRoutes(e, guards)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderXRequestID},
		ExposedHeaders:   []string{echo.HeaderXRequestID, echo.HeaderContentDisposition},
		AllowCredentials: true,
	})

	return &Server{
		echo: e,
		log:  log,
		http: &http.Server{
			Addr:              opts.Addr,
			Handler:           c.Handler(e),
			ReadTimeout:       7 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
			ReadHeaderTimeout: 2 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler { return s.http.Handler }

// Run serves until SIGINT/SIGTERM or ctx is done, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.http.Addr).Info("server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutdown signal received, draining")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("server stopped")
	return nil
}

func securityHeaders(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Response().Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		return next(c)
	}
}
