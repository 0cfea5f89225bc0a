package service

import (
	"encoding/json"
	"fmt"
	"sync"

	"mqbridge/src/internal/auth"
	"mqbridge/src/internal/config"

	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
)

// StatusServer exposes the read-only status and health endpoints.
type StatusServer struct {
	config        *config.StatusConfig
	bridge        *Bridge
	authenticator *auth.Authenticator
	server        *fasthttp.Server
	logger        *log.Logger
	wg            sync.WaitGroup
}

// NewStatusServer creates the status server for a bridge.
func NewStatusServer(cfg *config.StatusConfig, bridge *Bridge, logger *log.Logger) (*StatusServer, error) {
	authenticator, err := auth.New(cfg.Auth, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}

	return &StatusServer{
		config:        cfg,
		bridge:        bridge,
		authenticator: authenticator,
		logger:        logger,
	}, nil
}

// Start begins serving in the background.
func (s *StatusServer) Start() error {
	s.server = &fasthttp.Server{
		Handler:          s.requestHandler,
		CloseOnShutdown:  true,
		DisableKeepalive: false,
	}

	addr := fmt.Sprintf(":%d", s.config.Port)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.ListenAndServe(addr); err != nil {
			s.logger.Error("msg", "Status server stopped",
				"component", "status_server",
				"error", err)
		}
	}()

	s.logger.Info("msg", "Status server started",
		"component", "status_server",
		"port", s.config.Port)
	return nil
}

// Stop shuts the server down.
func (s *StatusServer) Stop() {
	if s.server != nil {
		if err := s.server.Shutdown(); err != nil {
			s.logger.Warn("msg", "Status server shutdown error",
				"component", "status_server",
				"error", err)
		}
	}
	s.wg.Wait()
}

func (s *StatusServer) requestHandler(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/healthz":
		s.handleHealth(ctx)
	case "/status":
		s.handleStatus(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

// handleHealth reports bus connectivity; it is intentionally unauthenticated
// so liveness probes keep working with auth enabled.
func (s *StatusServer) handleHealth(ctx *fasthttp.RequestCtx) {
	if s.bridge.Status().BusConnected {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
		return
	}
	ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
	ctx.SetBodyString("bus disconnected")
}

func (s *StatusServer) handleStatus(ctx *fasthttp.RequestCtx) {
	if s.authenticator != nil {
		authHeader := string(ctx.Request.Header.Peek("Authorization"))
		if !s.authenticator.Check(authHeader, ctx.RemoteAddr().String()) {
			ctx.Response.Header.Set("WWW-Authenticate", `Basic realm="mqbridge"`)
			ctx.SetStatusCode(fasthttp.StatusUnauthorized)
			return
		}
	}

	payload := map[string]any{
		"status": s.bridge.Status(),
		"stats":  s.bridge.GetStats(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("msg", "Failed to encode status",
			"component", "status_server",
			"error", err)
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}
