package api

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/camnode/camnode/internal/api/models"
	"github.com/camnode/camnode/internal/cameras"
	"github.com/camnode/camnode/internal/devices"
	"github.com/camnode/camnode/internal/events"
	"github.com/camnode/camnode/internal/led"
	"github.com/camnode/camnode/internal/logging"
	"github.com/camnode/camnode/internal/updater"
	"github.com/camnode/camnode/internal/version"
)

// Server is the Huma v2 API server. It owns the HTTP mux and exposes
// the camera manager, device detector, and event bus over REST and SSE.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	options    *Options
	logger     *slog.Logger
}

// Options carries the server's collaborators and settings.
type Options struct {
	AuthUsername      string
	AuthPassword      string
	Manager           *cameras.Manager
	Detector          devices.Detector
	Bus               *events.Bus
	LEDController     led.Controller  // Optional board LED controller
	UpdateService     updater.Service // Optional self-update service
	PrometheusHandler http.Handler    // Optional Prometheus metrics handler
}

// NewServer creates an API server with Go 1.22+ native routing.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	cors := defaultCORSPolicy()
	cors.registerPreflight(mux)

	config := huma.DefaultConfig("CamNode API", "1.0.0")
	config.Info.Description = "Camera capture engine API for V4L2 and synthetic sources"
	// Empty servers list makes the OpenAPI use relative paths, working
	// behind any host or proxy.
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	server := &Server{
		api:     api,
		mux:     mux,
		options: opts,
		logger:  logging.GetLogger("api"),
	}

	// CORS first, then request logging, then auth.
	api.UseMiddleware(cors.middleware)
	api.UseMiddleware(requestLogMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	// Prometheus endpoint sits on the mux, outside Huma routing and auth.
	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs", http.StatusTemporaryRedirect)
	})

	return server
}

// GetMux returns the underlying HTTP ServeMux for additional setup.
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// GetAPI returns the Huma API instance.
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start serves HTTP on addr. Blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down without waiting for open connections;
// SSE streams would otherwise hold shutdown forever.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// registerRoutes sets up all API endpoints.
func (s *Server) registerRoutes() {
	// Health check endpoint - no auth required
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	// Version endpoint - no auth required
	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(ctx context.Context, input *struct{}) (*models.VersionResponse, error) {
		versionInfo := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   versionInfo.Version,
				GitCommit: versionInfo.GitCommit,
				BuildDate: versionInfo.BuildDate,
				BuildID:   versionInfo.BuildID,
				GoVersion: versionInfo.GoVersion,
				Compiler:  versionInfo.Compiler,
				Platform:  versionInfo.Platform,
			},
		}, nil
	})

	s.registerCameraRoutes()
	s.registerDeviceRoutes()
	s.registerPoolRoutes()
	s.registerLogRoutes()
	s.registerSSERoutes()
	s.registerLEDRoutes()
	s.registerUpdateRoutes()
}

// basicAuthMiddleware guards every operation that declares a security
// requirement. Operations registered with an empty Security list, like
// health and version, pass through.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		user, pass, err := requestCredentials(ctx)
		if err != nil {
			s.unauthorized(ctx, err)
			return
		}
		if user != username || pass != password {
			s.unauthorized(ctx, errors.New("invalid credentials"))
			return
		}

		next(ctx)
	}
}

// requestCredentials extracts basic auth credentials from the
// Authorization header, or from the auth query parameter for SSE
// clients that cannot set headers.
func requestCredentials(ctx huma.Context) (string, string, error) {
	var encoded string
	if header := ctx.Header("Authorization"); header != "" {
		const prefix = "Basic "
		if !strings.HasPrefix(header, prefix) {
			return "", "", errors.New("authentication type must be Basic")
		}
		encoded = header[len(prefix):]
	} else if q := ctx.Query("auth"); q != "" {
		encoded = q
	}
	if encoded == "" {
		return "", "", errors.New("authentication required")
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", errors.New("credentials are not valid base64")
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", "", errors.New("credentials must be user:password")
	}
	return user, pass, nil
}

func (s *Server) unauthorized(ctx huma.Context, err error) {
	ctx.SetHeader("WWW-Authenticate", `Basic realm="CamNode API"`)
	huma.WriteErr(s.api, ctx, http.StatusUnauthorized, err.Error())
}

// withAuth returns the security requirement for basic auth.
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
