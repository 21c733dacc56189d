package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/99minutos/taskboard/internal/api/handler"
	"github.com/99minutos/taskboard/internal/api/middleware"
	"github.com/99minutos/taskboard/internal/core/ports"
	"github.com/99minutos/taskboard/internal/core/ratelimit"
)

// RouterDeps carries everything the HTTP layer needs.
type RouterDeps struct {
	Log      zerolog.Logger
	Limiter  middleware.Checker
	Policies ratelimit.Policies
	Resolver ports.IdentityResolver

	Auth     ports.AuthService
	Users    ports.UserService
	Projects ports.ProjectService
	Tasks    ports.TaskService
	Activity ports.ActivityService

	// Probes are checked by /health/ready, keyed by dependency name.
	Probes map[string]handler.Probe

	// Registerer receives the HTTP metrics. Defaults to the global registry.
	Registerer prometheus.Registerer
}

// maxBodySize bounds a request body before it is decoded.
const maxBodySize = "1M"

// NewRouter builds and returns the Echo instance with all routes registered.
//
// Every API route runs its gates in order: rate limit (by client IP), then
// identity resolution, then the handler, whose service authorizes and
// validates.
func NewRouter(d RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = echo.ExtractIPFromXFFHeader()
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log, nil)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.BodyLimit(maxBodySize))
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "taskboard",
		Registerer: d.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	identify := middleware.Identify(d.Resolver)
	admit := func(policy string, cfg ratelimit.Config, extra ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
		return append([]echo.MiddlewareFunc{middleware.RateLimit(d.Limiter, policy, cfg), identify}, extra...)
	}
	p := d.Policies
	privileged := middleware.RequirePrivileged()

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(d.Auth, d.Users)
	e.POST("/auth/login", authHandler.Login, middleware.RateLimit(d.Limiter, ratelimit.PolicyLogin, p.Login))
	e.GET("/auth/me", authHandler.Me, admit(ratelimit.PolicyRead, p.Read)...)

	v1 := e.Group("/v1")

	users := handler.NewUserHandler(d.Users)
	v1.GET("/users", users.List, admit(ratelimit.PolicyRead, p.Read)...)
	v1.POST("/users", users.Create, admit(ratelimit.PolicyCreate, p.Create, privileged)...)
	v1.GET("/users/:id", users.Get, admit(ratelimit.PolicyRead, p.Read)...)
	v1.PUT("/users/:id", users.Update, admit(ratelimit.PolicyUpdate, p.Update, privileged)...)
	v1.DELETE("/users/:id", users.Delete, admit(ratelimit.PolicyDelete, p.Delete, privileged)...)

	projects := handler.NewProjectHandler(d.Projects)
	v1.GET("/projects", projects.List, admit(ratelimit.PolicyRead, p.Read)...)
	v1.POST("/projects", projects.Create, admit(ratelimit.PolicyCreate, p.Create)...)
	v1.GET("/projects/:id", projects.Get, admit(ratelimit.PolicyRead, p.Read)...)
	v1.PUT("/projects/:id", projects.Update, admit(ratelimit.PolicyUpdate, p.Update)...)
	v1.DELETE("/projects/:id", projects.Delete, admit(ratelimit.PolicyDelete, p.Delete)...)

	tasks := handler.NewTaskHandler(d.Tasks)
	v1.GET("/tasks", tasks.List, admit(ratelimit.PolicyRead, p.Read)...)
	v1.POST("/tasks", tasks.Create, admit(ratelimit.PolicyCreate, p.Create)...)
	v1.GET("/tasks/:id", tasks.Get, admit(ratelimit.PolicyRead, p.Read)...)
	v1.PUT("/tasks/:id", tasks.Update, admit(ratelimit.PolicyUpdate, p.Update)...)
	v1.DELETE("/tasks/:id", tasks.Delete, admit(ratelimit.PolicyDelete, p.Delete)...)

	activity := handler.NewActivityHandler(d.Activity)
	v1.GET("/activity", activity.List, admit(ratelimit.PolicyRead, p.Read, privileged)...)

	// --- Operational routes (no admission) ---
	health := handler.NewHealthHandler(d.Probes)
	e.GET("/health", health.Liveness)        // liveness: is the process alive?
	e.GET("/health/ready", health.Readiness) // readiness: are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
