package http

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// RouterConfig collects the handlers mounted by NewRouter. Nil handlers are skipped.
type RouterConfig struct {
	Auth      *AuthHandler
	Users     *UserHandler
	Schedules *ScheduleHandler
	Push      *PushHandler
	Tokens    TokenValidator
	Storage   Pinger
	Logger    *slog.Logger
}

// NewRouter builds the echo instance serving the API.
func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(cfg.Logger)

	e.Use(RequestLogger(cfg.Logger))
	e.Use(middleware.Recover())

	e.GET("/health", Health(cfg.Storage))

	api := e.Group("/api")
	api.GET("/catalog", Catalog)
	if cfg.Auth != nil {
		api.POST("/login", cfg.Auth.Login)
	}

	var protected []echo.MiddlewareFunc
	if cfg.Tokens != nil {
		protected = append(protected, RequireToken(cfg.Tokens))
	}

	if cfg.Schedules != nil {
		cfg.Schedules.RegisterRoutes(api.Group("/schedules", protected...))
	}
	if cfg.Users != nil {
		users := api.Group("/users", protected...)
		users.GET("", cfg.Users.List)
		users.POST("", cfg.Users.Create)
		api.GET("/me", cfg.Users.Me, protected...)
	}
	if cfg.Push != nil {
		push := api.Group("/push", protected...)
		push.POST("/send-all", cfg.Push.SendAll)
		push.POST("/send-test", cfg.Push.SendTest)
	}

	return e
}
