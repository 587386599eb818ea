package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sellscope/accountplan/config"
	"github.com/sellscope/accountplan/internal/agent/core"
	"github.com/sellscope/accountplan/internal/agent/telemetry"
	"github.com/sellscope/accountplan/internal/runtime"
	"github.com/sellscope/accountplan/internal/store"
	"github.com/sellscope/accountplan/session"
	"github.com/sellscope/accountplan/tools/web_search"
)

func Run(cfg *config.Config, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))
	e.Use(runtime.MetricsMiddleware())

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()
	dsn, err := cfg.Storage.Postgres.DSN()
	if err != nil {
		return err
	}
	if err := Migrate("file://migrations", dsn, "up", 0); err != nil {
		baseLogger.Printf("migrations: %v", err)
	}
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return err
	}

	tele := telemetry.NewTelemetry(cfg.Telemetry)
	searcher, err := searcherFromConfig(cfg)
	if err != nil {
		return err
	}
	llm, err := core.NewLLMProvider(cfg.LLM)
	if err != nil {
		return err
	}

	sessions, err := sessionStoreFromConfig(cfg)
	if err != nil {
		return err
	}

	secret, err := runtime.LoadJWTSecret(cfg)
	if err != nil {
		return err
	}
	auth, err := initAuth(ctx, st, secret)
	if err != nil {
		return err
	}

	api := e.Group("/api")
	auth.Register(api.Group("/auth"))

	me := api.Group("/me")
	me.Use(runtime.EchoAuthMiddleware(auth.Secret))
	me.GET("", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"user_id": c.Get("user_id").(string)})
	})

	rh := &ResearchHandler{
		Config:      cfg,
		Aggregator:  core.NewAggregator(cfg, searcher, tele),
		Synthesizer: core.NewSynthesizer(cfg, llm, tele),
		Editor:      core.NewEditor(cfg, llm, tele),
		Chat:        core.NewChat(cfg, llm, tele),
		Sessions:    sessions,
		Store:       st,
	}
	protected := api.Group("")
	protected.Use(runtime.EchoAuthMiddleware(auth.Secret))
	rh.Register(protected)

	if addr == "" {
		addr = cfg.General.Listen
		if addr != "" && addr[0] != ':' {
			addr = ":" + addr
		}
		if addr == "" {
			addr = ":10001"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

func searcherFromConfig(cfg *config.Config) (web_search.WebSearcher, error) {
	switch web_search.Provider(cfg.Search.Provider) {
	case web_search.TavilyProvider, "":
		if cfg.Search.TavilyAPIKey == "" {
			return nil, fmt.Errorf("TAVILY_API_KEY not configured")
		}
		return web_search.NewWebSearcher(web_search.TavilyProvider, cfg.Search.TavilyAPIKey)
	case web_search.SerperProvider:
		return web_search.NewWebSearcher(web_search.SerperProvider, cfg.Search.SerperAPIKey)
	case web_search.BraveProvider:
		return web_search.NewWebSearcher(web_search.BraveProvider, cfg.Search.BraveAPIKey)
	default:
		return nil, fmt.Errorf("unknown search provider: %s", cfg.Search.Provider)
	}
}

func sessionStoreFromConfig(cfg *config.Config) (session.Store, error) {
	if cfg.Storage.Redis.Host == "" {
		return session.NewStore(session.InMemoryStore, session.RedisOptions{})
	}
	return session.NewStore(session.RedisStore, session.RedisOptions{
		Addr:     fmt.Sprintf("%s:%d", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port),
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})
}
