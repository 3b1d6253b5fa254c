package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"

	"github.com/inkipedia/wikimod/automod/engine"
	"github.com/inkipedia/wikimod/automod/interwiki"
	"github.com/inkipedia/wikimod/automod/permstore"
	"github.com/inkipedia/wikimod/automod/profanity"
	"github.com/inkipedia/wikimod/automod/rank"
	"github.com/inkipedia/wikimod/commands"
	"github.com/inkipedia/wikimod/mediawiki"
)

type Server struct {
	logger   *slog.Logger
	wiki     *mediawiki.Client
	perms    *permstore.Service
	router   *commands.Router
	notifier *commands.Notifier
	echo     *echo.Echo

	gatewayURL   string
	gatewayToken string
	alertChannel string
	bootstrapID  string
}

type Config struct {
	Logger             *slog.Logger
	WikiAPIURL         string
	WikiUsername       string
	WikiPassword       string
	GatewayURL         string
	GatewayToken       string
	NotifierID         string
	NotifierChannel    string
	AlertChannel       string
	CommandPrefix      string
	PermissionsFile    string
	RedisURL           string
	BootstrapOwner     string
	ProfanityEndpoint  string
	ProfanityAPIUser   string
	ProfanityAPISecret string
	InterwikiPeers     []string
	BacklinkExclusions []string
	PagePause          time.Duration
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	if !strings.HasPrefix(config.GatewayURL, "ws") {
		return nil, fmt.Errorf("specified gateway URL must include 'ws://' or 'wss://'")
	}

	wiki := mediawiki.NewClient(config.WikiAPIURL, config.WikiUsername, config.WikiPassword)

	var permBack permstore.Store
	var vandals profanity.VandalStore
	if config.RedisURL != "" {
		rs, err := permstore.NewRedisStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis permission store: %w", err)
		}
		permBack = rs
		vs, err := profanity.NewRedisVandalStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis vandal store: %w", err)
		}
		vandals = vs
	} else {
		permBack = permstore.NewFileStore(config.PermissionsFile)
		vandals = profanity.NewMemVandalStore()
	}
	perms := permstore.NewService(permBack, logger)

	eng := &engine.Engine{
		Logger:             logger,
		Site:               wiki,
		BotUser:            config.WikiUsername,
		BacklinkExclusions: config.BacklinkExclusions,
		PagePause:          config.PagePause,
	}

	peers := map[string]mediawiki.Site{}
	for _, spec := range config.InterwikiPeers {
		lang, apiURL, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("bad interwiki peer %q, want lang=api-url", spec)
		}
		// peers are read-only; no credentials needed
		peers[lang] = mediawiki.NewClient(apiURL, "", "")
	}

	router := &commands.Router{
		Logger: logger,
		Prefix: config.CommandPrefix,
		Perms:  perms,
		Engine: eng,
		Ranker: &rank.Ranker{Logger: logger, Site: wiki},
		Interwiki: &interwiki.Bot{
			Logger:  logger,
			Site:    wiki,
			Peers:   peers,
			Skip:    map[string]bool{"Main Page": true},
			BotUser: config.WikiUsername,
		},
		Vandals: vandals,
		Site:    wiki,
	}

	notifier := &commands.Notifier{
		Logger: logger,
		Scorer: &profanity.Scorer{
			Logger:  logger,
			Client:  profanity.NewClient(config.ProfanityEndpoint, config.ProfanityAPIUser, config.ProfanityAPISecret),
			Words:   perms,
			Vandals: vandals,
		},
		Perms:     perms,
		BotID:     config.NotifierID,
		ChannelID: config.NotifierChannel,
	}

	s := &Server{
		logger:       logger,
		wiki:         wiki,
		perms:        perms,
		router:       router,
		notifier:     notifier,
		gatewayURL:   config.GatewayURL,
		gatewayToken: config.GatewayToken,
		alertChannel: config.AlertChannel,
		bootstrapID:  config.BootstrapOwner,
	}
	s.echo = s.buildAPI()
	return s, nil
}

// Run logs into the wiki, loads permissions, and consumes the chat gateway
// until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.wiki.Login(ctx); err != nil {
		return fmt.Errorf("wiki login: %w", err)
	}
	if s.bootstrapID != "" {
		if err := s.perms.Bootstrap(ctx, s.bootstrapID); err != nil {
			return err
		}
	}
	if err := s.perms.Load(ctx); err != nil {
		return err
	}
	return s.RunConsumer(ctx)
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

// buildAPI wires the small admin HTTP surface: health, and a command endpoint
// so operators can drive the bot without a chat client.
func (s *Server) buildAPI() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(s.logger))
	e.Use(middleware.Recover())

	e.GET("/_health", s.handleHealthCheck)
	e.POST("/admin/command", s.handleAdminCommand)
	return e
}

func (s *Server) RunAPI(listen string) error {
	return s.echo.Start(listen)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type healthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

func (s *Server) handleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, healthStatus{Status: "ok"})
}

type adminCommandRequest struct {
	CallerID   string `json:"caller_id"`
	CallerName string `json:"caller_name"`
	Command    string `json:"command"`
}

type adminCommandResponse struct {
	Handled bool     `json:"handled"`
	Replies []string `json:"replies"`
}

func (s *Server) handleAdminCommand(c echo.Context) error {
	var req adminCommandRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.CallerID == "" || req.Command == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "caller_id and command are required")
	}
	if req.CallerName == "" {
		req.CallerName = req.CallerID
	}

	var replies []string
	handled := s.router.Dispatch(c.Request().Context(),
		commands.Caller{ID: req.CallerID, Name: req.CallerName},
		req.Command,
		func(ctx context.Context, text string) error {
			replies = append(replies, text)
			return nil
		})
	return c.JSON(http.StatusOK, adminCommandResponse{Handled: handled, Replies: replies})
}
