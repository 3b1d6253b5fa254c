package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "wikimod",
		Usage:   "chat-driven wiki moderation daemon",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "wiki-api-url",
			Usage:   "full URL of the wiki's api.php",
			Value:   "https://splatoonwiki.org/w/api.php",
			EnvVars: []string{"WIKI_API_URL"},
		},
		&cli.StringFlag{
			Name:    "wiki-username",
			Usage:   "bot account name on the wiki",
			EnvVars: []string{"WIKI_USERNAME"},
		},
		&cli.StringFlag{
			Name:    "wiki-password",
			Usage:   "bot password for the wiki account",
			EnvVars: []string{"WIKI_PASSWORD"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "gateway-url",
			Usage:   "websocket URL of the chat gateway to consume",
			Value:   "ws://localhost:8085/gateway",
			EnvVars: []string{"WIKIMOD_GATEWAY_URL"},
		},
		&cli.StringFlag{
			Name:    "gateway-token",
			Usage:   "bearer token for the chat gateway",
			EnvVars: []string{"WIKIMOD_GATEWAY_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "notifier-id",
			Usage:   "chat user id of the trusted wiki notifier",
			EnvVars: []string{"WIKI_NOTIFIER_ID"},
		},
		&cli.StringFlag{
			Name:    "notifier-channel",
			Usage:   "channel id the wiki notifier posts in",
			EnvVars: []string{"WIKI_NOTIFIER_CHANNEL"},
		},
		&cli.StringFlag{
			Name:    "alert-channel",
			Usage:   "channel id vandalism alerts are routed to",
			EnvVars: []string{"WIKI_ALERT_CHANNEL"},
		},
		&cli.StringFlag{
			Name:    "command-prefix",
			Value:   "!",
			EnvVars: []string{"WIKIMOD_COMMAND_PREFIX"},
		},
		&cli.StringFlag{
			Name:    "permissions-file",
			Usage:   "JSONL permission log, used when redis is not configured",
			Value:   "data/wikimod/permissions.jsonl",
			EnvVars: []string{"WIKIMOD_PERMISSIONS_FILE"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection for permissions and the recent-vandals set, like redis://localhost:6379/0",
			EnvVars: []string{"WIKIMOD_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "bootstrap-owner",
			Usage:   "chat user id seeded as owner when the permission store is empty",
			EnvVars: []string{"WIKIMOD_BOOTSTRAP_OWNER"},
		},
		&cli.StringFlag{
			Name:    "profanity-endpoint",
			Value:   "https://api.sightengine.com/1.0/text/check.json",
			EnvVars: []string{"SIGHTENGINE_ENDPOINT"},
		},
		&cli.StringFlag{
			Name:    "profanity-api-user",
			EnvVars: []string{"SIGHTENGINE_API_USER"},
		},
		&cli.StringFlag{
			Name:    "profanity-api-secret",
			EnvVars: []string{"SIGHTENGINE_API_SECRET"},
		},
		&cli.StringSliceFlag{
			Name:    "interwiki-peer",
			Usage:   "peer wiki as lang=api-url, repeatable",
			EnvVars: []string{"WIKIMOD_INTERWIKI_PEERS"},
		},
		&cli.StringSliceFlag{
			Name:    "backlink-exclusion",
			Usage:   "pages whose backlinks never count as in-use",
			Value:   cli.NewStringSlice("Project:Pages pending deletion"),
			EnvVars: []string{"WIKIMOD_BACKLINK_EXCLUSIONS"},
		},
		&cli.DurationFlag{
			Name:    "page-pause",
			Usage:   "pause between pages during sweeps",
			Value:   time.Second,
			EnvVars: []string{"WIKIMOD_PAGE_PAUSE"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for the admin API",
			Value:   ":3999",
			EnvVars: []string{"WIKIMOD_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics",
			Value:   ":3998",
			EnvVars: []string{"WIKIMOD_METRICS_LISTEN"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		srv, err := NewServer(Config{
			Logger:             logger,
			WikiAPIURL:         cctx.String("wiki-api-url"),
			WikiUsername:       cctx.String("wiki-username"),
			WikiPassword:       cctx.String("wiki-password"),
			GatewayURL:         cctx.String("gateway-url"),
			GatewayToken:       cctx.String("gateway-token"),
			NotifierID:         cctx.String("notifier-id"),
			NotifierChannel:    cctx.String("notifier-channel"),
			AlertChannel:       cctx.String("alert-channel"),
			CommandPrefix:      cctx.String("command-prefix"),
			PermissionsFile:    cctx.String("permissions-file"),
			RedisURL:           cctx.String("redis-url"),
			BootstrapOwner:     cctx.String("bootstrap-owner"),
			ProfanityEndpoint:  cctx.String("profanity-endpoint"),
			ProfanityAPIUser:   cctx.String("profanity-api-user"),
			ProfanityAPISecret: cctx.String("profanity-api-secret"),
			InterwikiPeers:     cctx.StringSlice("interwiki-peer"),
			BacklinkExclusions: cctx.StringSlice("backlink-exclusion"),
			PagePause:          cctx.Duration("page-pause"),
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()
		go func() {
			if err := srv.RunAPI(cctx.String("bind")); err != nil {
				slog.Error("admin API stopped", "error", err)
			}
		}()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("failed to run moderation service: %w", err)
		}
		return nil
	},
}
