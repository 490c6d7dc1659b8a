package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/wrinkle/pkg/metrics"
	"github.com/m-mizutani/wrinkle/pkg/model"
	"github.com/m-mizutani/wrinkle/pkg/server"
	"github.com/m-mizutani/wrinkle/pkg/usecase/conversation"
	"github.com/m-mizutani/wrinkle/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var (
		cfg           config
		addr          string
		offTopicLimit int64
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address",
			Value:       ":8080",
			Sources:     cli.EnvVars("WRINKLE_ADDR"),
			Destination: &addr,
		},
		&cli.IntFlag{
			Name:        "off-topic-limit",
			Usage:       "Consecutive off-topic turns before a session stops",
			Value:       conversation.DefaultOffTopicLimit,
			Sources:     cli.EnvVars("WRINKLE_OFF_TOPIC_LIMIT"),
			Destination: &offTopicLimit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, gateFlags(&cfg)...)
	flags = append(flags, marketFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the conversation API over HTTP",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			m := metrics.New()

			store, err := cfg.newStore(ctx)
			if err != nil {
				return err
			}

			asst, err := cfg.newAssistant(ctx)
			if err != nil {
				return err
			}

			g, err := cfg.newGate(ctx, asst, m)
			if err != nil {
				return err
			}

			dashboard, err := cfg.newDashboard(ctx, m)
			if err != nil {
				return err
			}

			manager := conversation.NewManager(store, func(snapshot *model.Snapshot) *conversation.Engine {
				return conversation.New(snapshot, asst, g.orchestrator, g.trickery,
					conversation.WithStore(store),
					conversation.WithMetrics(m),
					conversation.WithOffTopicLimit(int(offTopicLimit)),
				)
			})

			opts := []server.Option{server.WithMetrics(m)}
			if dashboard != nil {
				opts = append(opts, server.WithDashboard(dashboard))
			} else {
				logging.From(ctx).Info("market dashboard disabled, no dataset configured")
			}

			return server.New(manager, g.orchestrator, opts...).ListenAndServe(ctx, addr)
		},
	}
}
