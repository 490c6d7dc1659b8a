package cli

import (
	"context"

	"github.com/m-mizutani/wrinkle/pkg/interfaces"
	"github.com/m-mizutani/wrinkle/pkg/service/mcp"
	"github.com/m-mizutani/wrinkle/pkg/utils/logging"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
)

func mcpCommand() *cli.Command {
	var (
		cfg     config
		offline bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "offline",
			Usage:       "Serve the gate with the local heuristic only",
			Destination: &offline,
		},
	}
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, gateFlags(&cfg)...)

	return &cli.Command{
		Name:  "mcp",
		Usage: "Expose the idea gate and scoring as MCP tools over stdio",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			var validator interfaces.IdeaValidator
			if !offline {
				asst, err := cfg.newAssistant(ctx)
				if err != nil {
					return err
				}
				validator = asst
			}

			g, err := cfg.newGate(ctx, validator, nil)
			if err != nil {
				return err
			}

			logging.From(ctx).Info("starting MCP server on stdio", "offline", offline)
			srv := mcp.NewServer(g.orchestrator, g.classifier, g.trickery, Version)
			return srv.Run(ctx, &mcpsdk.StdioTransport{})
		},
	}
}
