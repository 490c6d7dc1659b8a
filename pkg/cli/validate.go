package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/wrinkle/pkg/interfaces"
	"github.com/urfave/cli/v3"
)

func validateCommand() *cli.Command {
	var (
		cfg     config
		offline bool
		asJSON  bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "offline",
			Usage:       "Judge with the local heuristic only",
			Destination: &offline,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print the validation result as JSON",
			Destination: &asJSON,
		},
	}
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, gateFlags(&cfg)...)

	return &cli.Command{
		Name:      "validate",
		Usage:     "Run a startup idea through the gate",
		ArgsUsage: "<idea text>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			text := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(text) == "" {
				return goerr.New("idea text is required")
			}

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

			result := g.orchestrator.Validate(ctx, text, false)

			w := c.Root().Writer
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			if result.Valid {
				fmt.Fprintf(w, "✅ APPROVED: %s\n", result.Preview)
				return nil
			}
			fmt.Fprintln(w, result.GateMessage)
			return nil
		},
	}
}
