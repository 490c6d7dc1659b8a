package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/wrinkle/pkg/model"
	"github.com/m-mizutani/wrinkle/pkg/usecase/conversation"
	"github.com/urfave/cli/v3"
)

func sessionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "Manage stored sessions",
		Commands: []*cli.Command{
			listSessionsCommand(),
			showSessionCommand(),
			clearSessionCommand(),
		},
	}
}

func sessionIDFlag(dst *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "session-id",
		Aliases:     []string{"id"},
		Usage:       "Session ID",
		Sources:     cli.EnvVars("WRINKLE_SESSION_ID"),
		Destination: dst,
		Required:    true,
	}
}

func listSessionsCommand() *cli.Command {
	var (
		cfg    config
		offset int64
		limit  int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "offset",
			Usage:       "Number of sessions to skip",
			Value:       0,
			Destination: &offset,
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Maximum number of sessions to show",
			Value:       20,
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List sessions, most recently updated first",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			store, err := cfg.newStore(ctx)
			if err != nil {
				return err
			}

			sessions, err := store.List(ctx, int(offset), int(limit))
			if err != nil {
				return goerr.Wrap(err, "failed to list sessions")
			}

			w := c.Root().Writer
			if len(sessions) == 0 {
				fmt.Fprintln(w, "No sessions found")
				return nil
			}

			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%-14s\t%s\t%s\n",
					s.ID, conversation.StateOf(s), s.UpdatedAt.Format("2006-01-02 15:04"), s.Name)
			}
			return nil
		},
	}
}

func showSessionCommand() *cli.Command {
	var (
		cfg       config
		sessionID string
	)

	flags := []cli.Flag{sessionIDFlag(&sessionID)}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "show",
		Usage: "Show a session and its conversation",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			store, err := cfg.newStore(ctx)
			if err != nil {
				return err
			}

			snapshot, err := store.Load(ctx, model.SessionID(sessionID))
			if err != nil {
				return goerr.Wrap(err, "failed to load session", goerr.V("session_id", sessionID))
			}

			w := c.Root().Writer
			s := snapshot.Session
			fmt.Fprintf(w, "ID:       %s\n", s.ID)
			fmt.Fprintf(w, "Name:     %s\n", s.Name)
			fmt.Fprintf(w, "State:    %s\n", conversation.StateOf(s))
			if s.HasValidIdea {
				fmt.Fprintf(w, "Idea:     %s\n", s.CurrentIdea)
			}
			fmt.Fprintf(w, "Mode:     %s\n", s.ResponseMode)
			if s.Persona != "" {
				fmt.Fprintf(w, "Persona:  %s\n", s.Persona)
			}
			fmt.Fprintf(w, "Score:    %d\n", snapshot.Score())
			fmt.Fprintf(w, "Updated:  %s\n", s.UpdatedAt.Format("2006-01-02 15:04:05"))

			r := &repl{w: w}
			for _, msg := range snapshot.Messages {
				r.printMessage(msg)
			}
			return nil
		},
	}
}

func clearSessionCommand() *cli.Command {
	var (
		cfg       config
		sessionID string
	)

	flags := []cli.Flag{sessionIDFlag(&sessionID)}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "clear",
		Usage: "Delete a session and its message log",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			store, err := cfg.newStore(ctx)
			if err != nil {
				return err
			}

			if err := store.Delete(ctx, model.SessionID(sessionID)); err != nil {
				return goerr.Wrap(err, "failed to delete session", goerr.V("session_id", sessionID))
			}

			fmt.Fprintf(c.Root().Writer, "Session %s deleted\n", sessionID)
			return nil
		},
	}
}
