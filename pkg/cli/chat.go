package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/wrinkle/pkg/model"
	"github.com/m-mizutani/wrinkle/pkg/usecase/conversation"
	"github.com/urfave/cli/v3"
)

const chatHelp = `Commands:
  /name <name>      name the session (required before pitching)
  /reset            clear the conversation but keep the name
  /mode <mode>      summary or detailed replies
  /persona <text>   set a display persona
  /score            show the wrinkle point total
  /exit             quit`

func chatCommand() *cli.Command {
	var (
		cfg       config
		sessionID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "session-id",
			Aliases:     []string{"id"},
			Usage:       "Resume an existing session",
			Sources:     cli.EnvVars("WRINKLE_SESSION_ID"),
			Destination: &sessionID,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, gateFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Pitch a startup idea and refine it interactively",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			store, err := cfg.newStore(ctx)
			if err != nil {
				return err
			}

			asst, err := cfg.newAssistant(ctx)
			if err != nil {
				return err
			}

			g, err := cfg.newGate(ctx, asst, nil)
			if err != nil {
				return err
			}

			var snapshot *model.Snapshot
			if sessionID != "" {
				snapshot, err = store.Load(ctx, model.SessionID(sessionID))
				if err != nil {
					return goerr.Wrap(err, "failed to load session", goerr.V("session_id", sessionID))
				}
			}

			engine := conversation.New(snapshot, asst, g.orchestrator, g.trickery,
				conversation.WithStore(store))

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "> ",
				HistoryFile:     historyFile(),
				InterruptPrompt: "^C",
				EOFPrompt:       "/exit",
			})
			if err != nil {
				return goerr.Wrap(err, "failed to initialize readline")
			}
			defer rl.Close()

			r := &repl{engine: engine, w: c.Root().Writer, spin: true}
			r.greet()

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						break
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				if quit := r.handle(ctx, line); quit {
					break
				}
			}

			fmt.Fprintf(c.Root().Writer, "\nSession %s saved\n", engine.ID())
			return nil
		},
	}
}

// historyFile returns the readline history path, or empty to disable it
func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "wrinkle")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return ""
	}
	return filepath.Join(dir, "history")
}

// repl executes one input line at a time against an engine
type repl struct {
	engine *conversation.Engine
	w      io.Writer
	spin   bool
}

func (r *repl) greet() {
	snapshot := r.engine.Snapshot()
	fmt.Fprintf(r.w, "Session %s (%s)\n", snapshot.Session.ID, snapshot.Session.Name)
	for _, msg := range snapshot.Messages {
		r.printMessage(msg)
	}
	if snapshot.Session.IsDefaultName {
		fmt.Fprintln(r.w, "Name this session with /name <name> to start. /help lists commands.")
	}
}

// handle runs one line and reports whether the loop should end
func (r *repl) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if !strings.HasPrefix(line, "/") {
		r.submit(ctx, line)
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/exit", "/quit":
		return true

	case "/help":
		fmt.Fprintln(r.w, chatHelp)

	case "/name":
		msg, err := r.engine.Rename(ctx, arg)
		if err != nil {
			fmt.Fprintf(r.w, "Cannot rename: %s\n", err.Error())
			return false
		}
		fmt.Fprintf(r.w, "Session renamed to %q\n", arg)
		if msg != nil {
			r.printMessage(msg)
		}

	case "/reset":
		r.engine.Reset(ctx)
		fmt.Fprintln(r.w, "Conversation cleared.")

	case "/mode":
		if err := r.engine.SetResponseMode(ctx, model.ResponseMode(arg)); err != nil {
			fmt.Fprintf(r.w, "Unknown mode %q, use summary or detailed\n", arg)
			return false
		}
		fmt.Fprintf(r.w, "Response mode set to %s\n", arg)

	case "/persona":
		r.engine.SetPersona(ctx, arg)
		fmt.Fprintf(r.w, "Persona set to %q\n", arg)

	case "/score":
		fmt.Fprintf(r.w, "🧠 %d wrinkles\n", r.engine.Score())

	default:
		fmt.Fprintf(r.w, "Unknown command %s\n", cmd)
	}

	return false
}

func (r *repl) submit(ctx context.Context, text string) {
	var s *spinner.Spinner
	if r.spin {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Suffix = " thinking..."
		s.Start()
	}

	result, err := r.engine.Submit(ctx, text)

	if s != nil {
		s.Stop()
	}

	switch {
	case err == nil:
	case errors.Is(err, conversation.ErrEmptyMessage):
		return
	case errors.Is(err, conversation.ErrConnection):
		fmt.Fprintln(r.w, "Connection Error, please try again")
		return
	case errors.Is(err, conversation.ErrStaleTurn):
		return
	default:
		fmt.Fprintf(r.w, "Error: %s\n", err.Error())
		return
	}

	for _, msg := range result.Messages {
		r.printMessage(msg)
	}
	if result.PointChange != nil {
		fmt.Fprintf(r.w, "🧠 %+d wrinkles (%s), total %d\n",
			result.PointChange.PointChange, result.PointChange.Explanation, result.Score)
	}
}

func (r *repl) printMessage(msg *model.Message) {
	if msg.Role == model.RoleUser {
		fmt.Fprintf(r.w, "> %s\n", msg.Content)
		return
	}

	fmt.Fprintf(r.w, "\n%s\n", msg.Content)
	for i, sg := range msg.Suggestions {
		if sg.Explanation != "" {
			fmt.Fprintf(r.w, "  %d. %s (%s)\n", i+1, sg.Text, sg.Explanation)
		} else {
			fmt.Fprintf(r.w, "  %d. %s\n", i+1, sg.Text)
		}
	}
	fmt.Fprintln(r.w)
}
