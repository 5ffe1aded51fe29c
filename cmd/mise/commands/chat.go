package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"miseagent/app"
	"miseagent/coordinator"
)

func NewChatCmd() *cobra.Command {
	var (
		user     string
		message  string
		seed     string
		thoughts bool
		logFile  bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant from the terminal",
		Long: `Talk to the assistant from the terminal.

With --message a single turn is sent and the reply printed. Otherwise an
interactive session starts; type /reset to clear the history and /quit to
leave.`,
		Example: `  mise chat --message "what can I cook with what I have?"
  mise chat --seed testdata/pantry.json
  mise chat --seed s3://my-bucket/kitchens/local.json --log-file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}

			var opts app.Options
			if logFile {
				logger, closeLog, err := openCoordinationLog(cfg.Model.ModelID)
				if err != nil {
					return err
				}
				defer func() {
					if err := closeLog(); err != nil {
						slog.Warn("SETUP: Failed to write coordination log", "error", err)
					}
				}()
				opts.Logger = logger
			}

			a, err := app.New(ctx, cfg, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := seedApp(ctx, a, seed, user); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if message != "" {
				return sendTurn(ctx, a.Chat, out, user, message, thoughts)
			}
			return repl(ctx, a.Chat, cmd.InOrStdin(), out, user, thoughts)
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "local", "User id to chat as")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Send one message and exit")
	cmd.Flags().StringVar(&seed, "seed", "", "JSON file or s3://bucket/key to seed the store with")
	cmd.Flags().BoolVar(&logFile, "log-file", false, "Write coordination iterations to ./logs")
	cmd.Flags().BoolVar(&thoughts, "thoughts", false, "Print the assistant's thought steps")
	return cmd
}

func repl(ctx context.Context, chat *coordinator.Chat, in io.Reader, out io.Writer, user string, thoughts bool) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			if err := chat.Reset(ctx, user); err != nil {
				return err
			}
			fmt.Fprintln(out, "History cleared.")
			continue
		}

		if err := sendTurn(ctx, chat, out, user, line, thoughts); err != nil {
			return err
		}
	}
}

func sendTurn(ctx context.Context, chat *coordinator.Chat, out io.Writer, user, text string, thoughts bool) error {
	reply, err := chat.Send(ctx, user, text)
	if err != nil {
		return err
	}
	if thoughts {
		for _, s := range reply.ThoughtSteps {
			if s.Details != "" {
				fmt.Fprintf(out, "  [%s] %s: %s\n", s.Status, s.Step, s.Details)
			} else {
				fmt.Fprintf(out, "  [%s] %s\n", s.Status, s.Step)
			}
		}
	}
	fmt.Fprintln(out, reply.Message.Content)
	return nil
}
