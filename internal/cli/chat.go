package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chative/appointment-assistant/internal/agent"
	"github.com/chative/appointment-assistant/internal/agent/model"
	logx "github.com/chative/appointment-assistant/pkg/logger"
)

type requestHandler interface {
	Handle(ctx context.Context, sessionID, text string) (*agent.Result, error)
	EndSession(ctx context.Context, sessionID string) error
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive assistant",
	Long: `Start an interactive session. Each request runs through the pipeline and
any drafted reply is shown to you for approval before it is sent.

Type exit, quit, bye or goodbye to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := bufio.NewReader(cmd.InOrStdin())
		out := cmd.OutOrStdout()

		app, err := NewApp(cmd.Context(), appConfig, NewTerminalReviewer(in, out))
		if err != nil {
			return err
		}
		defer app.Close()

		printBanner(out, appConfig.Clinic)
		if !verbose {
			logx.Silence()
		}
		return runChat(cmd.Context(), app.Assistant, in, out, appConfig.Clinic)
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <request>",
	Short: "Run a single request",
	Example: `  assistant ask "Cancel appointment APT002"
  assistant ask What slots are available?`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := bufio.NewReader(cmd.InOrStdin())
		out := cmd.OutOrStdout()

		app, err := NewApp(cmd.Context(), appConfig, NewTerminalReviewer(in, out))
		if err != nil {
			return err
		}
		defer app.Close()

		res, err := app.Assistant.Handle(cmd.Context(), "", strings.Join(args, " "))
		if err != nil {
			return err
		}
		printResult(out, res)
		return nil
	},
}

// runChat reads requests until an exit word or end of input. One session id
// covers the whole loop and is ended on the way out.
func runChat(ctx context.Context, h requestHandler, in *bufio.Reader, out io.Writer, clinic model.ClinicConfig) error {
	sessionID := "CLI_" + uuid.NewString()
	defer func() {
		if err := h.EndSession(context.WithoutCancel(ctx), sessionID); err != nil {
			logx.Warn().Err(err).Str("session_id", sessionID).Msg("failed to end session")
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			fmt.Fprintln(out, "\n\nSession ended. Goodbye!")
			return nil
		}

		fmt.Fprint(out, "\nYour request: ")
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		input := strings.TrimSpace(line)

		switch {
		case input == "" && errors.Is(err, io.EOF):
			fmt.Fprintln(out, "\n\nSession ended. Goodbye!")
			return nil
		case input == "":
			fmt.Fprintln(out, "Please enter a request or type 'exit' to quit.")
			continue
		case IsExitWord(input):
			printGoodbye(out, clinic)
			return nil
		}

		res, herr := h.Handle(ctx, sessionID, input)
		if herr != nil {
			logx.Error().Err(herr).Msg("request failed")
			fmt.Fprintf(out, "\nSorry, something went wrong while handling your request: %v\n", herr)
		} else {
			printResult(out, res)
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
}
