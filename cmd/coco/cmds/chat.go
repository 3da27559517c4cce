package cmds

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/corbat-tech/coco/pkg/capture"
	"github.com/corbat-tech/coco/pkg/confirm"
	"github.com/corbat-tech/coco/pkg/engine/openai"
	"github.com/corbat-tech/coco/pkg/events"
	"github.com/corbat-tech/coco/pkg/queue"
	"github.com/corbat-tech/coco/pkg/safety"
	"github.com/corbat-tech/coco/pkg/session"
	"github.com/corbat-tech/coco/pkg/tools"
	"github.com/corbat-tech/coco/pkg/turnloop"
)

var promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)

func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive agent session",
		RunE:  runChat,
	}

	cmd.Flags().String("model", "gpt-4o", "model to run inference against")
	cmd.Flags().Int("max-iterations", turnloop.DefaultMaxIterations, "tool-calling iterations per turn")
	cmd.Flags().Bool("risk-mode", false, "auto-approve commands the safety policy does not block")
	cmd.Flags().Bool("skip-confirmation", false, "never prompt before tool execution")
	cmd.Flags().String("project", "", "project path used for scoped tool trust (defaults to the working directory)")
	cmd.Flags().Bool("verbose-events", false, "log every turn event through the event router")
	for _, name := range []string{"model", "max-iterations", "risk-mode", "skip-confirmation", "project", "verbose-events"} {
		_ = viper.BindPFlag(name, cmd.Flags().Lookup(name))
	}

	return cmd
}

func runChat(cmd *cobra.Command, _ []string) error {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return errors.New("OPENAI_API_KEY is not set")
	}

	project := viper.GetString("project")
	if project == "" {
		wd, err := os.Getwd()
		if err != nil {
			return errors.Wrap(err, "resolve working directory")
		}
		project = wd
	}

	riskMode := viper.GetBool("risk-mode")
	if prefsPath, err := session.DefaultPreferencesPath(); err == nil {
		if prefs, err := session.LoadPreferences(prefsPath); err == nil {
			riskMode = riskMode || prefs.RiskMode
		} else {
			log.Warn().Err(err).Msg("chat: could not load preferences")
		}
	}

	trustOpts := []session.TrustSetOption{session.WithProjectPath(project)}
	if trustPath, err := session.DefaultTrustPath(); err == nil {
		trustOpts = append(trustOpts, session.WithTrustFile(session.NewFileTrustStore(trustPath)))
	}
	trust := session.NewTrustSet(trustOpts...)

	registry := tools.NewInMemoryRegistry()
	if err := registerDefaultTools(registry, project); err != nil {
		return errors.Wrap(err, "register tools")
	}

	q := queue.NewMessageQueue(queue.DefaultMaxSize)
	prompter := &consolePrompter{}
	gate := confirm.NewGate(prompter, trust,
		confirm.WithSkipConfirmation(viper.GetBool("skip-confirmation")))

	loop := turnloop.NewLoop(
		openai.New(apiKey, openai.WithModel(viper.GetString("model"))),
		registry,
		gate,
		turnloop.WithQueue(q),
		turnloop.WithPolicy(safety.NewPolicy()),
		turnloop.WithRiskMode(riskMode),
		turnloop.WithMaxIterations(viper.GetInt("max-iterations")),
	)

	sinks := []events.EventSink{newTurnPrinter(os.Stdout)}
	ctx := cmd.Context()
	if viper.GetBool("verbose-events") {
		publisher, cleanup, err := startEventLogger(ctx)
		if err != nil {
			return err
		}
		defer cleanup()
		sinks = append(sinks, publisher)
	}
	ctx = events.WithEventSinks(ctx, sinks...)

	if riskMode {
		fmt.Fprintln(os.Stderr, "risk mode: commands run without confirmation unless the safety policy blocks them")
	}

	sess := session.New(session.WithTrust(trust), session.WithSessionProjectPath(project))
	return repl(ctx, loop, sess, q, prompter)
}

// repl reads one prompt per turn. While a turn is running, keystrokes are
// captured into the queue instead of the line editor, so the user can steer
// or abort mid-turn.
func repl(ctx context.Context, loop *turnloop.Loop, sess *session.Session, q *queue.MessageQueue, prompter *consolePrompter) error {
	scanner := bufio.NewScanner(os.Stdin)
	interactive := isatty.IsTerminal(os.Stdin.Fd())

	for {
		fmt.Fprint(os.Stdout, promptStyle.Render("> "))
		if !scanner.Scan() {
			fmt.Fprintln(os.Stdout)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}

		stop := func() {}
		if interactive {
			stop = startCapture(q, prompter)
		}
		res, err := loop.RunTurn(ctx, sess, line)
		stop()

		if err != nil {
			log.Error().Err(err).Msg("chat: turn failed")
			continue
		}
		printTurnSummary(os.Stdout, res)
	}
}

// startCapture puts the terminal in capture mode for the duration of a turn
// and teaches the prompter to suspend it around confirmation prompts. The
// returned stop function is idempotent.
func startCapture(q *queue.MessageQueue, prompter *consolePrompter) func() {
	var current *capture.Capture

	start := func() {
		c := capture.New(
			capture.NewTerminalDriver(os.Stdin), q,
			capture.WithRenderer(capture.NewTermRenderer(os.Stderr)),
		)
		if err := c.Start(); err != nil {
			log.Warn().Err(err).Msg("chat: input capture unavailable")
			return
		}
		c.SetWorking(true)
		current = c
	}
	stop := func() {
		if current != nil {
			current.Stop()
			current = nil
		}
	}

	start()
	prompter.SetPause(func() func() {
		stop()
		return start
	})

	return func() {
		prompter.SetPause(nil)
		stop()
	}
}

func printTurnSummary(w *os.File, res *turnloop.TurnResult) {
	if res.Aborted {
		fmt.Fprintf(w, "turn aborted (%s)\n", res.AbortReason)
		if res.PartialContent != "" {
			fmt.Fprintln(w, res.PartialContent)
		}
		return
	}
	if res.MaxIterationsReached {
		fmt.Fprintln(w, "stopped: iteration limit reached before the task finished")
	}
	log.Debug().
		Int("tool_calls", len(res.ToolCalls)).
		Int("input_tokens", res.Usage.InputTokens).
		Int("output_tokens", res.Usage.OutputTokens).
		Msg("chat: turn finished")
}
