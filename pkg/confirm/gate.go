package confirm

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Choice is the human's answer to one confirmation prompt.
type Choice int

const (
	ChoiceNo Choice = iota
	ChoiceYes
	ChoiceAbort
	ChoiceYesAll
	ChoiceTrustSession
)

// Outcome is the gate's decision for one tool call.
type Outcome int

const (
	OutcomeApproved Outcome = iota
	OutcomeDeclined
	OutcomeAborted
)

// State is the turn-scoped confirmation state. Created at turn start,
// discarded at turn end; AllowAll never survives the turn that set it.
type State struct {
	AllowAll bool
}

// Request is what the prompter shows the human.
type Request struct {
	ToolName string
	// Input is a compact rendering of the call arguments.
	Input string
}

// Prompter asks the human for one of the five choices.
type Prompter interface {
	Ask(ctx context.Context, req Request) (Choice, error)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(ctx context.Context, req Request) (Choice, error)

func (f PrompterFunc) Ask(ctx context.Context, req Request) (Choice, error) {
	return f(ctx, req)
}

// TrustStore is the session's trusted-tool set. Add is immediate and
// in-memory; Persist writes the trust record for future sessions.
type TrustStore interface {
	IsTrusted(name string) bool
	Add(name string)
	Persist(ctx context.Context, name string) error
}

const persistTimeout = 5 * time.Second

// Gate decides, per tool call, whether the human must approve before
// execution.
type Gate struct {
	prompter         Prompter
	trust            TrustStore
	skipConfirmation bool
}

type GateOption func(*Gate)

// WithSkipConfirmation disables prompting entirely, e.g. for scripted runs.
func WithSkipConfirmation(skip bool) GateOption {
	return func(g *Gate) { g.skipConfirmation = skip }
}

func NewGate(prompter Prompter, trust TrustStore, opts ...GateOption) *Gate {
	g := &Gate{prompter: prompter, trust: trust}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Decide resolves the confirmation state machine for one tool call. The
// silent-approval checks run in fixed order: skip-confirmation, turn-scoped
// allow-all, session trust, then the tool's own confirmation requirement.
func (g *Gate) Decide(ctx context.Context, state *State, toolName string, requiresConfirmation bool, input string) (Outcome, error) {
	if g.skipConfirmation {
		return OutcomeApproved, nil
	}
	if state != nil && state.AllowAll {
		return OutcomeApproved, nil
	}
	if g.trust != nil && g.trust.IsTrusted(toolName) {
		return OutcomeApproved, nil
	}
	if !requiresConfirmation {
		return OutcomeApproved, nil
	}

	if g.prompter == nil {
		return OutcomeDeclined, errors.New("confirmation required but no prompter configured")
	}

	choice, err := g.prompter.Ask(ctx, Request{ToolName: toolName, Input: input})
	if err != nil {
		return OutcomeDeclined, errors.Wrap(err, "prompt for confirmation")
	}

	switch choice {
	case ChoiceNo:
		return OutcomeDeclined, nil
	case ChoiceAbort:
		return OutcomeAborted, nil
	case ChoiceYes:
		return OutcomeApproved, nil
	case ChoiceYesAll:
		if state != nil {
			state.AllowAll = true
		}
		return OutcomeApproved, nil
	case ChoiceTrustSession:
		g.trustForSession(toolName)
		return OutcomeApproved, nil
	default:
		return OutcomeDeclined, errors.Errorf("unknown confirmation choice %d", choice)
	}
}

// trustForSession records the trust immediately and persists it in the
// background. A persistence failure never fails the call; it is logged.
func (g *Gate) trustForSession(toolName string) {
	if g.trust == nil {
		return
	}
	g.trust.Add(toolName)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := g.trust.Persist(ctx, toolName); err != nil {
			log.Warn().Err(err).Str("tool", toolName).Msg("confirm: failed to persist trusted tool")
		}
	}()
}
