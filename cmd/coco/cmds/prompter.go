package cmds

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/pkg/errors"
	input "github.com/tcnksm/go-input"

	"github.com/corbat-tech/coco/pkg/confirm"
)

var answerToChoice = map[string]confirm.Choice{
	"y":     confirm.ChoiceYes,
	"yes":   confirm.ChoiceYes,
	"n":     confirm.ChoiceNo,
	"no":    confirm.ChoiceNo,
	"a":     confirm.ChoiceAbort,
	"abort": confirm.ChoiceAbort,
	"all":   confirm.ChoiceYesAll,
	"trust": confirm.ChoiceTrustSession,
}

// consolePrompter asks for tool confirmation on the terminal. When input
// capture is active it must be suspended first, otherwise the raw-mode
// reader would swallow the answer; the pause hook does that.
type consolePrompter struct {
	mu    sync.Mutex
	pause func() func()
}

func (p *consolePrompter) SetPause(pause func() func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pause = pause
}

func (p *consolePrompter) Ask(_ context.Context, req confirm.Request) (confirm.Choice, error) {
	p.mu.Lock()
	pause := p.pause
	p.mu.Unlock()
	if pause != nil {
		resume := pause()
		defer resume()
	}

	ui := &input.UI{
		Writer: os.Stderr,
		Reader: os.Stdin,
	}
	query := fmt.Sprintf("\nRun tool %s?\n  %s\n[y]es / [n]o / [a]bort / all (rest of turn) / trust (this session)", req.ToolName, req.Input)
	answer, err := ui.Ask(query, &input.Options{
		Default:  "n",
		Required: true,
		Loop:     true,
		ValidateFunc: func(answer string) error {
			if _, ok := answerToChoice[answer]; !ok {
				return fmt.Errorf("please answer y, n, a, all or trust")
			}
			return nil
		},
	})
	if err != nil {
		return confirm.ChoiceNo, errors.Wrap(err, "read confirmation answer")
	}
	return answerToChoice[answer], nil
}
