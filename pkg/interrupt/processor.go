package interrupt

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Group is one ordered block of same-kind interruptions.
type Group struct {
	Kind  Kind
	Title string
	Items []Classified
}

// Processed is the outcome of folding a batch of classified interruptions
// into an abort decision plus injectable context.
type Processed struct {
	ShouldAbort bool
	Summary     string
	Groups      []Group
}

// Process folds a batch of classified interruptions. Any abort message makes
// ShouldAbort true; the remaining messages are still grouped so the caller can
// decide whether to surface them.
func Process(items []Classified) Processed {
	var p Processed

	counts := map[Kind]int{}
	byKind := map[Kind][]Classified{}
	for _, item := range items {
		counts[item.Kind]++
		if item.Kind != KindAbort {
			byKind[item.Kind] = append(byKind[item.Kind], item)
		}
	}

	p.ShouldAbort = counts[KindAbort] > 0

	// groups in fixed priority order, kept even when aborting
	order := []struct {
		kind  Kind
		title string
	}{
		{KindCorrect, "Corrections (high priority)"},
		{KindModify, "Modifications"},
		{KindInfo, "Additional context"},
	}
	for _, g := range order {
		if msgs := byKind[g.kind]; len(msgs) > 0 {
			p.Groups = append(p.Groups, Group{Kind: g.kind, Title: g.title, Items: msgs})
		}
	}

	p.Summary = summarize(p.ShouldAbort, counts)

	log.Debug().
		Bool("should_abort", p.ShouldAbort).
		Int("corrections", counts[KindCorrect]).
		Int("modifications", counts[KindModify]).
		Int("info", counts[KindInfo]).
		Msg("interrupt: processed captured messages")

	return p
}

func summarize(abort bool, counts map[Kind]int) string {
	var parts []string
	if n := counts[KindCorrect]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d correction(s)", n))
	}
	if n := counts[KindModify]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d modification(s)", n))
	}
	if n := counts[KindInfo]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d note(s)", n))
	}

	if abort {
		if len(parts) == 0 {
			return "Abort requested by user"
		}
		return fmt.Sprintf("Abort requested by user; pending feedback: %s", strings.Join(parts, ", "))
	}
	if len(parts) == 0 {
		return "no actionable feedback"
	}
	return strings.Join(parts, ", ")
}

// Format renders the non-abort groups as one injectable context block. The
// block is prefixed with a header instructing the agent to incorporate the
// feedback. Returns the empty string when there is nothing to inject.
func (p Processed) Format() string {
	if len(p.Groups) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("The user sent feedback while you were working. Incorporate it before continuing:\n")
	for _, g := range p.Groups {
		b.WriteString("\n")
		b.WriteString(g.Title)
		b.WriteString(":\n")
		for i, item := range g.Items {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, item.Text))
		}
	}
	return b.String()
}
