package interrupt

import (
	"strings"
	"time"
)

// Kind is the category assigned to one captured message.
type Kind string

const (
	// KindAbort asks the agent to stop the current turn entirely.
	KindAbort Kind = "abort"
	// KindCorrect points out a mistake in what the agent is doing.
	KindCorrect Kind = "correct"
	// KindModify adds or changes requirements for the ongoing task.
	KindModify Kind = "modify"
	// KindInfo is additional context with no specific directive.
	KindInfo Kind = "info"
)

// Classified is one captured message with its assigned category.
type Classified struct {
	Text       string
	Kind       Kind
	Confidence float64
	Timestamp  time.Time
}

// abortPhrases match only when they make up the whole message.
var abortPhrases = map[string]struct{}{
	"stop":       {},
	"stop it":    {},
	"cancel":     {},
	"abort":      {},
	"quit":       {},
	"halt":       {},
	"never mind": {},
	"nevermind":  {},
	"forget it":  {},
}

var abortPrefixes = []string{
	"stop ",
	"cancel ",
	"abort ",
	"don't continue",
	"dont continue",
}

var correctPrefixes = []string{
	"fix",
	"no wait",
	"no, wait",
	"no,",
	"wrong",
	"that's wrong",
	"thats wrong",
	"that is wrong",
	"not like that",
	"don't",
	"dont",
	"actually",
	"undo",
}

var modifyVerbs = map[string]struct{}{
	"add":     {},
	"also":    {},
	"include": {},
	"make":    {},
	"use":     {},
	"change":  {},
	"update":  {},
	"rename":  {},
	"remove":  {},
	"and":     {},
	"plus":    {},
}

// Classify assigns a category to one captured message using lexical signals.
// Classification is heuristic; Confidence reflects how strong the signal was.
func Classify(text string) Classified {
	c := Classified{
		Text:      text,
		Kind:      KindInfo,
		Timestamp: time.Now(),
	}

	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = strings.TrimRight(normalized, ".!")

	if normalized == "" {
		c.Confidence = 0.1
		return c
	}

	if _, ok := abortPhrases[normalized]; ok {
		c.Kind = KindAbort
		c.Confidence = 0.95
		return c
	}
	for _, p := range abortPrefixes {
		// short messages only: "stop using tabs everywhere" is an instruction, not an abort
		if strings.HasPrefix(normalized, p) && len(normalized) <= len(p)+10 {
			c.Kind = KindAbort
			c.Confidence = 0.7
			return c
		}
	}

	for _, p := range correctPrefixes {
		if strings.HasPrefix(normalized, p) {
			c.Kind = KindCorrect
			c.Confidence = 0.75
			return c
		}
	}

	firstWord := normalized
	if idx := strings.IndexByte(normalized, ' '); idx > 0 {
		firstWord = normalized[:idx]
	}
	if _, ok := modifyVerbs[firstWord]; ok {
		c.Kind = KindModify
		c.Confidence = 0.65
		return c
	}

	c.Confidence = 0.4
	return c
}
