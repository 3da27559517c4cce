package safety

import (
	"io"
	"regexp"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Category groups deny rules by the class of damage they prevent.
type Category string

const (
	CategoryFilesystemDestruction Category = "filesystem-destruction"
	CategoryRawDeviceWrite        Category = "raw-device-write"
	CategoryPartitionFormat       Category = "partition-format"
	CategoryPipeToShell           Category = "pipe-to-shell"
	CategoryCommandSubstitution   Category = "command-substitution"
	CategoryPermissionChange      Category = "permission-change"
	CategorySystemConfigWrite     Category = "system-config-write"
	CategoryForkBomb              Category = "fork-bomb"
)

// Rule is one entry of the deny table. Pattern is a Go regular expression
// matched against the whole command string.
type Rule struct {
	Pattern   string   `yaml:"pattern"`
	Category  Category `yaml:"category"`
	Rationale string   `yaml:"rationale"`
}

type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

// Policy evaluates shell commands against a deny table. The built-in table is
// always present; Extend can only add rules, never remove or relax them.
// Risk mode widens auto-approval but never bypasses the deny table.
type Policy struct {
	rules []compiledRule
}

// NewPolicy compiles the built-in deny table.
func NewPolicy() *Policy {
	p := &Policy{}
	for _, r := range builtinRules {
		if err := p.add(r); err != nil {
			// built-in patterns are covered by tests, a failure here is a programming error
			panic(errors.Wrapf(err, "safety: invalid built-in pattern %q", r.Pattern))
		}
	}
	return p
}

func (p *Policy) add(r Rule) error {
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return errors.Wrapf(err, "compile pattern %q", r.Pattern)
	}
	p.rules = append(p.rules, compiledRule{rule: r, re: re})
	return nil
}

// Extend appends additional rules to the deny table.
func (p *Policy) Extend(rules ...Rule) error {
	for _, r := range rules {
		if err := p.add(r); err != nil {
			return err
		}
	}
	return nil
}

// LoadRules parses a YAML rule list, e.g. from a user-provided policy file.
func LoadRules(r io.Reader) ([]Rule, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read rules")
	}
	var rules []Rule
	if err := yaml.Unmarshal(b, &rules); err != nil {
		return nil, errors.Wrap(err, "unmarshal rules")
	}
	for i, rule := range rules {
		if rule.Pattern == "" {
			return nil, errors.Errorf("rule %d: empty pattern", i)
		}
	}
	return rules, nil
}

// IsBlocked reports whether the command matches any deny rule.
func (p *Policy) IsBlocked(command string) bool {
	_, blocked := p.MatchBlocked(command)
	return blocked
}

// MatchBlocked returns the first matching deny rule, if any.
func (p *Policy) MatchBlocked(command string) (*Rule, bool) {
	for i := range p.rules {
		if p.rules[i].re.MatchString(command) {
			r := p.rules[i].rule
			log.Debug().
				Str("category", string(r.Category)).
				Str("pattern", r.Pattern).
				Msg("safety: command matched deny rule")
			return &r, true
		}
	}
	return nil, false
}

// ShouldAutoApprove reports whether a command may run without prompting under
// risk mode. It is false whenever risk mode is disabled, and never true for a
// blocked command.
func (p *Policy) ShouldAutoApprove(command string, riskMode bool) bool {
	if !riskMode {
		return false
	}
	return !p.IsBlocked(command)
}

// Rules returns a copy of the current deny table, for auditing.
func (p *Policy) Rules() []Rule {
	out := make([]Rule, 0, len(p.rules))
	for _, cr := range p.rules {
		out = append(out, cr.rule)
	}
	return out
}
