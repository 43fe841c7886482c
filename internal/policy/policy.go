// Package policy decides which commands the gateway may run.
//
// Two modes exist. Alias mode maps a fixed key to a literal argv and never
// looks at caller text beyond the key. Prefix mode approves raw input whose
// first token is a configured program name; everything after that token
// reaches "sh -c" verbatim. Prefix mode is therefore a trust boundary that
// operators must opt into explicitly.
package policy

import (
	"fmt"
	"strings"

	"github.com/wasilibs/go-re2"
	"golang.org/x/text/unicode/norm"

	"github.com/aatumaykin/cronkeeper/internal/apperrors"
	"github.com/aatumaykin/cronkeeper/internal/executor"
)

// Mode identifies how a decision was reached.
type Mode string

const (
	ModeAlias  Mode = "alias"
	ModePrefix Mode = "prefix"
)

// ReasonNotPermitted is the reason reported for unknown alias keys.
const ReasonNotPermitted = "not permitted"

// Config holds the static policy configuration.
type Config struct {
	// AliasOverrides replaces the literal of a known alias, keyed by alias key.
	AliasOverrides map[string]string
	// PrefixModeEnabled turns on raw-command authorization.
	PrefixModeEnabled bool
	// Prefixes are the program names (or multi-word prefixes) allowed in prefix mode.
	Prefixes []string
	// DenyPatterns are RE2 expressions; a raw command matching any is rejected.
	DenyPatterns []string
}

// Decision is an approved command.
type Decision struct {
	Mode    Mode
	Alias   Alias
	Command executor.Command
}

// Engine is immutable after construction and safe for concurrent use.
type Engine struct {
	literals      map[Alias][]string
	prefixEnabled bool
	prefixes      []string
	deny          []*re2.Regexp
}

// NewEngine validates cfg and builds an engine.
func NewEngine(cfg Config) (*Engine, error) {
	e := &Engine{
		literals:      make(map[Alias][]string, len(allAliases)),
		prefixEnabled: cfg.PrefixModeEnabled,
	}

	for _, a := range allAliases {
		e.literals[a] = a.DefaultArgv()
	}
	for key, literal := range cfg.AliasOverrides {
		a, ok := ParseAlias(key)
		if !ok {
			return nil, fmt.Errorf("policy.aliases: unknown alias %q (known: %s)", key, strings.Join(Keys(), ", "))
		}
		if err := checkLiteral(literal); err != nil {
			return nil, fmt.Errorf("policy.aliases.%s: %w", key, err)
		}
		argv, err := SplitArgs(literal)
		if err != nil {
			return nil, fmt.Errorf("policy.aliases.%s: %w", key, err)
		}
		e.literals[a] = argv
	}

	for _, p := range cfg.Prefixes {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("policy.prefixes contains an empty entry")
		}
		e.prefixes = append(e.prefixes, p)
	}
	if cfg.PrefixModeEnabled && len(e.prefixes) == 0 {
		return nil, fmt.Errorf("policy.prefixes cannot be empty when prefix mode is enabled")
	}

	for _, pattern := range cfg.DenyPatterns {
		re, err := re2.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("policy.deny_patterns: invalid pattern %q: %w", pattern, err)
		}
		e.deny = append(e.deny, re)
	}

	return e, nil
}

// Authorize resolves an alias key. Only an exact key match succeeds.
func (e *Engine) Authorize(key string) (Decision, error) {
	a, ok := ParseAlias(key)
	if !ok {
		return Decision{}, apperrors.NotPermitted(ReasonNotPermitted).
			WithDetail("command", key).
			WithSuggestion("use one of: " + strings.Join(Keys(), ", "))
	}

	argv := e.literals[a]
	return Decision{
		Mode:    ModeAlias,
		Alias:   a,
		Command: executor.ArgvCommand(a.Key(), argv...),
	}, nil
}

// AuthorizeRaw approves a raw command line in prefix mode.
// The approved command runs through a shell with the caller's text unchanged.
func (e *Engine) AuthorizeRaw(input string) (Decision, error) {
	if !e.prefixEnabled {
		return Decision{}, reject(input, "raw commands are disabled")
	}

	command := strings.TrimSpace(input)
	if command == "" {
		return Decision{}, reject(input, "empty command")
	}
	if norm.NFKC.String(command) != command {
		return Decision{}, reject(input, "command contains non-canonical unicode")
	}
	for _, re := range e.deny {
		if re.MatchString(command) {
			return Decision{}, reject(input, "command matches deny pattern "+re.String())
		}
	}

	for _, prefix := range e.prefixes {
		if matchPrefix(command, prefix) {
			return Decision{
				Mode:    ModePrefix,
				Command: executor.ShellCommand(command),
			}, nil
		}
	}
	return Decision{}, reject(input, "command not in whitelist")
}

// PrefixModeEnabled reports whether AuthorizeRaw can ever succeed.
func (e *Engine) PrefixModeEnabled() bool {
	return e.prefixEnabled
}

// Argv returns the literal argv configured for an alias.
func (e *Engine) Argv(a Alias) []string {
	argv := e.literals[a]
	out := make([]string, len(argv))
	copy(out, argv)
	return out
}

// matchPrefix reports whether command starts with prefix on a token boundary,
// so "rm" does not approve "rmdir".
func matchPrefix(command, prefix string) bool {
	if command == prefix {
		return true
	}
	if !strings.HasPrefix(command, prefix) {
		return false
	}
	next := command[len(prefix)]
	return next == ' ' || next == '\t'
}

func reject(input, reason string) *apperrors.Error {
	return apperrors.NotPermitted(reason).WithDetail("command", input)
}
