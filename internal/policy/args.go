package policy

import (
	"fmt"
	"strings"
)

// shellMetacharacters may not appear in alias literals. Alias commands are
// exec'd directly, so these would be passed as plain argv bytes anyway, but
// a literal containing them almost certainly expects a shell.
const shellMetacharacters = "|&;<>`$()\n"

// SplitArgs splits a command line into argv, honouring single and double
// quotes. Escapes are not interpreted.
func SplitArgs(command string) ([]string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, fmt.Errorf("empty command")
	}

	var args []string
	var current strings.Builder
	inSingleQuote := false
	inDoubleQuote := false
	quoted := false

	flush := func() {
		if current.Len() > 0 || quoted {
			args = append(args, current.String())
			current.Reset()
		}
		quoted = false
	}

	for _, r := range command {
		switch r {
		case '\'':
			if inDoubleQuote {
				current.WriteRune(r)
				continue
			}
			inSingleQuote = !inSingleQuote
			quoted = true

		case '"':
			if inSingleQuote {
				current.WriteRune(r)
				continue
			}
			inDoubleQuote = !inDoubleQuote
			quoted = true

		case ' ', '\t':
			if inSingleQuote || inDoubleQuote {
				current.WriteRune(r)
				continue
			}
			flush()

		default:
			current.WriteRune(r)
		}
	}

	if inSingleQuote || inDoubleQuote {
		return nil, fmt.Errorf("unterminated quote in %q", command)
	}
	flush()

	if len(args) == 0 {
		return nil, fmt.Errorf("no command found")
	}
	return args, nil
}

// checkLiteral rejects alias literals that would need a shell.
func checkLiteral(literal string) error {
	if i := strings.IndexAny(literal, shellMetacharacters); i >= 0 {
		return fmt.Errorf("literal %q contains shell metacharacter %q", literal, literal[i])
	}
	return nil
}
