package executor

import "strings"

// Command is an approved command ready to run.
type Command struct {
	// Display is what logs and API responses show for the command.
	Display string
	// Argv is the program and its arguments. For shell commands it holds the
	// single command line handed to "sh -c".
	Argv []string
	// Shell marks a command approved as a raw shell line.
	Shell bool
}

// ArgvCommand builds a command that is executed directly, without a shell.
func ArgvCommand(display string, argv ...string) Command {
	if display == "" {
		display = strings.Join(argv, " ")
	}
	return Command{Display: display, Argv: argv}
}

// ShellCommand builds a command that runs through the configured shell.
func ShellCommand(line string) Command {
	return Command{Display: line, Argv: []string{line}, Shell: true}
}

// String returns the display form.
func (c Command) String() string {
	return c.Display
}

// Kind returns "shell" or "argv", used as a metrics label.
func (c Command) Kind() string {
	if c.Shell {
		return "shell"
	}
	return "argv"
}
