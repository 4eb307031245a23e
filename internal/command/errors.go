package command

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoCommand is returned when the input is empty or whitespace-only.
var ErrNoCommand = errors.New("command: no command provided")

// UnknownCommandError reports a name with no registration.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("command: unknown command %q", e.Name)
}

// MissingArgumentsError reports fewer tokens than the command requires.
// Required lists the command's full required-argument names, in order.
type MissingArgumentsError struct {
	Name     string
	Required []string
}

func (e *MissingArgumentsError) Error() string {
	return fmt.Sprintf("command: %q requires arguments: %s", e.Name, strings.Join(e.Required, ", "))
}
