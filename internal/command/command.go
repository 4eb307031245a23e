package command

import (
	"strings"

	"highnoon/pkg/logx"
)

// HandlerFunc runs a command. args holds the consumed positional arguments:
// at least the required ones, at most required+optional. The returned string
// is the reply text; an error from a handler is the handler's own and is
// passed through to the caller untouched.
type HandlerFunc[C any] func(ctx C, args []string) (string, error)

type spec[C any] struct {
	name     string
	handler  HandlerFunc[C]
	required []string
	optional []string
}

// Engine maps command names to handlers and dispatches parsed input lines.
// C is the caller-supplied per-invocation context type.
//
// The registry is populated once at startup and is read-only afterwards,
// so dispatch needs no locking.
type Engine[C any] struct {
	commands map[string]spec[C]
	log      logx.Logger
}

func NewEngine[C any](log logx.Logger) *Engine[C] {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Engine[C]{
		commands: map[string]spec[C]{},
		log:      log.With(logx.String("component", "command")),
	}
}

// Register stores handler under the lower-cased name. Registering the same
// name twice silently replaces the earlier entry.
func (e *Engine[C]) Register(name string, handler HandlerFunc[C], required, optional []string) {
	name = strings.ToLower(strings.TrimSpace(name))
	e.log.Debug("registering command",
		logx.String("name", name),
		logx.Any("required", required),
		logx.Any("optional", optional))
	e.commands[name] = spec[C]{
		name:     name,
		handler:  handler,
		required: append([]string(nil), required...),
		optional: append([]string(nil), optional...),
	}
}

// Names returns the registered command names (unordered).
func (e *Engine[C]) Names() []string {
	out := make([]string, 0, len(e.commands))
	for name := range e.commands {
		out = append(out, name)
	}
	return out
}

// ParseAndExecute tokenizes line, validates arity, and invokes the matching
// handler.
//
// Failure modes of the engine itself are typed: ErrNoCommand for blank
// input, *UnknownCommandError for an unregistered name, and
// *MissingArgumentsError when fewer arguments than required are supplied.
// Tokens beyond required+optional are dropped, not an error.
func (e *Engine[C]) ParseAndExecute(line string, ctx C) (string, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return "", ErrNoCommand
	}

	name := strings.ToLower(tokens[0])
	args := tokens[1:]

	cmd, ok := e.commands[name]
	if !ok {
		return "", &UnknownCommandError{Name: name}
	}

	if len(args) < len(cmd.required) {
		return "", &MissingArgumentsError{
			Name:     name,
			Required: append([]string(nil), cmd.required...),
		}
	}

	if maxArgs := len(cmd.required) + len(cmd.optional); len(args) > maxArgs {
		args = args[:maxArgs]
	}

	return cmd.handler(ctx, args)
}
