package command

import (
	"errors"
	"testing"

	"highnoon/pkg/logx"
)

type testCtx struct {
	userID string
}

func newTestEngine() *Engine[testCtx] {
	return NewEngine[testCtx](logx.Nop())
}

func TestEmptyInput(t *testing.T) {
	t.Parallel()
	e := newTestEngine()
	for _, line := range []string{"", "   ", "\t \n"} {
		if _, err := e.ParseAndExecute(line, testCtx{}); !errors.Is(err, ErrNoCommand) {
			t.Fatalf("ParseAndExecute(%q) = %v, want ErrNoCommand", line, err)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	t.Parallel()
	e := newTestEngine()
	_, err := e.ParseAndExecute("foo", testCtx{})
	var unknown *UnknownCommandError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want *UnknownCommandError", err)
	}
	if unknown.Name != "foo" {
		t.Fatalf("Name = %q, want foo", unknown.Name)
	}
}

func TestMissingArguments(t *testing.T) {
	t.Parallel()
	e := newTestEngine()
	e.Register("echo", func(ctx testCtx, args []string) (string, error) {
		return args[0], nil
	}, []string{"msg"}, nil)

	_, err := e.ParseAndExecute("echo", testCtx{})
	var missing *MissingArgumentsError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want *MissingArgumentsError", err)
	}
	if missing.Name != "echo" {
		t.Fatalf("Name = %q, want echo", missing.Name)
	}
	if len(missing.Required) != 1 || missing.Required[0] != "msg" {
		t.Fatalf("Required = %v, want [msg]", missing.Required)
	}
}

func TestExtraTokensAreDropped(t *testing.T) {
	t.Parallel()
	e := newTestEngine()
	var got []string
	e.Register("echo", func(ctx testCtx, args []string) (string, error) {
		got = append([]string(nil), args...)
		return args[0], nil
	}, []string{"msg"}, nil)

	// "world" exceeds required+optional arity and is silently truncated.
	out, err := e.ParseAndExecute("echo hello world", testCtx{})
	if err != nil {
		t.Fatalf("ParseAndExecute error: %v", err)
	}
	if out != "hello" {
		t.Fatalf("result = %q, want %q", out, "hello")
	}
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("handler args = %v, want [hello]", got)
	}
}

func TestOptionalArguments(t *testing.T) {
	t.Parallel()
	e := newTestEngine()
	var got []string
	e.Register("lang", func(ctx testCtx, args []string) (string, error) {
		got = append([]string(nil), args...)
		return "", nil
	}, nil, []string{"lang"})

	if _, err := e.ParseAndExecute("lang", testCtx{}); err != nil {
		t.Fatalf("no-arg call error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("handler args = %v, want none", got)
	}

	if _, err := e.ParseAndExecute("lang zh_tw", testCtx{}); err != nil {
		t.Fatalf("one-arg call error: %v", err)
	}
	if len(got) != 1 || got[0] != "zh_tw" {
		t.Fatalf("handler args = %v, want [zh_tw]", got)
	}
}

func TestNameIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	e := newTestEngine()
	e.Register("PING", func(ctx testCtx, args []string) (string, error) {
		return "pong", nil
	}, nil, nil)

	for _, line := range []string{"ping", "Ping", "PING"} {
		out, err := e.ParseAndExecute(line, testCtx{})
		if err != nil || out != "pong" {
			t.Fatalf("ParseAndExecute(%q) = %q, %v", line, out, err)
		}
	}
}

func TestLastRegistrationWins(t *testing.T) {
	t.Parallel()
	e := newTestEngine()
	e.Register("ping", func(ctx testCtx, args []string) (string, error) { return "old", nil }, nil, nil)
	e.Register("ping", func(ctx testCtx, args []string) (string, error) { return "new", nil }, nil, nil)

	out, err := e.ParseAndExecute("ping", testCtx{})
	if err != nil || out != "new" {
		t.Fatalf("ParseAndExecute = %q, %v; want new", out, err)
	}
}

func TestHandlerErrorPassesThrough(t *testing.T) {
	t.Parallel()
	e := newTestEngine()
	boom := errors.New("boom")
	e.Register("fail", func(ctx testCtx, args []string) (string, error) { return "", boom }, nil, nil)

	if _, err := e.ParseAndExecute("fail", testCtx{}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want handler's own error", err)
	}
}

func TestContextIsHandedThrough(t *testing.T) {
	t.Parallel()
	e := newTestEngine()
	e.Register("whoami", func(ctx testCtx, args []string) (string, error) {
		return ctx.userID, nil
	}, nil, nil)

	out, err := e.ParseAndExecute("whoami", testCtx{userID: "U123"})
	if err != nil || out != "U123" {
		t.Fatalf("ParseAndExecute = %q, %v", out, err)
	}
}
