package bot

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"highnoon/internal/command"
	"highnoon/internal/i18n"
)

// RegisterCommands installs the bot's built-in command set on engine.
// Called once at startup; the registry is read-only afterwards.
func RegisterCommands(engine *command.Engine[Context], users UserStore, tr Translator) {
	c := &commands{users: users, i18n: tr, roll: func() int { return rand.Intn(6) + 1 }}

	engine.Register("help", c.help, nil, nil)
	engine.Register("toggle", c.toggle, nil, nil)
	engine.Register("lang", c.lang, nil, []string{"lang"})
	engine.Register("echo", c.echo, []string{"msg"}, nil)
	engine.Register("6", c.six, nil, nil)
	engine.Register("114", c.oneOneFour, nil, nil)
	engine.Register("roll", c.rollDie, nil, nil)
	engine.Register("scream", c.scream, nil, nil)
	engine.Register("ping", c.ping, nil, nil)
	engine.Register("about", c.about, nil, nil)
}

type commands struct {
	users UserStore
	i18n  Translator
	roll  func() int
}

func (c *commands) help(ctx Context, args []string) (string, error) {
	return c.i18n.Get(i18n.KeyCmdHelp, ctx.Lang), nil
}

// toggle flips the caller's daily-broadcast opt-in.
func (c *commands) toggle(ctx Context, args []string) (string, error) {
	enabled, err := c.users.ToggleEnabled(ctx.Ctx, ctx.UserID)
	if err != nil {
		return "", err
	}
	if enabled {
		return c.i18n.Get(i18n.KeyCmdToggleEnable, ctx.Lang), nil
	}
	return c.i18n.Get(i18n.KeyCmdToggleDisable, ctx.Lang), nil
}

// lang with no argument lists the choices; with an argument it stores the
// caller's preference. An unsupported value falls back to the list.
func (c *commands) lang(ctx Context, args []string) (string, error) {
	if len(args) == 0 {
		return c.availableLangs(ctx.Lang), nil
	}
	l, ok := i18n.TryParseLang(args[0])
	if !ok {
		return c.availableLangs(ctx.Lang), nil
	}
	if err := c.users.SetLang(ctx.Ctx, ctx.UserID, string(l)); err != nil {
		return "", err
	}
	// confirm in the newly selected language
	return fmt.Sprintf(c.i18n.Get(i18n.KeySetLang, l), string(l)), nil
}

func (c *commands) availableLangs(lang i18n.Lang) string {
	codes := make([]string, 0, len(i18n.Langs()))
	for _, l := range i18n.Langs() {
		codes = append(codes, string(l))
	}
	return fmt.Sprintf(c.i18n.Get(i18n.KeyAvailableLangs, lang), strings.Join(codes, ", "))
}

func (c *commands) echo(ctx Context, args []string) (string, error) {
	return args[0], nil
}

func (c *commands) six(ctx Context, args []string) (string, error) {
	return "6", nil
}

func (c *commands) oneOneFour(ctx Context, args []string) (string, error) {
	return "514", nil
}

func (c *commands) rollDie(ctx Context, args []string) (string, error) {
	return strconv.Itoa(c.roll()), nil
}

func (c *commands) scream(ctx Context, args []string) (string, error) {
	return c.i18n.Get(i18n.KeyCmdScream, ctx.Lang), nil
}

func (c *commands) ping(ctx Context, args []string) (string, error) {
	return "pong", nil
}

func (c *commands) about(ctx Context, args []string) (string, error) {
	return c.i18n.Get(i18n.KeyCmdAbout, ctx.Lang), nil
}
