// Package bot processes inbound webhook messages: it maintains the sender's
// user record, dispatches slash-commands through the command engine, and
// renders localized replies for the engine's typed errors.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"highnoon/internal/command"
	"highnoon/internal/i18n"
	"highnoon/internal/line"
	"highnoon/pkg/logx"
)

// Context is the per-invocation value handed to command handlers.
type Context struct {
	Ctx    context.Context
	UserID string
	Lang   i18n.Lang
}

// UserStore is the slice of the user repository the handler needs.
type UserStore interface {
	Create(ctx context.Context, userID string) error
	Remove(ctx context.Context, userID string) error
	Lang(ctx context.Context, userID string) (string, error)
	SetLang(ctx context.Context, userID, lang string) error
	ToggleEnabled(ctx context.Context, userID string) (bool, error)
}

// Translator resolves localized strings.
type Translator interface {
	Get(key string, lang i18n.Lang) string
}

// Replier is the slice of the platform client used for webhook replies.
type Replier interface {
	Reply(ctx context.Context, replyToken string, texts ...string) error
	ShowLoadingAnimation(ctx context.Context, chatID string, seconds int) error
}

// Handler ties the engine, the user store and the reply transport together.
type Handler struct {
	engine  *command.Engine[Context]
	users   UserStore
	i18n    Translator
	replier Replier
	log     logx.Logger
}

func New(engine *command.Engine[Context], users UserStore, tr Translator, replier Replier, log logx.Logger) *Handler {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Handler{
		engine:  engine,
		users:   users,
		i18n:    tr,
		replier: replier,
		log:     log.With(logx.String("component", "bot")),
	}
}

// ProcessEvent handles one webhook event end to end. Errors never escape:
// whatever goes wrong, the user gets a generic localized failure reply.
func (h *Handler) ProcessEvent(ctx context.Context, ev line.Event) {
	switch ev.Type {
	case line.EventTypeFollow:
		h.follow(ctx, ev)
		return
	case line.EventTypeUnfollow:
		h.unfollow(ctx, ev)
		return
	}
	if ev.Type != line.EventTypeMessage || ev.Message == nil || ev.Message.Type != line.MessageTypeText {
		return
	}

	var userID string
	if ev.Source != nil && ev.Source.Type == line.SourceTypeUser {
		userID = ev.Source.UserID
		// best-effort typing indicator
		_ = h.replier.ShowLoadingAnimation(ctx, userID, 20)
		if err := h.users.Create(ctx, userID); err != nil {
			h.log.Error("user upsert failed", logx.String("user", userID), logx.Err(err))
		}
	}

	lang := h.userLang(ctx, userID)
	reply := h.processText(ctx, userID, lang, ev.Message.Text)
	if reply == "" {
		return
	}
	if err := h.replier.Reply(ctx, ev.ReplyToken, reply); err != nil {
		h.log.Error("reply failed", logx.String("user", userID), logx.Err(err))
	}
}

func (h *Handler) follow(ctx context.Context, ev line.Event) {
	if ev.Source == nil || ev.Source.Type != line.SourceTypeUser {
		return
	}
	if err := h.users.Create(ctx, ev.Source.UserID); err != nil {
		h.log.Error("follow upsert failed", logx.String("user", ev.Source.UserID), logx.Err(err))
		return
	}
	h.log.Info("user followed", logx.String("user", ev.Source.UserID))
}

// unfollow drops the user record; blocking the bot withdraws consent for
// the daily broadcasts.
func (h *Handler) unfollow(ctx context.Context, ev line.Event) {
	if ev.Source == nil || ev.Source.Type != line.SourceTypeUser {
		return
	}
	if err := h.users.Remove(ctx, ev.Source.UserID); err != nil {
		h.log.Error("unfollow removal failed", logx.String("user", ev.Source.UserID), logx.Err(err))
		return
	}
	h.log.Info("user unfollowed", logx.String("user", ev.Source.UserID))
}

func (h *Handler) userLang(ctx context.Context, userID string) i18n.Lang {
	if userID == "" {
		return i18n.DefaultLang
	}
	stored, err := h.users.Lang(ctx, userID)
	if err != nil {
		h.log.Warn("language lookup failed", logx.String("user", userID), logx.Err(err))
		return i18n.DefaultLang
	}
	return i18n.ParseLang(stored)
}

// processText dispatches a slash-command line and maps the engine's typed
// errors onto localized replies. Non-command text gets no reply.
func (h *Handler) processText(ctx context.Context, userID string, lang i18n.Lang, text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}

	cctx := Context{Ctx: ctx, UserID: userID, Lang: lang}
	reply, err := h.engine.ParseAndExecute(strings.TrimPrefix(text, "/"), cctx)
	if err == nil {
		return reply
	}

	var unknown *command.UnknownCommandError
	var missing *command.MissingArgumentsError
	switch {
	case errors.Is(err, command.ErrNoCommand):
		// a bare "/": answer something rather than nothing
		return h.i18n.Get(i18n.KeyCmdScream, lang)
	case errors.As(err, &unknown):
		return h.i18n.Get(i18n.KeyCmdUnknown, lang)
	case errors.As(err, &missing):
		return fmt.Sprintf(h.i18n.Get(i18n.KeyMissingArgs, lang), strings.Join(missing.Required, ", "))
	default:
		// A handler's own error: log it, hide the detail from the user.
		h.log.Error("command failed", logx.String("user", userID), logx.Err(err))
		return h.i18n.Get(i18n.KeyProcessingError, lang)
	}
}
