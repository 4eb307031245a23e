// Package daily implements the bot's scheduled broadcasts: the question of
// the day, its answer, and the exam countdown.
package daily

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"highnoon/internal/i18n"
	"highnoon/internal/notifier"
	"highnoon/internal/scheduler"
	"highnoon/internal/storage"
	"highnoon/pkg/logx"
)

// UserDirectory yields broadcast recipients segmented by language.
type UserDirectory interface {
	EnabledByLang(ctx context.Context) (map[string][]string, error)
}

// QuestionSource draws questions for the daily rotation.
type QuestionSource interface {
	RandomUnseen(ctx context.Context, resetIfExhausted bool) (*storage.Question, error)
}

// Translator resolves localized strings.
type Translator interface {
	Get(key string, lang i18n.Lang) string
}

// Config holds the fire times (HH:MM, UTC) and the countdown target.
type Config struct {
	Enabled       bool
	QuestionAt    string
	AnswerAt      string
	CountdownAt   string
	CountdownDate time.Time // the day counted down to
}

// sendTimeout bounds one whole broadcast, all batches included.
const sendTimeout = 5 * time.Minute

// Service owns the question-of-the-day state and the three broadcast jobs.
type Service struct {
	users     UserDirectory
	questions QuestionSource
	i18n      Translator
	notify    notifier.Notifier
	cfg       Config
	log       logx.Logger

	now func() time.Time

	mu    sync.Mutex
	today *storage.Question
}

func New(cfg Config, users UserDirectory, questions QuestionSource, tr Translator, n notifier.Notifier, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		users:     users,
		questions: questions,
		i18n:      tr,
		notify:    n,
		cfg:       cfg,
		log:       log.With(logx.String("component", "daily")),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register wires the three jobs into the scheduler and returns their ids in
// question, answer, countdown order.
func (s *Service) Register(sched *scheduler.Service) ([]uuid.UUID, error) {
	jobs := []struct {
		name   string
		at     string
		action scheduler.Action
	}{
		{"question", s.cfg.QuestionAt, s.sendWith(s.SendQuestion)},
		{"answer", s.cfg.AnswerAt, s.sendWith(s.SendAnswer)},
		{"countdown", s.cfg.CountdownAt, s.sendWith(s.SendCountdown)},
	}

	ids := make([]uuid.UUID, 0, len(jobs))
	for _, j := range jobs {
		// the countdown job is optional
		if j.at == "" {
			continue
		}
		id, err := sched.Register(j.action, j.at, s.cfg.Enabled)
		if err != nil {
			return nil, fmt.Errorf("daily: register %s job: %w", j.name, err)
		}
		s.log.Info("job scheduled",
			logx.String("name", j.name),
			logx.String("at", j.at),
			logx.String("job", id.String()))
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Service) sendWith(fn func(ctx context.Context) error) scheduler.Action {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		return fn(ctx)
	}
}

// MakeQuestion draws the next question, remembers it as today's, and returns
// its prompt. With an empty pool the rotation resets; "none" mirrors an
// empty database.
func (s *Service) MakeQuestion(ctx context.Context) (string, error) {
	q, err := s.questions.RandomUnseen(ctx, true)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.today = q
	s.mu.Unlock()

	if q == nil {
		return "none", nil
	}
	return q.Prompt(), nil
}

// MakeAnswer renders today's answer, or "none" before the first question.
func (s *Service) MakeAnswer() string {
	s.mu.Lock()
	q := s.today
	s.mu.Unlock()
	if q == nil {
		return "none"
	}
	return q.Answer()
}

// SendQuestion broadcasts the question of the day to all opted-in users.
func (s *Service) SendQuestion(ctx context.Context) error {
	s.log.Info("making question")
	text, err := s.MakeQuestion(ctx)
	if err != nil {
		return fmt.Errorf("daily: pick question: %w", err)
	}
	return s.broadcast(ctx, func(lang i18n.Lang) string { return text })
}

// SendAnswer broadcasts today's answer.
func (s *Service) SendAnswer(ctx context.Context) error {
	s.log.Info("making answer")
	text := s.MakeAnswer()
	return s.broadcast(ctx, func(lang i18n.Lang) string { return text })
}

// SendCountdown broadcasts the localized days-left message.
func (s *Service) SendCountdown(ctx context.Context) error {
	days := s.DaysLeft()
	return s.broadcast(ctx, func(lang i18n.Lang) string {
		return fmt.Sprintf(s.i18n.Get(i18n.KeyCountdown, lang), days)
	})
}

// DaysLeft counts whole days from today (UTC) to the countdown date.
// Negative once the date has passed.
func (s *Service) DaysLeft() int {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	d := s.cfg.CountdownDate
	target := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return int(target.Sub(today) / (24 * time.Hour))
}

// broadcast pushes render(lang) to each language segment of the opted-in
// audience.
func (s *Service) broadcast(ctx context.Context, render func(lang i18n.Lang) string) error {
	grouped, err := s.users.EnabledByLang(ctx)
	if err != nil {
		return fmt.Errorf("daily: list recipients: %w", err)
	}

	for langCode, ids := range grouped {
		if len(ids) == 0 {
			continue
		}
		text := render(i18n.ParseLang(langCode))
		if err := s.notify.Push(ctx, ids, []string{text}); err != nil {
			return fmt.Errorf("daily: push to %q segment: %w", langCode, err)
		}
		s.log.Info("segment delivered", logx.String("lang", langCode), logx.Int("recipients", len(ids)))
	}
	return nil
}
