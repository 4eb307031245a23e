// Package web exposes the HTTP surface: the messaging-platform webhook and a
// small operational API for question management and manual broadcasts.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"highnoon/internal/bot"
	"highnoon/internal/line"
	"highnoon/internal/scheduler"
	"highnoon/internal/storage"
	"highnoon/pkg/logx"
)

const defaultRatePerSec = 5

// Broadcaster is the slice of the daily service the admin API triggers by hand.
type Broadcaster interface {
	SendQuestion(ctx context.Context) error
	SendAnswer(ctx context.Context) error
	SendCountdown(ctx context.Context) error
}

// QuestionStore is the slice of the question repository the admin API needs.
type QuestionStore interface {
	Create(ctx context.Context, q storage.Question) (int64, error)
	Get(ctx context.Context, id int64) (*storage.Question, error)
	Delete(ctx context.Context, id int64) error
	Subjects(ctx context.Context) ([]string, error)
	BySubject(ctx context.Context, subject string) ([]storage.Question, error)
}

// StatusSource reports scheduler job state for the status endpoint.
type StatusSource interface {
	StatusAll() []scheduler.JobStatus
}

// UserDirectory backs the audience-stats endpoint.
type UserDirectory interface {
	AllByLang(ctx context.Context) (map[string][]string, error)
	EnabledByLang(ctx context.Context) (map[string][]string, error)
}

type Config struct {
	Addr            string
	AdminAllowCIDRs []string
	RatePerSec      float64
}

type Server struct {
	e    *echo.Echo
	addr string

	secret    string
	bot       *bot.Handler
	daily     Broadcaster
	questions QuestionStore
	users     UserDirectory
	status    StatusSource
	log       logx.Logger
}

func NewServer(cfg Config, secret string, h *bot.Handler, daily Broadcaster, questions QuestionStore, users UserDirectory, status StatusSource, log logx.Logger) (*Server, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Server{
		addr:      cfg.Addr,
		secret:    secret,
		bot:       h,
		daily:     daily,
		questions: questions,
		users:     users,
		status:    status,
		log:       log.With(logx.String("component", "web")),
	}

	adminGuard, err := adminIPAllow(cfg.AdminAllowCIDRs)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/", s.root)
	e.GET("/healthz", s.root)
	e.POST("/line_bot_webhook", s.webhook)

	limit := cfg.RatePerSec
	if limit <= 0 {
		limit = defaultRatePerSec
	}
	admin := e.Group("", adminGuard,
		middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(limit))))
	admin.POST("/db/question/create", s.createQuestion)
	admin.GET("/db/question/:id", s.getQuestion)
	admin.DELETE("/db/question/:id", s.deleteQuestion)
	admin.GET("/db/question/subjects", s.subjects)
	admin.GET("/db/question/subject/:subject", s.bySubject)
	admin.GET("/db/user/stats", s.userStats)
	admin.GET("/send/question", s.sendQuestion)
	admin.GET("/send/answer", s.sendAnswer)
	admin.GET("/send/countdown", s.sendCountdown)
	admin.GET("/scheduler/status", s.schedulerStatus)

	s.e = e
	return s, nil
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("http server starting", logx.String("addr", s.addr))
	err := s.e.Start(s.addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) root(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// webhook validates the platform signature and dispatches each event to the
// bot handler. The platform retries on non-2xx, so event processing errors
// are swallowed after logging; only an invalid request is rejected.
func (s *Server) webhook(c echo.Context) error {
	body, err := readBody(c.Request())
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	sig := c.Request().Header.Get("X-Line-Signature")
	if !line.ValidateSignature(s.secret, sig, body) {
		s.log.Warn("webhook signature rejected")
		return c.NoContent(http.StatusBadRequest)
	}

	var wb line.WebhookBody
	if err := json.Unmarshal(body, &wb); err != nil {
		s.log.Warn("webhook body unreadable", logx.Err(err))
		return c.NoContent(http.StatusBadRequest)
	}

	ctx := c.Request().Context()
	for _, ev := range wb.Events {
		s.bot.ProcessEvent(ctx, ev)
	}
	return c.String(http.StatusOK, "OK")
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	const maxBody = 1 << 20
	return io.ReadAll(io.LimitReader(r.Body, maxBody))
}

const sendTimeout = 5 * time.Minute

func (s *Server) sendQuestion(c echo.Context) error {
	return s.runSend(c, "question", s.daily.SendQuestion)
}

func (s *Server) sendAnswer(c echo.Context) error {
	return s.runSend(c, "answer", s.daily.SendAnswer)
}

func (s *Server) sendCountdown(c echo.Context) error {
	return s.runSend(c, "countdown", s.daily.SendCountdown)
}

func (s *Server) runSend(c echo.Context, kind string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), sendTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.log.Error("manual send failed", logx.String("kind", kind), logx.Err(err))
		return c.JSON(http.StatusInternalServerError, errorBody(err))
	}
	s.log.Info("manual send done", logx.String("kind", kind))
	return c.JSON(http.StatusOK, map[string]string{"status": "sent", "kind": kind})
}

type langStat struct {
	Total   int `json:"total"`
	Enabled int `json:"enabled"`
}

// userStats reports per-language audience sizes: how many users are known
// and how many are opted in to the daily broadcasts.
func (s *Server) userStats(c echo.Context) error {
	ctx := c.Request().Context()
	all, err := s.users.AllByLang(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err))
	}
	enabled, err := s.users.EnabledByLang(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err))
	}

	stats := make(map[string]langStat, len(all))
	for lang, ids := range all {
		stats[lang] = langStat{Total: len(ids), Enabled: len(enabled[lang])}
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) schedulerStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.status.StatusAll())
}

func errorBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}
