// Package app is the composition root: it loads config, builds every
// service, and owns the start/stop lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"highnoon/internal/bot"
	"highnoon/internal/command"
	"highnoon/internal/config"
	"highnoon/internal/daily"
	"highnoon/internal/i18n"
	"highnoon/internal/line"
	"highnoon/internal/notifier"
	"highnoon/internal/scheduler"
	"highnoon/internal/storage"
	"highnoon/internal/web"
	"highnoon/pkg/logx"
)

const (
	envChannelSecret = "LINE_CHANNEL_SECRET"
	envChannelToken  = "LINE_CHANNEL_ACCESS_TOKEN"
)

type App struct {
	cfgm   *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	db     *storage.DB
	sched  *scheduler.Service
	daily  *daily.Service
	server *web.Server

	watchCancel context.CancelFunc
	cfgSub      chan *config.Config
	wg          sync.WaitGroup

	serverErr chan error
}

func New(cfgPath string) (*App, error) {
	// Bootstrap logging so config load failures are visible; the real
	// settings are applied right after the file is read.
	logSvc, rootLog := logx.New(logx.Config{Level: "info", Console: true})

	cfgm := config.NewManager(cfgPath, rootLog)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	logSvc.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log := rootLog.With(logx.String("component", "app"))

	lineCfg := lineConfigFromEnv(cfg.Line)
	if lineCfg.ChannelSecret == "" || lineCfg.ChannelAccessToken == "" {
		return nil, errors.New("line channel credentials are required (config or environment)")
	}

	db, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.BusyTimeoutDuration(),
	}, rootLog)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	users := db.Users()
	questions := db.Questions()

	tr, err := i18n.New(cfg.Locales.Dir, rootLog)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load locales: %w", err)
	}

	client := line.NewClient(lineCfg, rootLog)
	notif := notifier.New(notifier.Config{
		RatePerSec: cfg.Notifier.RatePerSec,
		BatchSize:  cfg.Notifier.BatchSize,
	}, client, rootLog)

	var schedOpts []scheduler.Option
	if d := cfg.WakeIntervalDuration(); d > 0 {
		schedOpts = append(schedOpts, scheduler.WithWakeInterval(d))
	}
	sched := scheduler.New(rootLog, schedOpts...)

	dailyCfg, err := dailyConfig(cfg.Daily)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dailySvc := daily.New(dailyCfg, users, questions, tr, notif, rootLog)

	engine := command.NewEngine[bot.Context](rootLog)
	bot.RegisterCommands(engine, users, tr)
	handler := bot.New(engine, users, tr, client, rootLog)

	server, err := web.NewServer(web.Config{
		Addr:            cfg.Server.Addr,
		AdminAllowCIDRs: cfg.Server.AdminAllowCIDRs,
		RatePerSec:      cfg.Server.RatePerSec,
	}, client.ChannelSecret(), handler, dailySvc, questions, users, sched, rootLog)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &App{
		cfgm:      cfgm,
		logSvc:    logSvc,
		log:       log,
		db:        db,
		sched:     sched,
		daily:     dailySvc,
		server:    server,
		serverErr: make(chan error, 1),
	}, nil
}

func lineConfigFromEnv(base config.LineConfig) line.Config {
	cfg := line.Config{
		ChannelSecret:      base.ChannelSecret,
		ChannelAccessToken: base.ChannelAccessToken,
		APIBase:            base.APIBase,
	}
	if v := strings.TrimSpace(os.Getenv(envChannelSecret)); v != "" {
		cfg.ChannelSecret = v
	}
	if v := strings.TrimSpace(os.Getenv(envChannelToken)); v != "" {
		cfg.ChannelAccessToken = v
	}
	return cfg
}

func dailyConfig(cfg config.DailyConfig) (daily.Config, error) {
	out := daily.Config{
		Enabled:     cfg.Enabled,
		QuestionAt:  cfg.QuestionAt,
		AnswerAt:    cfg.AnswerAt,
		CountdownAt: cfg.CountdownAt,
	}
	if cfg.CountdownDate != "" {
		d, err := time.ParseInLocation("2006-01-02", cfg.CountdownDate, time.UTC)
		if err != nil {
			return daily.Config{}, fmt.Errorf("daily.countdown_date: %w", err)
		}
		out.CountdownDate = d
	}
	return out, nil
}

// Start brings up the scheduler jobs, the config watcher and the HTTP
// server. It returns once everything is running; server failures surface
// via Err.
func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgm.Get()

	if cfg.Daily.Enabled {
		ids, err := a.daily.Register(a.sched)
		if err != nil {
			return fmt.Errorf("register daily jobs: %w", err)
		}
		a.log.Info("daily jobs registered", logx.Int("count", len(ids)))
		a.sched.Start()
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	a.watchCancel = cancel
	a.cfgSub = a.cfgm.Subscribe(1)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.cfgm.Watch(watchCtx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.applyUpdates(watchCtx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.server.Start(); err != nil {
			a.log.Error("http server failed", logx.Err(err))
			select {
			case a.serverErr <- err:
			default:
			}
		}
	}()

	a.log.Info("started")
	return nil
}

// Err reports a fatal HTTP server failure, if one happened.
func (a *App) Err() <-chan error { return a.serverErr }

// applyUpdates consumes hot-reloaded configs. Only logging settings take
// effect live; everything else needs a restart and is just noted.
func (a *App) applyUpdates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-a.cfgSub:
			if !ok {
				return
			}
			a.logSvc.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
			})
			a.log.Info("logging settings reapplied; other changes take effect on restart")
		}
	}
}

func (a *App) Stop(ctx context.Context) error {
	var errs []error

	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	a.sched.Stop()

	if a.watchCancel != nil {
		a.watchCancel()
	}
	if a.cfgSub != nil {
		a.cfgm.Unsubscribe(a.cfgSub)
		a.cfgSub = nil
	}
	a.wg.Wait()

	if err := a.db.Close(); err != nil {
		errs = append(errs, err)
	}
	a.log.Info("stopped")
	if err := a.logSvc.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
