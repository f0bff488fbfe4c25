// Package main - точка входа CLI трекера прогресса Hampton.
//
// Одна команда hampton управляет локальным прогрессом: уровень и XP,
// достижения, ежедневные задания, коды прогресса, материалы курса.
// Команда serve поднимает локальный REST API с потоком событий.
//
// Слои:
// - Domain: progress, progresscode, content (чистая логика)
// - Application: tracker (владелец состояния), query (отчёты по кодам)
// - Infrastructure: хранилища, шина событий, источники материалов, метрики
// - Interface: этот CLI и HTTP-сервер
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hampton/progress-tracker/config"
	"github.com/hampton/progress-tracker/internal/application/tracker"
	domcontent "github.com/hampton/progress-tracker/internal/domain/content"
	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/internal/domain/shared"
	"github.com/hampton/progress-tracker/internal/infrastructure/content"
	"github.com/hampton/progress-tracker/internal/infrastructure/messaging"
	"github.com/hampton/progress-tracker/internal/infrastructure/persistence"
	"github.com/hampton/progress-tracker/internal/infrastructure/persistence/redis"
	"github.com/hampton/progress-tracker/pkg/circuitbreaker"
	"github.com/hampton/progress-tracker/pkg/logger"
)

// version задаётся при сборке через -ldflags.
var version = "dev"

// clock подменяется в тестах.
var clock = time.Now

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// rootOptions - глобальные флаги.
type rootOptions struct {
	configPath string
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "hampton",
		Short:         "Track course progress: XP, levels, achievements and progress codes",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: ./hampton.yaml or ~/.hampton/hampton.yaml)")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print machine-readable JSON")

	root.AddCommand(
		newStatusCmd(opts),
		newSelectCmd(opts),
		newLessonCmd(opts),
		newModuleCmd(opts),
		newSkillCmd(opts),
		newXPCmd(opts),
		newChallengesCmd(opts),
		newChallengeCmd(opts),
		newResetCmd(opts),
		newHistoryCmd(opts),
		newCodeCmd(opts),
		newContentCmd(opts),
		newServeCmd(opts),
	)
	return root
}

// ══════════════════════════════════════════════════════════════════════════════
// WIRING
// ══════════════════════════════════════════════════════════════════════════════

// eventBus - общий интерфейс локальной шины и шины через Redis.
type eventBus interface {
	shared.EventPublisher
	shared.EventSubscriber
	Close() error
}

// app собирает зависимости одной команды.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	repo    progress.Repository
	bus     eventBus
	redis   *redis.Client
	source  domcontent.Provider
	breaker *circuitbreaker.Breaker
	content domcontent.Provider
	tracker *tracker.Service

	logCloser io.Closer
}

// newApp загружает конфигурацию и поднимает зависимости.
// serve=true подписывает шину на Redis, иначе CLI только публикует.
func newApp(ctx context.Context, opts *rootOptions, serve bool) (*app, error) {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. КОНФИГУРАЦИЯ И ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, logCloser := logger.New(logger.Options{
		Output:     os.Stderr,
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	a := &app{cfg: cfg, log: log, logCloser: logCloser}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ХРАНИЛИЩЕ
	// ─────────────────────────────────────────────────────────────────────────
	a.repo, err = persistence.Open(ctx, persistence.Config{
		Driver:       cfg.Store.Driver,
		Path:         cfg.Store.Path,
		Dir:          cfg.Store.Dir,
		Key:          cfg.Store.Key,
		HistoryLimit: cfg.Store.HistoryLimit,
		Logger:       log,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ШИНА СОБЫТИЙ (Redis опционально)
	// ─────────────────────────────────────────────────────────────────────────
	a.bus = a.openBus(ctx, serve)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ИСТОЧНИК МАТЕРИАЛОВ
	// ─────────────────────────────────────────────────────────────────────────
	if err := a.openContent(); err != nil {
		a.Close()
		return nil, err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ТРЕКЕР
	// ─────────────────────────────────────────────────────────────────────────
	a.tracker, err = tracker.Open(ctx, tracker.Dependencies{
		Repository: a.repo,
		Publisher:  a.bus,
		Content:    a.content,
		Logger:     log,
	}, tracker.Config{
		Location:       cfg.App.Location,
		StrictChecksum: cfg.Codec.StrictChecksum,
		Clock:          clock,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open tracker: %w", err)
	}
	return a, nil
}

func (a *app) openBus(ctx context.Context, serve bool) eventBus {
	cfg := a.cfg
	local := messaging.InMemoryEventBusConfig{
		AsyncMode:      cfg.Events.Async && serve,
		WorkerPoolSize: cfg.Events.WorkerPoolSize,
		Logger:         a.log,
		EnableMetrics:  true,
	}
	if !cfg.Events.RedisEnabled {
		return messaging.NewInMemoryEventBus(local)
	}

	rc := redis.DefaultConfig()
	rc.Host = cfg.Redis.Host
	rc.Port = cfg.Redis.Port
	rc.Password = cfg.Redis.Password
	rc.DB = cfg.Redis.DB
	if cfg.Redis.PoolSize > 0 {
		rc.PoolSize = cfg.Redis.PoolSize
	}
	if cfg.Redis.DialTimeout > 0 {
		rc.DialTimeout = cfg.Redis.DialTimeout
	}

	client, err := redis.NewClient(ctx, rc)
	if err != nil {
		a.log.Warn("redis unavailable, events stay in-process", "addr", rc.Addr(), "error", err)
		return messaging.NewInMemoryEventBus(local)
	}
	bus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
		Client:         client,
		ChannelName:    cfg.Events.Channel,
		PublishOnly:    !serve,
		LocalBusConfig: local,
		Logger:         a.log,
	})
	if err != nil {
		_ = client.Close()
		a.log.Warn("redis event bus unavailable, events stay in-process", "error", err)
		return messaging.NewInMemoryEventBus(local)
	}
	a.redis = client
	a.log.Debug("events relayed through redis", "channel", cfg.Events.Channel)
	return bus
}

func (a *app) openContent() error {
	cfg := a.cfg.Content
	switch {
	case cfg.BaseURL != "":
		hc := content.DefaultHTTPSourceConfig(cfg.BaseURL)
		hc.RequestsPerSecond = cfg.RateLimit
		if cfg.Burst > 0 {
			hc.Burst = cfg.Burst
		}
		if cfg.Timeout > 0 {
			hc.Timeout = cfg.Timeout
		}
		hc.Logger = a.log
		src, err := content.NewHTTPSource(hc)
		if err != nil {
			return fmt.Errorf("failed to create content source: %w", err)
		}
		a.source, a.breaker = src, src.Breaker()
	case cfg.Dir != "":
		a.source = content.NewFileSource(cfg.Dir)
	}
	a.content = domcontent.NewFallbackProvider(a.source, progress.StandardCurriculum{}, a.log)
	return nil
}

// Close releases everything newApp opened. The redis client is owned by
// the bus and closed with it.
func (a *app) Close() {
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.log.Warn("failed to close event bus", "error", err)
		}
	}
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			a.log.Warn("failed to close store", "error", err)
		}
	}
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}

// withApp runs fn with a freshly wired app and closes it afterwards.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, opts, false)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// commit печатает результат команды. Несохранённое изменение в CLI
// теряется при выходе, поэтому это ошибка.
func commit(cmd *cobra.Command, opts *rootOptions, out tracker.Outcome, err error) error {
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		if err := printJSON(cmd.OutOrStdout(), out.Completion); err != nil {
			return err
		}
	} else {
		printCompletion(cmd.OutOrStdout(), out.Completion)
	}
	if out.SaveErr != nil {
		return errors.Join(errors.New("progress was not saved"), out.SaveErr)
	}
	return nil
}
