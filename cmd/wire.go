package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bnema/collab-lifecycle/internal/adapters/events/rabbitmq"
	statusadapter "github.com/bnema/collab-lifecycle/internal/adapters/render/status"
	pgrepo "github.com/bnema/collab-lifecycle/internal/adapters/repo/postgres"
	sqliterepo "github.com/bnema/collab-lifecycle/internal/adapters/repo/sqlite"
	tomlrepo "github.com/bnema/collab-lifecycle/internal/adapters/repo/toml"
	"github.com/bnema/collab-lifecycle/internal/adapters/secrets/resolver"
	redisusage "github.com/bnema/collab-lifecycle/internal/adapters/usage/redis"
	"github.com/bnema/collab-lifecycle/internal/application"
	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/bnema/collab-lifecycle/internal/logging"
	"github.com/bnema/collab-lifecycle/internal/ports"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	configDirName  = ".collab"
	configFileName = "config.toml"
	envPrefix      = "CLC"
	connectTimeout = 10 * time.Second
)

var errUnknownDriver = errors.New("unknown store driver")

type app struct {
	cfg            *viper.Viper
	logger         zerolog.Logger
	secrets        ports.SecretResolver
	statusRenderer func([]domain.AccountSnapshot, statusadapter.RenderOptions) (string, error)
	now            func() time.Time
	logOut         io.Writer

	once      sync.Once
	openErr   error
	store     ports.Store
	usage     ports.UsageStore
	lifecycle *application.Lifecycle
	events    ports.EventPublisher
}

// wireApp loads configuration and the logger. Stores and the broker are
// opened on first use so commands like version never touch them.
func wireApp() (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg, err := loadConfig(homeDir)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:            cfg,
		secrets:        resolver.NewPassFirstWithFileFallback(filepath.Join(homeDir, configDirName, "secrets")),
		statusRenderer: statusadapter.Render,
		now:            func() time.Time { return time.Now().UTC() },
		logOut:         os.Stderr,
	}
	a.logger = logging.New(logging.Config{
		Format:    cfg.GetString("log.format"),
		Level:     cfg.GetString("log.level"),
		Component: "clc",
	}, a.logOut)

	return a, nil
}

func loadConfig(homeDir string) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := viper.New()
	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	cfg.SetDefault("store.driver", "toml")
	cfg.SetDefault("usage.backend", "store")
	cfg.SetDefault("redis.prefix", "clc")
	cfg.SetDefault("retry.max_attempts", 3)
	cfg.SetDefault("http.listen", "127.0.0.1:8080")
	cfg.SetDefault("http.issuer", "collab-lifecycle")
	cfg.SetDefault("auth.signing_key_ref", "env://CLC_SIGNING_KEY")
	cfg.SetDefault("scan.schedule", "0 3 * * *")
	cfg.SetDefault("log.level", "warn")
	cfg.SetDefault("log.format", "auto")

	path := filepath.Join(homeDir, configDirName, configFileName)
	if explicit := os.Getenv(envPrefix + "_CONFIG"); explicit != "" {
		path = explicit
	}
	cfg.SetConfigFile(path)
	cfg.SetConfigType("toml")
	if err := cfg.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	return cfg, nil
}

// open wires the store, usage backend, event publisher and lifecycle once.
func (a *app) open(ctx context.Context) error {
	a.once.Do(func() {
		a.openErr = a.wireCore(ctx)
	})
	return a.openErr
}

func (a *app) wireCore(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	store, err := openStore(ctx, a.cfg)
	if err != nil {
		return err
	}

	var usage ports.UsageStore
	switch backend := a.cfg.GetString("usage.backend"); backend {
	case "", "store":
	case "redis":
		redisStore, err := redisusage.Connect(ctx, a.cfg.GetString("redis.addr"), a.cfg.GetString("redis.prefix"))
		if err != nil {
			return errors.Join(fmt.Errorf("wire redis usage store: %w", err), store.Close())
		}
		usage = redisStore
	default:
		return errors.Join(fmt.Errorf("unknown usage backend %q", backend), store.Close())
	}

	a.store = store
	a.usage = usage
	a.events = a.openPublisher()
	a.lifecycle = application.NewLifecycle(store, usage, clockFunc(a.now),
		application.WithLogger(logging.Component(a.logger, "lifecycle")),
		application.WithMaxAttempts(a.cfg.GetInt("retry.max_attempts")),
	)
	return nil
}

func openStore(ctx context.Context, cfg *viper.Viper) (ports.Store, error) {
	switch driver := cfg.GetString("store.driver"); driver {
	case "", "toml":
		repo, err := tomlrepo.NewRepository(cfg)
		if err != nil {
			return nil, fmt.Errorf("wire toml store: %w", err)
		}
		return repo, nil
	case "sqlite":
		repo, err := sqliterepo.NewRepository(cfg)
		if err != nil {
			return nil, fmt.Errorf("wire sqlite store: %w", err)
		}
		return repo, nil
	case "postgres":
		repo, err := pgrepo.Connect(ctx, cfg.GetString("database.url"))
		if err != nil {
			return nil, fmt.Errorf("wire postgres store: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("%w %q", errUnknownDriver, driver)
	}
}

// openPublisher dials the broker when one is configured. An unreachable
// broker degrades to dropping events.
func (a *app) openPublisher() ports.EventPublisher {
	logger := logging.Component(a.logger, "events")
	rawURL := a.cfg.GetString("amqp.url")
	if rawURL == "" {
		return rabbitmq.Noop{Logger: logger}
	}

	publisher, err := rabbitmq.Dial(rawURL, a.cfg.GetString("amqp.exchange"), logger)
	if err != nil {
		logger.Warn().Err(err).Msg("event broker unavailable; events will be dropped")
		return rabbitmq.Noop{Logger: logger}
	}
	return publisher
}

func (a *app) close() error {
	var errs []error
	if a.events != nil {
		errs = append(errs, a.events.Close())
	}
	if closer, ok := a.usage.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

// publish emits a lifecycle event after a committed change. Failures are
// logged and never fail the command.
func (a *app) publish(ctx context.Context, event ports.LifecycleEvent) {
	if a.events == nil {
		return
	}
	if event.At.IsZero() {
		event.At = a.now()
	}
	if err := a.events.Publish(ctx, event); err != nil {
		a.logger.Warn().Err(err).Str("type", event.Type).Str("account_id", string(event.AccountID)).Msg("publish lifecycle event")
	}
}

// signingKey resolves the bearer token key through the secret resolver.
func (a *app) signingKey(ctx context.Context) ([]byte, error) {
	ref := a.cfg.GetString("auth.signing_key_ref")
	key, err := a.secrets.Resolve(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolve signing key %s: %w", ref, err)
	}
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("resolve signing key %s: empty secret", ref)
	}
	return []byte(key), nil
}

type clockFunc func() time.Time

func (f clockFunc) Now() time.Time { return f() }
