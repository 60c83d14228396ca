// Package app builds the object graph shared by the CLI commands.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gorm.io/gorm"

	appauth "kreltrack/internal/application/auth"
	lookupapp "kreltrack/internal/application/lookup"
	"kreltrack/internal/application/permission"
	apprequest "kreltrack/internal/application/request"
	"kreltrack/internal/application/request/transfer"
	"kreltrack/internal/application/request/validation"
	"kreltrack/internal/domain/request"
	"kreltrack/internal/domain/user"
	infraauth "kreltrack/internal/infrastructure/auth"
	"kreltrack/internal/infrastructure/config"
	"kreltrack/internal/infrastructure/database"
	"kreltrack/internal/infrastructure/migration"
	infraperm "kreltrack/internal/infrastructure/permission"
	"kreltrack/internal/infrastructure/pubsub"
	"kreltrack/internal/infrastructure/repository"
	"kreltrack/internal/infrastructure/scheduler"
	"kreltrack/internal/shared/biztime"
	"kreltrack/internal/shared/db"
	"kreltrack/internal/shared/logger"
	"kreltrack/internal/shared/services/text"
)

const tokenEnv = "KRELTRACK_TOKEN"

// Options are the persistent flags of the root command.
type Options struct {
	Env         string
	ConfigPath  string
	Token       string
	AutoMigrate bool
}

// App holds the wired services for one CLI invocation.
type App struct {
	Config *config.Config
	Logger logger.Interface
	DB     *gorm.DB

	Bus      *pubsub.EventBus
	Lookups  *lookupapp.Cache
	Lookup   *lookupapp.Service
	Requests *apprequest.Service
	Transfer *transfer.Service
	Gate     *appauth.Gate
	Perms    *permission.Service
	Text     text.Service

	jobs  *scheduler.Manager
	token string
}

// Load reads configuration and initialises logging and the business timezone
// without touching the store.
func Load(opts *Options) (*config.Config, logger.Interface, error) {
	cfg, err := config.Load(opts.Env, opts.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger, cfg.App.Mode); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := biztime.Init(cfg.App.Timezone); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize business timezone: %w", err)
	}
	return cfg, logger.NewLogger(), nil
}

// New opens the store and wires every service.
func New(ctx context.Context, opts *Options) (*App, error) {
	cfg, log, err := Load(opts)
	if err != nil {
		return nil, err
	}

	gdb, err := database.Open(&cfg.Database, log)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: log, DB: gdb, token: opts.Token}
	if a.token == "" {
		a.token = os.Getenv(tokenEnv)
	}

	if err := a.wire(ctx, opts.AutoMigrate); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, autoMigrate bool) error {
	cfg, log := a.Config, a.Logger

	if autoMigrate {
		if err := migration.NewManager(cfg.Database.Driver, log).Migrate(ctx, a.DB); err != nil {
			return err
		}
	}

	enforcer, err := infraperm.NewEnforcer(a.DB, log)
	if err != nil {
		return err
	}
	if err := infraperm.InitDefaultPermissions(enforcer, log); err != nil {
		return err
	}
	authz := permission.NewService(enforcer, log)
	a.Perms = authz

	deletePolicy, err := apprequest.ParseDeletePolicy(cfg.Request.DeletePolicy)
	if err != nil {
		return err
	}
	storeTimeout := cfg.Request.StoreTimeout()

	tx := db.NewTransactionManager(a.DB)
	requests := repository.NewRequestRepository(a.DB)
	lookups := repository.NewLookupRepository(a.DB)
	users := repository.NewUserRepository(a.DB)
	audits := repository.NewAuditRepository(a.DB)

	a.Bus = pubsub.NewEventBus(log, cfg.EventBus.MailboxSize)
	a.Text = text.NewService()

	a.Lookups = lookupapp.NewCache(lookups, storeTimeout, log)
	if err := a.Lookups.Preload(ctx); err != nil {
		// degraded tables are retried on the next read
		log.Warnw("lookup preload incomplete", "error", err)
	}

	a.jobs, err = scheduler.NewManager(log)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	if err := a.jobs.RegisterLookupRefresh(lookupapp.RefreshJob{Cache: a.Lookups}, cfg.Lookup.RefreshInterval()); err != nil {
		return fmt.Errorf("failed to register lookup refresh: %w", err)
	}
	a.jobs.Start()

	a.Lookup = lookupapp.NewService(lookups, a.Lookups, tx, audits, authz, a.Bus, storeTimeout, log)

	a.Requests = apprequest.NewService(apprequest.Deps{
		Repo:       requests,
		References: lookups,
		Validator:  validation.New(a.Lookups),
		Numbers:    request.NewStoreNumberGenerator(requests),
		Tx:         tx,
		Audit:      audits,
		Authz:      authz,
		Publisher:  a.Bus,
		Text:       a.Text,
	}, apprequest.Options{
		DeletePolicy: deletePolicy,
		StoreTimeout: storeTimeout,
	}, log)

	a.Transfer = transfer.NewService(a.Requests, a.Requests, log)

	a.Gate = appauth.NewGate(appauth.Deps{
		Users:  users,
		Hasher: infraauth.NewBcryptPasswordHasher(cfg.Auth.Password.BcryptCost),
		Tokens: infraauth.NewSessionTokenService(cfg.Auth.JWT.Secret, cfg.Auth.SessionTTL()),
		Tx:     tx,
		Audit:  audits,
		Authz:  authz,
	}, user.SecurityPolicy{
		MaxLoginAttempts:       cfg.Auth.Lockout.MaxAttempts,
		AttemptWindowMinutes:   cfg.Auth.Lockout.WindowMinutes,
		LockoutDurationMinutes: cfg.Auth.Lockout.DurationMinutes,
	}, storeTimeout, log)

	return nil
}

// Actor resolves the session token given with --token or KRELTRACK_TOKEN.
func (a *App) Actor(ctx context.Context) (user.Actor, error) {
	return a.Gate.Authenticate(ctx, strings.TrimSpace(a.token))
}

// HasSession reports whether a session token was supplied.
func (a *App) HasSession() bool {
	return strings.TrimSpace(a.token) != ""
}

// Close drains the event bus and releases the store.
func (a *App) Close() {
	if a.jobs != nil {
		if err := a.jobs.Stop(); err != nil {
			a.Logger.Warnw("failed to stop scheduler", "error", err)
		}
	}
	if a.Bus != nil {
		a.Bus.Close()
	}
	if a.DB != nil {
		if err := database.Close(a.DB); err != nil {
			a.Logger.Warnw("failed to close database", "error", err)
		}
	}
}
