// Package core wires the sync core together for the TUI and the CLI.
package core

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/matheus3301/tourchat/internal/api"
	"github.com/matheus3301/tourchat/internal/auth"
	"github.com/matheus3301/tourchat/internal/bus"
	"github.com/matheus3301/tourchat/internal/cache"
	"github.com/matheus3301/tourchat/internal/config"
	"github.com/matheus3301/tourchat/internal/conversation"
	"github.com/matheus3301/tourchat/internal/identity"
	"github.com/matheus3301/tourchat/internal/lock"
	"github.com/matheus3301/tourchat/internal/logging"
	"github.com/matheus3301/tourchat/internal/messaging"
	"github.com/matheus3301/tourchat/internal/outbox"
	"github.com/matheus3301/tourchat/internal/profile"
	"github.com/matheus3301/tourchat/internal/session"
	"github.com/matheus3301/tourchat/internal/store"
	intsync "github.com/matheus3301/tourchat/internal/sync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	Config      *config.Config // nil = load ~/.tourchat/config.toml
	Exclusive   bool           // hold the session lock; set by the TUI
	Console     bool           // also log to stderr
}

// Core is the assembled sync core handed to the presentation layer.
type Core struct {
	Config    *config.Config
	Logger    *zap.Logger
	Bus       *bus.Bus
	Self      auth.Identity
	DB        *store.DB
	Cache     *cache.Cache
	API       *api.Client
	Store     *messaging.Store
	Index     *conversation.Index
	Scheduler *intsync.Scheduler
	Resolver  *identity.Resolver
	Profiles  *profile.Service
}

type coreDeps struct {
	fx.In

	Config    *config.Config
	Logger    *zap.Logger
	Bus       *bus.Bus
	Self      auth.Identity
	DB        *store.DB
	Cache     *cache.Cache
	API       *api.Client
	Store     *messaging.Store
	Index     *conversation.Index
	Scheduler *intsync.Scheduler
	Resolver  *identity.Resolver
	Profiles  *profile.Service
}

// Module returns the fx module for a session, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("core",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideClock,
			provideLock,
			provideStore,
			provideCache,
			provideIdentity,
			provideAPIClient,
			provideResolver,
			provideMessageStore,
			provideIndex,
			provideSender,
			provideScheduler,
			provideProfiles,
			newCore,
		),
		fx.Invoke(registerLifecycle),
	)
}

func newCore(d coreDeps) *Core {
	return &Core{
		Config:    d.Config,
		Logger:    d.Logger,
		Bus:       d.Bus,
		Self:      d.Self,
		DB:        d.DB,
		Cache:     d.Cache,
		API:       d.API,
		Store:     d.Store,
		Index:     d.Index,
		Scheduler: d.Scheduler,
		Resolver:  d.Resolver,
		Profiles:  d.Profiles,
	}
}

func provideConfig(p Params) (*config.Config, error) {
	if p.Config != nil {
		return p.Config.WithDefaults(), nil
	}
	return config.LoadOrDefault(session.ConfigPath())
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName, cfg.LogLevel, p.Console)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideClock() clockwork.Clock {
	return clockwork.NewRealClock()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	if !p.Exclusive {
		return nil, nil
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

// provideStore depends on the lock so the database is only opened once the
// session is ours.
func provideStore(p Params, cfg *config.Config, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	db, err := store.Open(session.DBPath(p.SessionName), store.WithBusyTimeout(cfg.DBBusyTimeout.Duration))
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", db.Path()))
	return db, nil
}

func provideCache(db *store.DB, cfg *config.Config, clock clockwork.Clock, logger *zap.Logger) *cache.Cache {
	return cache.New(db,
		cache.WithNamespace(cfg.CacheNamespace),
		cache.WithClock(clock),
		cache.WithLogger(logger.Named("cache")),
	)
}

func provideIdentity(cfg *config.Config, clock clockwork.Clock, logger *zap.Logger) (auth.Identity, error) {
	id, err := auth.FromToken(cfg.APIToken, clock.Now())
	if err != nil {
		return auth.Identity{}, err
	}
	logger.Info("signed in", zap.String("user_id", id.UserID), zap.Time("expires_at", id.ExpiresAt))
	return id, nil
}

func provideAPIClient(cfg *config.Config, logger *zap.Logger) *api.Client {
	return api.NewClient(cfg.APIBaseURL,
		api.WithToken(cfg.APIToken),
		api.WithTimeout(cfg.RequestTimeout.Duration),
		api.WithLogger(logger.Named("api")),
	)
}

func provideResolver(self auth.Identity, logger *zap.Logger) *identity.Resolver {
	return identity.NewResolver(self.UserID, logger.Named("identity"))
}

func provideMessageStore(b *bus.Bus, logger *zap.Logger) *messaging.Store {
	return messaging.NewStore(b, logger.Named("messages"))
}

func provideIndex(client *api.Client, self auth.Identity, b *bus.Bus, logger *zap.Logger) *conversation.Index {
	return conversation.NewIndex(client, self.UserID, b, logger.Named("conversations"))
}

func provideSender(st *messaging.Store, client *api.Client, index *conversation.Index, self auth.Identity, clock clockwork.Clock, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(st, client, index, self, clock, logger.Named("outbox"))
}

func provideScheduler(st *messaging.Store, index *conversation.Index, client *api.Client, sender *outbox.Sender,
	clock clockwork.Clock, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *intsync.Scheduler {
	return intsync.NewScheduler(st, index, client, sender, clock, b, logger.Named("sync"),
		intsync.WithConversationInterval(cfg.ConversationPollInterval.Duration),
		intsync.WithMessageInterval(cfg.MessagePollInterval.Duration),
	)
}

func provideProfiles(client *api.Client, c *cache.Cache, logger *zap.Logger) *profile.Service {
	return profile.NewService(client, c, logger.Named("profile"))
}

func registerLifecycle(lc fx.Lifecycle, sched *intsync.Scheduler, c *cache.Cache, db *store.DB, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sched.Stop()
			st := c.Stats()
			logger.Info("cache stats",
				zap.Int64("hits", st.Hits),
				zap.Int64("misses", st.Misses),
				zap.Int64("evictions", st.Evictions),
			)
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("core stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
