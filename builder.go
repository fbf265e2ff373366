package authcore

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nexapay/authcore/password"
	"github.com/nexapay/authcore/permission"
	"github.com/nexapay/authcore/session"
	"github.com/nexapay/authcore/token"
)

// Builder assembles an Engine. With no Redis client the engine runs on the
// in-memory stores, which suits tests and single-node deployments.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	roles        map[string][]string
	userProvider UserProvider
	auditSink    AuditSink

	sessionStore session.Store
	blacklist    token.Blacklist

	built bool
}

// New returns a Builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis selects Redis-backed session and blacklist stores.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRoles installs the role -> permission table resolved into principal
// authority sets.
func (b *Builder) WithRoles(roles map[string][]string) *Builder {
	b.roles = roles
	return b
}

// WithUserProvider installs the user/role collaborator. Required.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithAuditSink installs the audit event receiver.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithSessionStore overrides the session store selected by WithRedis.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.sessionStore = store
	return b
}

// WithBlacklist overrides the token blacklist selected by WithRedis.
func (b *Builder) WithBlacklist(bl token.Blacklist) *Builder {
	b.blacklist = bl
	return b
}

// Build validates the configuration and wires the engine. A Builder builds
// at most once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider is required")
	}

	tokens, err := token.NewManager(token.Config{
		Secret: cfg.Token.Secret,
		TTL:    cfg.Token.TTL,
		Issuer: cfg.Token.Issuer,
		Clock:  cfg.Clock,
	})
	if err != nil {
		return nil, err
	}

	blacklist := b.blacklist
	if blacklist == nil {
		if b.redis != nil {
			blacklist = token.NewRedisBlacklist(b.redis, cfg.Session.RedisPrefix, cfg.Token.TTL, cfg.Clock)
		} else {
			blacklist = token.NewMemoryBlacklist(cfg.Token.TTL, cfg.Clock)
		}
	}

	store := b.sessionStore
	if store == nil {
		if b.redis != nil {
			store = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix)
		} else {
			store = session.NewMemoryStore()
		}
	}

	sessions, err := session.NewManager(store, blacklist, session.ManagerConfig{
		TTL:              cfg.Session.TTL,
		RefreshThreshold: cfg.Session.RefreshThreshold,
		Clock:            cfg.Clock,
	})
	if err != nil {
		return nil, err
	}

	registry, err := permission.NewRegistry(b.roles)
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(cfg.Password)
	if err != nil {
		return nil, err
	}

	b.built = true
	return &Engine{
		config:    cfg,
		tokens:    tokens,
		blacklist: blacklist,
		sessions:  sessions,
		registry:  registry,
		hasher:    hasher,
		totp:      newTOTPManager(cfg.TOTP),
		users:     b.userProvider,
		audit:     newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:   newMetrics(cfg.Metrics),
		clock:     cfg.Clock,
	}, nil
}
