package authcore

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/bazario-labs/authcore/jwt"
	"github.com/bazario-labs/authcore/password"
)

// Core is the assembled authentication engine: challenge issuance,
// credential flows, and session token minting behind one handle.
type Core struct {
	config Config

	Challenges  *ChallengeManager
	Credentials *CredentialService
	Tokens      *TokenIssuer

	metrics *Metrics
	audit   *auditDispatcher
}

// Builder assembles a [Core]. Redis and a user store are mandatory; the
// mailer and audit sink are optional collaborators.
type Builder struct {
	config    Config
	hasConfig bool
	redis     redis.UniversalClient
	users     UserStore
	mail      MailSender
	sink      AuditSink
}

// New returns an empty [Builder].
func New() *Builder {
	return &Builder{}
}

// WithConfig replaces the default configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	b.hasConfig = true
	return b
}

// WithRedis sets the TTL store backing challenge state.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore sets the persistent account store.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

// WithMailer sets the OTP delivery backend. Without one, challenges are
// still issued and verifiable; codes simply go nowhere. That mode is
// meant for tests that read the store directly.
func (b *Builder) WithMailer(mail MailSender) *Builder {
	b.mail = mail
	return b
}

// WithAuditSink sets the audit event destination and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// Build validates the configuration and wires the engine together. The
// returned Core owns the audit dispatcher; call [Core.Close] on shutdown
// to drain it.
func (b *Builder) Build() (*Core, error) {
	cfg := b.config
	if !b.hasConfig {
		cfg = defaultConfig()
	}
	if b.sink != nil {
		cfg.Audit.Enabled = true
	}
	cfg = cloneConfig(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if b.users == nil {
		return nil, errors.New("user store is required")
	}

	manager, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
	})
	if err != nil {
		return nil, err
	}

	metrics := NewMetrics(cfg.Metrics)
	dispatcher := newAuditDispatcher(cfg.Audit, b.sink)

	challenges := &ChallengeManager{
		config:  cfg,
		store:   newChallengeStore(b.redis, cfg.KeyPrefix, cfg.Challenge),
		mail:    b.mail,
		metrics: metrics,
		audit:   dispatcher,
	}

	issuer := &TokenIssuer{
		config:  cfg,
		manager: manager,
		metrics: metrics,
		audit:   dispatcher,
	}

	credentials := &CredentialService{
		config:    cfg,
		users:     b.users,
		challenge: challenges,
		issuer:    issuer,
		hasher:    password.NewHasher(cfg.Password.BcryptCost),
		metrics:   metrics,
		audit:     dispatcher,
	}

	return &Core{
		config:      cfg,
		Challenges:  challenges,
		Credentials: credentials,
		Tokens:      issuer,
		metrics:     metrics,
		audit:       dispatcher,
	}, nil
}

// Config returns a copy of the effective configuration.
func (c *Core) Config() Config {
	return cloneConfig(c.config)
}

// Metrics exposes the in-process counters.
func (c *Core) Metrics() *Metrics {
	return c.metrics
}

// Close drains and stops the audit dispatcher. Safe to call more than
// once and on a Core built without auditing.
func (c *Core) Close() {
	if c == nil {
		return
	}
	c.audit.Close()
}
