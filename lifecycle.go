package identity

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName              = "github.com/goliatone/go-identity"
	defaultOperationTimeout = 10 * time.Second
)

// AuthResult is returned by every flow that starts a session
type AuthResult struct {
	Principal *Principal `json:"principal"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Lifecycle composes the store, hasher, token issuer and reset generator
// into the signup, login, reset and password change flows.
type Lifecycle struct {
	store        CredentialStore
	mailer       Mailer
	hasher       PasswordHasher
	tokens       TokenIssuer
	resets       *ResetTokenGenerator
	activity     ActivitySink
	logger       Logger
	clock        Clock
	tracer       trace.Tracer
	sessionTTL   time.Duration
	timeout      time.Duration
	resetURLBase string
	conceal      bool

	dummyOnce sync.Once
	dummyHash string
}

// LifecycleOption configures a Lifecycle
type LifecycleOption func(*Lifecycle)

// WithClock overrides the time source for tokens, resets and timestamps
func WithClock(clock Clock) LifecycleOption {
	return func(l *Lifecycle) {
		l.clock = clock
	}
}

// WithActivitySink sets the sink used to emit lifecycle events.
func WithActivitySink(sink ActivitySink) LifecycleOption {
	return func(l *Lifecycle) {
		l.activity = normalizeActivitySink(sink)
	}
}

// WithLogger overrides the logger used by the lifecycle.
func WithLogger(logger Logger) LifecycleOption {
	return func(l *Lifecycle) {
		l.logger = normalizeLogger(logger)
	}
}

func WithPasswordHasher(hasher PasswordHasher) LifecycleOption {
	return func(l *Lifecycle) {
		l.hasher = hasher
	}
}

func WithTokenIssuer(tokens TokenIssuer) LifecycleOption {
	return func(l *Lifecycle) {
		l.tokens = tokens
	}
}

func WithTracer(tracer trace.Tracer) LifecycleOption {
	return func(l *Lifecycle) {
		if tracer != nil {
			l.tracer = tracer
		}
	}
}

// NewLifecycle wires a Lifecycle from configuration. Collaborators not set
// through options are built from cfg.
func NewLifecycle(cfg Config, store CredentialStore, mailer Mailer, opts ...LifecycleOption) *Lifecycle {
	if store == nil {
		panic("IDENTITY: lifecycle requires a credential store")
	}

	if mailer == nil {
		panic("IDENTITY: lifecycle requires a mailer")
	}

	l := &Lifecycle{
		store:        store,
		mailer:       mailer,
		activity:     noopActivitySink{},
		logger:       defLogger{},
		tracer:       otel.Tracer(tracerName),
		sessionTTL:   cfg.GetTokenTTL(),
		timeout:      cfg.GetOperationTimeout(),
		resetURLBase: cfg.GetResetURLBase(),
		conceal:      cfg.GetConcealUnknownEmail(),
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.hasher == nil {
		l.hasher = NewBcryptHasher(cfg.GetPasswordCost())
	}

	if l.tokens == nil {
		l.tokens = NewTokenService(cfg, WithTokenClock(l.clock), WithTokenLogger(l.logger))
	}

	if l.resets == nil {
		l.resets = NewResetTokenGenerator(cfg.GetResetTokenTTL(), l.clock)
	}

	if l.sessionTTL <= 0 {
		l.sessionTTL = DefaultTokenTTL
	}

	if l.timeout <= 0 {
		l.timeout = defaultOperationTimeout
	}

	return l
}

// SessionTTL is the lifetime of issued session tokens
func (l *Lifecycle) SessionTTL() time.Duration {
	return l.sessionTTL
}

func (l *Lifecycle) run(ctx context.Context, name string, fn func(ctx context.Context, span trace.Span) error) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during "+name)
	default:
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	ctx, span := l.tracer.Start(ctx, name)
	defer span.End()

	if err := fn(ctx, span); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, name+" failed")
		return err
	}

	return nil
}

func (l *Lifecycle) startSession(principal *Principal) (*AuthResult, error) {
	token, expiresAt, err := l.tokens.Issue(principal.ID.String())
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Principal: principal.Scrubbed(),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// rotatePassword hashes password, stamps PasswordChangedAt and clears any
// outstanding reset token through write, then starts a new session.
func (l *Lifecycle) rotatePassword(password string, write func(changes PrincipalChanges) (*Principal, error)) (*AuthResult, error) {
	digest, err := l.hasher.Hash(password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	changedAt := l.clock.now().UTC()
	updated, err := write(PrincipalChanges{
		PasswordHash:      &digest,
		PasswordChangedAt: &changedAt,
		ClearResetToken:   true,
	})
	if err != nil {
		return nil, err
	}

	return l.startSession(updated)
}

// verifyUnknown spends a bcrypt comparison when no principal matched
func (l *Lifecycle) verifyUnknown(password string) {
	l.dummyOnce.Do(func() {
		l.dummyHash = RandomPasswordHash(l.hasher)
	})
	l.hasher.Verify(password, l.dummyHash)
}

func (l *Lifecycle) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = l.clock.now()
	}

	if err := l.activity.Record(ctx, event); err != nil {
		l.logger.Warn("failed to record activity %s: %v", event.EventType, err)
	}
}

func principalAttrs(p *Principal) []attribute.KeyValue {
	if p == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.String("identity.principal_id", p.ID.String()),
		attribute.String("identity.role", string(p.Role)),
	}
}
