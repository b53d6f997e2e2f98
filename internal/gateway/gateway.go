package gateway

import (
	"context"
	"errors"
	"net"
	"time"

	"edrs-docstore/internal/domain/user"
	"edrs-docstore/internal/pathing"
	apperrors "edrs-docstore/pkg/errors"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	DefaultURLTTL         = 2 * time.Hour
	DefaultAttemptTimeout = 3 * time.Second
	DefaultRetryBackoff   = 200 * time.Millisecond

	// one retry after the first attempt
	maxSignRetries = 1

	outcomeSigned      = "signed"
	outcomeDenied      = "denied"
	outcomeInvalid     = "invalid"
	outcomeUnavailable = "unavailable"

	errAccessDenied       = "you do not have access to this document"
	errSignerUnavailable  = "storage backend could not sign the url"
	errGatewayMisconfig   = "access gateway requires a resolver and a signer"
	errGatewayTTLNotValid = "signed url ttl must be positive"
)

var (
	signOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edrs_gateway_sign_total",
		Help: "Signed URL requests by outcome.",
	}, []string{"outcome"})
	signAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edrs_gateway_sign_attempts_total",
		Help: "Calls made to the storage signer, retries included.",
	})
)

// Signer is the storage backend's URL signing capability.
type Signer interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// SignedURL is a time-limited download link for one storage key.
type SignedURL struct {
	URL       string    `json:"url"`
	Key       string    `json:"storage_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Gateway authorizes access to a storage key and issues a signed URL for it. It keeps no
// per-request state and is safe for concurrent use.
type Gateway struct {
	resolver       *pathing.Resolver
	signer         Signer
	ttl            time.Duration
	attemptTimeout time.Duration
	retryBackoff   time.Duration
	isTransient    func(error) bool
	now            func() time.Time
}

type Option func(*Gateway)

func WithTTL(ttl time.Duration) Option {
	return func(g *Gateway) { g.ttl = ttl }
}

func WithAttemptTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.attemptTimeout = d }
}

func WithRetryBackoff(d time.Duration) Option {
	return func(g *Gateway) { g.retryBackoff = d }
}

// WithTransientClassifier replaces the check deciding whether a signer error earns a retry.
func WithTransientClassifier(fn func(error) bool) Option {
	return func(g *Gateway) { g.isTransient = fn }
}

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

func New(resolver *pathing.Resolver, signer Signer, opts ...Option) (*Gateway, error) {
	if resolver == nil || signer == nil {
		return nil, apperrors.Configuration(errGatewayMisconfig)
	}

	g := &Gateway{
		resolver:       resolver,
		signer:         signer,
		ttl:            DefaultURLTTL,
		attemptTimeout: DefaultAttemptTimeout,
		retryBackoff:   DefaultRetryBackoff,
		isTransient:    IsTransient,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.ttl <= 0 {
		return nil, apperrors.Configuration(errGatewayTTLNotValid)
	}
	return g, nil
}

// Authorize reports whether requester may read key: the requester owns it, or is an
// administrator. Malformed keys are Validation errors, everything else is Permission.
func (g *Gateway) Authorize(requester user.Principal, key string) error {
	parts, err := g.resolver.ParseKey(key)
	if err != nil {
		return err
	}
	if requester.Role.IsAdministrator() {
		return nil
	}
	if requester.ID > 0 && requester.ID == parts.UserID {
		return nil
	}
	return apperrors.Permission(errAccessDenied)
}

// AuthorizeAndSign checks access and asks the signer for a URL valid for the gateway TTL.
// Each signer attempt runs under its own timeout; a transient failure is retried once.
func (g *Gateway) AuthorizeAndSign(ctx context.Context, requester user.Principal, key string) (*SignedURL, error) {
	if err := g.Authorize(requester, key); err != nil {
		if errors.Is(err, apperrors.ErrPermission) {
			signOutcomesTotal.WithLabelValues(outcomeDenied).Inc()
		} else {
			signOutcomesTotal.WithLabelValues(outcomeInvalid).Inc()
		}
		return nil, err
	}

	issuedAt := g.now()
	url, err := g.sign(ctx, key)
	if err != nil {
		signOutcomesTotal.WithLabelValues(outcomeUnavailable).Inc()
		return nil, err
	}

	signOutcomesTotal.WithLabelValues(outcomeSigned).Inc()
	return &SignedURL{
		URL:       url,
		Key:       key,
		ExpiresAt: issuedAt.Add(g.ttl).UTC(),
	}, nil
}

func (g *Gateway) sign(ctx context.Context, key string) (string, error) {
	var url string

	op := func() error {
		signAttemptsTotal.Inc()

		attemptCtx, cancel := context.WithTimeout(ctx, g.attemptTimeout)
		defer cancel()

		signed, err := g.signer.PresignGet(attemptCtx, key, g.ttl)
		if err == nil {
			url = signed
			return nil
		}
		if ctx.Err() != nil || !g.isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(g.retryBackoff), maxSignRetries),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		return "", apperrors.StorageUnavailable(errSignerUnavailable, err)
	}
	return url, nil
}

// IsTransient treats timeouts and errors already classified as StorageUnavailable as
// worth one more attempt.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, apperrors.ErrStorageUnavailable) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
