package jwtbearer

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"golang.org/x/sync/singleflight"
)

// minRotationRefresh bounds how often an unknown kid may force a refetch.
const minRotationRefresh = 30 * time.Second

var errUnknownKID = errors.New("unknown kid")

// keySet resolves signing keys from a tenant's JWKS endpoint. Fetching,
// caching and periodic refresh belong to a jwx cache owned by this set.
type keySet struct {
	url   string
	kid   string
	cache *jwk.Cache
	stop  context.CancelFunc
	clock clock.Clock

	flight singleflight.Group

	mu          sync.Mutex
	lastRefresh time.Time
}

type fetchPolicy struct {
	maxTries uint
	initial  time.Duration
	timeout  time.Duration
}

// newKeySet registers url with a fresh jwk cache and waits for the first
// key set, retrying failed fetches.
func newKeySet(ctx context.Context, url, kid string, c config) (*keySet, error) {
	cacheCtx, stop := context.WithCancel(context.Background())
	cache, err := jwk.NewCache(cacheCtx, httprc.NewClient(httprc.WithHTTPClient(c.httpClient)))
	if err != nil {
		stop()
		return nil, fmt.Errorf("jwks cache: %w", err)
	}
	ks := &keySet{url: url, kid: kid, cache: cache, stop: stop, clock: c.clock}

	if err := ks.register(ctx, c.fetch); err != nil {
		stop()
		return nil, err
	}
	if kid != "" {
		set, err := cache.Lookup(ctx, url)
		if err == nil {
			if _, ok := set.LookupKeyID(kid); !ok {
				err = fmt.Errorf("kid %q not in JWKS", kid)
			}
		}
		if err != nil {
			stop()
			return nil, err
		}
	}
	ks.lastRefresh = c.clock.Now()
	return ks, nil
}

func (ks *keySet) register(ctx context.Context, p fetchPolicy) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.initial
	exp.MaxInterval = 10 * p.initial
	exp.Reset()

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		actx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		// a failed first attempt may leave the url registered but empty
		if ks.cache.IsRegistered(actx, ks.url) {
			_, err := ks.cache.Refresh(actx, ks.url)
			return struct{}{}, err
		}
		return struct{}{}, ks.cache.Register(actx, ks.url)
	},
		backoff.WithBackOff(exp),
		backoff.WithMaxTries(p.maxTries),
	)
	if err != nil {
		return fmt.Errorf("jwks %s: %w", ks.url, err)
	}
	return nil
}

// keyFor picks the key named by the token's kid header. A kid the set does
// not know forces one refetch, at most every minRotationRefresh. Tokens
// without a kid use the configured kid or the first RSA key.
func (ks *keySet) keyFor(t *jwt.Token) (any, error) {
	ctx := context.Background()
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		kid = ks.kid
	}

	set, err := ks.cache.Lookup(ctx, ks.url)
	if err != nil {
		return nil, err
	}
	if kid == "" {
		for i := range set.Len() {
			k, ok := set.Key(i)
			if !ok {
				continue
			}
			if pub, err := exportRSA(k); err == nil {
				return pub, nil
			}
		}
		return nil, errors.New("no RSA key in JWKS")
	}

	k, ok := set.LookupKeyID(kid)
	if !ok {
		if set, err = ks.rotate(ctx); err != nil {
			return nil, err
		}
		if k, ok = set.LookupKeyID(kid); !ok {
			return nil, fmt.Errorf("%w %q", errUnknownKID, kid)
		}
	}
	return exportRSA(k)
}

// rotate refetches the set once per minRotationRefresh; concurrent callers
// share the fetch.
func (ks *keySet) rotate(ctx context.Context) (jwk.Set, error) {
	v, err, _ := ks.flight.Do("rotate", func() (any, error) {
		ks.mu.Lock()
		due := ks.clock.Since(ks.lastRefresh) >= minRotationRefresh
		if due {
			ks.lastRefresh = ks.clock.Now()
		}
		ks.mu.Unlock()
		if !due {
			return ks.cache.Lookup(ctx, ks.url)
		}
		return ks.cache.Refresh(ctx, ks.url)
	})
	if err != nil {
		return nil, err
	}
	return v.(jwk.Set), nil
}

// Close stops the background refresher.
func (ks *keySet) Close() error {
	ks.stop()
	return nil
}

func exportRSA(k jwk.Key) (*rsa.PublicKey, error) {
	var raw any
	if err := jwk.Export(k, &raw); err != nil {
		return nil, err
	}
	pub, ok := raw.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("jwk %T is not an RSA public key", raw)
	}
	return pub, nil
}
