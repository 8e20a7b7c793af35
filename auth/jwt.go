package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const defaultRefreshInterval = time.Minute

type JWTConfig struct {
	Issuer    string // checked when set
	Audience  string // checked when set
	ClockSkew time.Duration
	// RefreshInterval is the least time between two key refreshes forced by
	// unknown key ids. Defaults to a minute.
	RefreshInterval time.Duration
}

// JWTVerifier accepts signed JWTs that carry an email claim.
type JWTVerifier struct {
	keys KeySource
	cfg  JWTConfig
	now  func() time.Time

	mu            sync.Mutex
	lastRefreshed time.Time
}

func NewJWTVerifier(keys KeySource, cfg JWTConfig) *JWTVerifier {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	return &JWTVerifier{keys: keys, cfg: cfg, now: time.Now}
}

// mayRefresh reports whether a forced refresh is allowed now and, if so,
// counts it.
func (v *JWTVerifier) mayRefresh() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	now := v.now()
	if !v.lastRefreshed.IsZero() && now.Sub(v.lastRefreshed) < v.cfg.RefreshInterval {
		return false
	}
	v.lastRefreshed = now
	return true
}

func (v *JWTVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	kid, err := keyID(token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrRejected, err)
	}

	set, err := v.keys.Keys(ctx, false)
	if err != nil {
		return Identity{}, err
	}
	if _, found := set.LookupKeyID(kid); !found && kid != "" && v.mayRefresh() {
		set, err = v.keys.Keys(ctx, true)
		if err != nil {
			return Identity{}, err
		}
	}

	options := []jwt.ParseOption{
		jwt.WithKeySet(set, jws.WithInferAlgorithmFromKey(true)),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(v.cfg.ClockSkew),
	}
	if v.cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		options = append(options, jwt.WithAudience(v.cfg.Audience))
	}

	parsed, err := jwt.Parse([]byte(token), options...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrRejected, err)
	}
	return identityFromClaims(parsed)
}

func keyID(token string) (string, error) {
	msg, err := jws.Parse([]byte(token))
	if err != nil {
		return "", fmt.Errorf("malformed token: %w", err)
	}
	signatures := msg.Signatures()
	if len(signatures) == 0 {
		return "", fmt.Errorf("token is not signed")
	}
	return signatures[0].ProtectedHeaders().KeyID(), nil
}

func identityFromClaims(token jwt.Token) (Identity, error) {
	raw, _ := token.Get("email")
	email, _ := raw.(string)
	if email == "" {
		return Identity{}, fmt.Errorf("%w: token has no email claim", ErrRejected)
	}

	// Some providers send email_verified as a string.
	if raw, ok := token.Get("email_verified"); ok {
		switch verified := raw.(type) {
		case bool:
			if !verified {
				return Identity{}, fmt.Errorf("%w: email %s is not verified", ErrRejected, email)
			}
		case string:
			if strings.EqualFold(verified, "false") {
				return Identity{}, fmt.Errorf("%w: email %s is not verified", ErrRejected, email)
			}
		}
	}
	return Identity{Email: email}, nil
}
