// Package identity resolves who is operating the stall. Identities are
// carried in HS256 tokens signed with the deployment secret.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrNoSession    = errors.New("no active session")
	ErrNoSecret     = errors.New("signing secret not configured")
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is a resolved caller.
type Identity struct {
	UserID    string `json:"userId"`
	Anonymous bool   `json:"anonymous"`
	Token     string `json:"-"`
}

// Provider signs callers in. Implementations remember the last successful
// sign-in so CurrentSession can return it.
type Provider interface {
	CurrentSession(ctx context.Context) (Identity, error)
	SignInWithToken(ctx context.Context, token string) (Identity, error)
	SignInAnonymously(ctx context.Context) (Identity, error)
}

// JWTProvider is a Provider backed by HS256 tokens.
type JWTProvider struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	session string
}

// NewJWTProvider returns a provider signing with secret. sessionToken, when
// non-empty, is treated as an already-established session.
func NewJWTProvider(secret string, ttl time.Duration, sessionToken string) *JWTProvider {
	return &JWTProvider{
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
		session: strings.TrimSpace(sessionToken),
	}
}

func (p *JWTProvider) CurrentSession(ctx context.Context) (Identity, error) {
	p.mu.Lock()
	token := p.session
	p.mu.Unlock()

	if token == "" {
		return Identity{}, ErrNoSession
	}
	id, err := p.verify(token)
	if err != nil {
		return Identity{}, fmt.Errorf("current session: %w", err)
	}
	return id, nil
}

func (p *JWTProvider) SignInWithToken(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	id, err := p.verify(token)
	if err != nil {
		return Identity{}, fmt.Errorf("token sign-in: %w", err)
	}
	p.remember(token)
	return id, nil
}

func (p *JWTProvider) SignInAnonymously(ctx context.Context) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	userID := "anon-" + uuid.NewString()
	token, err := p.Issue(userID, "anonymous")
	if err != nil {
		return Identity{}, fmt.Errorf("anonymous sign-in: %w", err)
	}
	p.remember(token)
	return Identity{UserID: userID, Anonymous: true, Token: token}, nil
}

// Issue signs a token for userID with the given role.
func (p *JWTProvider) Issue(userID, role string) (string, error) {
	if len(p.secret) == 0 {
		return "", ErrNoSecret
	}
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"iat":  p.now().Unix(),
		"exp":  p.now().Add(p.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

func (p *JWTProvider) verify(raw string) (Identity, error) {
	if len(p.secret) == 0 {
		return Identity{}, ErrNoSecret
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(p.now))
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	userID, _ := claims["sub"].(string)
	if strings.TrimSpace(userID) == "" {
		userID, _ = claims["userId"].(string)
	}
	if strings.TrimSpace(userID) == "" {
		return Identity{}, fmt.Errorf("%w: subject claim missing", ErrInvalidToken)
	}

	role, _ := claims["role"].(string)
	return Identity{UserID: userID, Anonymous: role == "anonymous", Token: raw}, nil
}

func (p *JWTProvider) remember(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = token
}
