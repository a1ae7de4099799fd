package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bbqpos/internal/identity"
	"bbqpos/internal/store"
)

type fakeProvider struct {
	current   error
	token     error
	anonymous error

	tokenCalls atomic.Int32
	anonCalls  atomic.Int32
}

func (f *fakeProvider) CurrentSession(ctx context.Context) (identity.Identity, error) {
	if f.current != nil {
		return identity.Identity{}, f.current
	}
	return identity.Identity{UserID: "existing"}, nil
}

func (f *fakeProvider) SignInWithToken(ctx context.Context, token string) (identity.Identity, error) {
	f.tokenCalls.Add(1)
	if f.token != nil {
		return identity.Identity{}, f.token
	}
	return identity.Identity{UserID: "token:" + token}, nil
}

func (f *fakeProvider) SignInAnonymously(ctx context.Context) (identity.Identity, error) {
	f.anonCalls.Add(1)
	if f.anonymous != nil {
		return identity.Identity{}, f.anonymous
	}
	return identity.Identity{UserID: "anon", Anonymous: true}, nil
}

func memoryConnector(st store.Store) Connector {
	return func(ctx context.Context) (store.Store, error) {
		return st, nil
	}
}

func waitReady(t *testing.T, b *Bootstrap) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, b.Wait(ctx))
}

func TestBootstrapIdentityPriority(t *testing.T) {
	boom := errors.New("boom")

	cases := map[string]struct {
		provider   *fakeProvider
		token      string
		expectedID string
		degraded   bool
	}{
		"existing session wins": {
			provider:   &fakeProvider{},
			token:      "t",
			expectedID: "existing",
		},
		"token sign-in": {
			provider:   &fakeProvider{current: identity.ErrNoSession},
			token:      "t",
			expectedID: "token:t",
		},
		"anonymous without token": {
			provider:   &fakeProvider{current: identity.ErrNoSession},
			expectedID: "anon",
		},
		"anonymous after token failure": {
			provider:   &fakeProvider{current: identity.ErrNoSession, token: boom},
			token:      "t",
			expectedID: "anon",
		},
		"everything fails": {
			provider: &fakeProvider{current: identity.ErrNoSession, token: boom, anonymous: boom},
			token:    "t",
			degraded: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			mem := store.NewMemory()
			b := New(memoryConnector(mem), tc.provider, tc.token)
			b.Start(context.Background())
			waitReady(t, b)

			assert.Equal(t, tc.degraded, b.Degraded())
			assert.Same(t, mem, b.Store())
			if tc.degraded {
				assert.NotEmpty(t, b.Identity().UserID)
				assert.True(t, b.Identity().Anonymous)
				return
			}
			assert.Equal(t, tc.expectedID, b.Identity().UserID)
		})
	}
}

func TestBootstrapConnectionFailureSynthesizesIdentity(t *testing.T) {
	provider := &fakeProvider{}
	b := New(func(ctx context.Context) (store.Store, error) {
		return nil, errors.New("unreachable")
	}, provider, "")
	b.Start(context.Background())
	waitReady(t, b)

	assert.True(t, b.Degraded())
	assert.Nil(t, b.Store())
	assert.NotEmpty(t, b.Identity().UserID)
	assert.Zero(t, provider.anonCalls.Load())
}

func TestBootstrapStartIsIdempotent(t *testing.T) {
	var connects atomic.Int32
	release := make(chan struct{})
	b := New(func(ctx context.Context) (store.Store, error) {
		connects.Add(1)
		<-release
		return store.NewMemory(), nil
	}, &fakeProvider{}, "")

	b.Start(context.Background())
	b.Start(context.Background())
	close(release)
	waitReady(t, b)
	b.Start(context.Background())

	assert.Equal(t, int32(1), connects.Load())
}

func TestBootstrapCloseDisconnectsStore(t *testing.T) {
	mem := store.NewMemory()
	b := New(memoryConnector(mem), &fakeProvider{}, "")
	b.Start(context.Background())
	waitReady(t, b)

	require.NoError(t, b.Close(context.Background()))
	assert.ErrorIs(t, mem.Ping(context.Background()), store.ErrClosed)
	assert.Nil(t, b.Store())
}

func TestAuthErrorUnwraps(t *testing.T) {
	boom := errors.New("boom")
	err := error(&AuthError{Err: boom})

	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
	assert.ErrorIs(t, err, boom)
}
