package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/migerr"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Classification
	}{
		{"connection error retryable", migerr.Connection("dial failed", nil), Retryable},
		{"rate limit retryable", migerr.RateLimit(500, "too many requests", nil), Retryable},
		{"data error retryable", migerr.Data("dangling predecessor", nil), Retryable},
		{"auth error not retryable", migerr.Auth(migerr.AuthDeclined, "declined", nil), NotRetryable},
		{"permission error not retryable", migerr.Permission("forbidden", nil), NotRetryable},
		{"configuration error not retryable", migerr.Configuration("bad env", nil), NotRetryable},
		{"validation error not retryable", migerr.Validation("bad shape", nil), NotRetryable},
		{"unknown error defaults retryable", errors.New("something weird"), Retryable},
		{"nil error retryable", nil, Retryable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

type statusErr struct{ code int }

func (s statusErr) Error() string  { return "status error" }
func (s statusErr) StatusCode() int { return s.code }

func TestClassifyHTTPStatus(t *testing.T) {
	assert.Equal(t, Retryable, Classify(statusErr{404}))
	assert.Equal(t, Retryable, Classify(statusErr{429}))
	assert.Equal(t, Retryable, Classify(statusErr{500}))
	assert.Equal(t, Retryable, Classify(statusErr{503}))
	assert.Equal(t, NotRetryable, Classify(statusErr{401}))
	assert.Equal(t, NotRetryable, Classify(statusErr{403}))
	assert.Equal(t, NotRetryable, Classify(statusErr{400}))
}

func TestEngineTryWithRetriesTransientThenSucceeds(t *testing.T) {
	engine := NewEngine()
	engine.MaxDelay = 10 * time.Millisecond

	attempts := 0
	err := engine.TryWith(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return migerr.Connection("dial tcp: timeout", nil)
		}
		return nil
	}, 5, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestEngineTryWithStopsOnNotRetryable(t *testing.T) {
	engine := NewEngine()
	engine.MaxDelay = 10 * time.Millisecond

	attempts := 0
	sentinel := migerr.Permission("no access", nil)
	err := engine.TryWith(context.Background(), func(ctx context.Context) error {
		attempts++
		return sentinel
	}, 5, time.Millisecond)

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, sentinel)
}

func TestEngineTryWithExhaustsMaxAttempts(t *testing.T) {
	engine := NewEngine()
	engine.MaxDelay = 10 * time.Millisecond

	attempts := 0
	err := engine.TryWith(context.Background(), func(ctx context.Context) error {
		attempts++
		return migerr.Connection("always fails", nil)
	}, 3, time.Millisecond)

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestEngineTryWithRespectsContextCancellation(t *testing.T) {
	engine := NewEngine()
	engine.MaxDelay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := engine.TryWith(ctx, func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			cancel()
		}
		return migerr.Connection("still failing", nil)
	}, 10, 50*time.Millisecond)

	require.Error(t, err)
	assert.LessOrEqual(t, attempts, 2)
}

func TestIsTransientNetworkMessage(t *testing.T) {
	assert.True(t, IsTransientNetworkMessage(errors.New("read tcp: connection reset by peer")))
	assert.True(t, IsTransientNetworkMessage(errors.New("context deadline exceeded (timeout)")))
	assert.False(t, IsTransientNetworkMessage(errors.New("invalid credentials")))
	assert.False(t, IsTransientNetworkMessage(nil))
}
