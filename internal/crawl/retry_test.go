package crawl

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type timeoutErr struct{ timeout bool }

func (e timeoutErr) Error() string   { return "dial tcp: i/o timeout" }
func (e timeoutErr) Timeout() bool   { return e.timeout }
func (e timeoutErr) Temporary() bool { return e.timeout }

var _ net.Error = timeoutErr{}

func TestRetryPolicyShouldRetry(t *testing.T) {
	t.Parallel()

	p := NewRetryPolicy(3)

	tests := []struct {
		name    string
		err     error
		attempt int
		want    bool
	}{
		{name: "nil error", err: nil, attempt: 0, want: false},
		{name: "generic error retries", err: errors.New("http 503"), attempt: 0, want: true},
		{name: "attempts exhausted", err: errors.New("http 503"), attempt: 3, want: false},
		{name: "context canceled never retries", err: context.Canceled, attempt: 0, want: false},
		{name: "fetch deadline exceeded retries", err: context.DeadlineExceeded, attempt: 0, want: true},
		{name: "fetch deadline exceeded exhausts budget", err: context.DeadlineExceeded, attempt: 3, want: false},
		{name: "wrapped deadline exceeded retries", err: fmt.Errorf("fetch page: %w", context.DeadlineExceeded), attempt: 1, want: true},
		{name: "network timeout retries", err: timeoutErr{timeout: true}, attempt: 1, want: true},
		{name: "non-timeout network error drops", err: timeoutErr{timeout: false}, attempt: 0, want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, p.ShouldRetry(tt.err, tt.attempt))
		})
	}
}

func TestRetryPolicyAllows(t *testing.T) {
	t.Parallel()

	p := NewRetryPolicy(3)
	require.True(t, p.Allows(0))
	require.True(t, p.Allows(2))
	require.False(t, p.Allows(3))
}

func TestRetryPolicyBackoffBounded(t *testing.T) {
	t.Parallel()

	p := NewRetryPolicy(5)
	for attempt := 0; attempt < 8; attempt++ {
		d := p.Backoff(attempt)
		require.GreaterOrEqual(t, d, time.Duration(0))
		require.LessOrEqual(t, d, 5*time.Second)
	}
}
