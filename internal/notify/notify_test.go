package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/shaiso/followup/internal/telemetry"
)

type stubSender struct {
	mu    sync.Mutex
	got   []*gomail.Message
	calls int
	err   error
	delay time.Duration
}

func (s *stubSender) DialAndSend(m ...*gomail.Message) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, m...)
	return s.err
}

func (s *stubSender) dialCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestSMTP(s sender) *SMTP {
	return &SMTP{from: "noreply@pool.test", sender: s, logger: telemetry.DiscardLogger()}
}

func TestSMTP_Send_BuildsMessage(t *testing.T) {
	stub := &stubSender{}
	n := newTestSMTP(stub)

	err := n.Send(context.Background(), "a@x.com", "Hello", "<p>hi</p>")
	require.NoError(t, err)

	require.Len(t, stub.got, 1)
	msg := stub.got[0]
	assert.Equal(t, []string{"noreply@pool.test"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"a@x.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Hello"}, msg.GetHeader("Subject"))
}

func TestSMTP_Send_PropagatesError(t *testing.T) {
	n := newTestSMTP(&stubSender{err: errors.New("535 auth failed")})

	err := n.Send(context.Background(), "a@x.com", "Hello", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "535 auth failed")
}

func TestSMTP_Send_RespectsDeadline(t *testing.T) {
	n := newTestSMTP(&stubSender{delay: 200 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := n.Send(ctx, "a@x.com", "Hello", "body")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSMTP_Send_ExpiredContextNeverDials(t *testing.T) {
	stub := &stubSender{}
	n := newTestSMTP(stub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.Send(ctx, "a@x.com", "Hello", "body")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, stub.dialCount())
}

func TestSMTP_Send_EmptyRecipient(t *testing.T) {
	n := newTestSMTP(&stubSender{})
	assert.ErrorIs(t, n.Send(context.Background(), "", "s", "b"), ErrNoRecipient)
}

func TestLog_Send(t *testing.T) {
	n := NewLog(telemetry.DiscardLogger())

	assert.NoError(t, n.Send(context.Background(), "a@x.com", "s", "b"))
	assert.ErrorIs(t, n.Send(context.Background(), "", "s", "b"), ErrNoRecipient)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Send(ctx, "a@x.com", "s", "b"), context.Canceled)
}
