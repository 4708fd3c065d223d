package followup

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/followup/internal/domain"
)

// fakeRepo — in-memory LeadRepository.
type fakeRepo struct {
	mu        sync.Mutex
	leads     map[uuid.UUID]*domain.Lead
	order     []uuid.UUID
	listErr   error
	failWrite map[uuid.UUID]error
	updates   map[uuid.UUID]int
}

func newFakeRepo(leads ...*domain.Lead) *fakeRepo {
	r := &fakeRepo{
		leads:     make(map[uuid.UUID]*domain.Lead),
		failWrite: make(map[uuid.UUID]error),
		updates:   make(map[uuid.UUID]int),
	}
	for _, l := range leads {
		r.leads[l.ID] = l
		r.order = append(r.order, l.ID)
	}
	return r
}

func (r *fakeRepo) ListByStatus(_ context.Context, status domain.LeadStatus) ([]domain.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.listErr != nil {
		return nil, r.listErr
	}

	var out []domain.Lead
	for _, id := range r.order {
		l := r.leads[id]
		if l.Status == status {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateLastContacted(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.failWrite[id]; err != nil {
		return err
	}
	l, ok := r.leads[id]
	if !ok {
		return errors.New("not found")
	}
	l.RecordContact(at)
	r.updates[id]++
	return nil
}

func (r *fakeRepo) get(id uuid.UUID) domain.Lead {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.leads[id]
}

func (r *fakeRepo) updateCount(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates[id]
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

// fakeNotifier запоминает отправленные письма.
type fakeNotifier struct {
	mu    sync.Mutex
	sent  []sentMail
	fail  map[string]error
	block chan struct{}
	// onSend вызывается после каждой успешной отправки.
	onSend func()
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{fail: make(map[string]error)}
}

func (n *fakeNotifier) Send(ctx context.Context, to, subject, body string) error {
	if n.block != nil {
		select {
		case <-n.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.fail[to]; err != nil {
		return err
	}
	n.sent = append(n.sent, sentMail{To: to, Subject: subject, Body: body})
	if n.onSend != nil {
		n.onSend()
	}
	return nil
}

func (n *fakeNotifier) sentTo(addr string) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	count := 0
	for _, m := range n.sent {
		if m.To == addr {
			count++
		}
	}
	return count
}

func (n *fakeNotifier) total() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// fakePublisher запоминает события.
type fakePublisher struct {
	mu     sync.Mutex
	events []uuid.UUID
	err    error
}

func (p *fakePublisher) PublishLeadContacted(_ context.Context, leadID uuid.UUID, _ string, _ time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, leadID)
	return nil
}

// clock — управляемое время для тестов.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
