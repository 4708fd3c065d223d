package repo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/followup/internal/domain"
)

// testDBEnv — DSN отдельной тестовой БД. Тесты очищают таблицу leads.
const testDBEnv = "FOLLOWUP_TEST_DB_URL"

func newTestRepo(t *testing.T) *LeadRepo {
	t.Helper()
	dsn := os.Getenv(testDBEnv)
	if dsn == "" {
		t.Skipf("%s not set", testDBEnv)
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, EnsureSchema(ctx, pool))
	r := NewLeadRepo(pool)
	_, err = r.DeleteAll(ctx)
	require.NoError(t, err)
	return r
}

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestLeadRepo_CreateAndList(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	a := domain.NewLead("a@x.com", 10, t0)
	b := domain.NewLead("b@x.com", 5, t0.Add(time.Second))
	require.NoError(t, r.CreateMany(ctx, []*domain.Lead{a, b}))
	require.NoError(t, r.SetStatus(ctx, b.ID, domain.LeadStatusPaused))

	active, err := r.ListByStatus(ctx, domain.LeadStatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, a.ID, active[0].ID)
	assert.Nil(t, active[0].LastContactedAt)
	assert.True(t, t0.Equal(active[0].CreatedAt))

	all, err := r.List(ctx, LeadFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = r.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLeadRepo_CreateManyIsAtomic(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	good := domain.NewLead("a@x.com", 10, t0)
	bad := domain.NewLead("b@x.com", 10, t0)
	bad.EmailInterval = 0 // нарушает CHECK

	require.Error(t, r.CreateMany(ctx, []*domain.Lead{good, bad}))

	all, err := r.List(ctx, LeadFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestLeadRepo_UpdateLastContacted(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	lead := domain.NewLead("a@x.com", 10, t0)
	require.NoError(t, r.Create(ctx, lead))

	at := t0.Add(10 * time.Minute)
	require.NoError(t, r.UpdateLastContacted(ctx, lead.ID, at))

	got, err := r.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastContactedAt)
	assert.True(t, at.Equal(*got.LastContactedAt))
	assert.Equal(t, 10, got.EmailInterval)

	// Назад во времени — отклоняется.
	assert.ErrorIs(t, r.UpdateLastContacted(ctx, lead.ID, t0.Add(time.Minute)), ErrStaleUpdate)

	// Не active — отклоняется.
	require.NoError(t, r.SetStatus(ctx, lead.ID, domain.LeadStatusCompleted))
	assert.ErrorIs(t, r.UpdateLastContacted(ctx, lead.ID, t0.Add(20*time.Minute)), ErrStaleUpdate)

	assert.ErrorIs(t, r.UpdateLastContacted(ctx, uuid.New(), at), ErrNotFound)
}

func TestLeadRepo_Delete(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	lead := domain.NewLead("a@x.com", 10, t0)
	require.NoError(t, r.Create(ctx, lead))

	require.NoError(t, r.Delete(ctx, lead.ID))
	assert.ErrorIs(t, r.Delete(ctx, lead.ID), ErrNotFound)
}
