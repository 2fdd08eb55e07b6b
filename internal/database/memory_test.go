package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"sortec/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistration(id, code string) *entity.Registration {
	return &entity.Registration{
		Id: id,
		Participant: entity.Participant{
			GivenNames:  "Jose",
			FamilyNames: "Perez",
			Email:       "jose@example.com",
		},
		ContestCode: &code,
		Status:      entity.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestMemory_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	reg := newRegistration("a", "SORTECJP001")
	require.NoError(t, m.CreateRegistration(ctx, reg))
	assert.Error(t, m.CreateRegistration(ctx, newRegistration("a", "SORTECJP002")), "duplicate id")
	assert.Error(t, m.CreateRegistration(ctx, newRegistration("b", "SORTECJP001")), "duplicate code")

	got, err := m.GetRegistration(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, reg, got)

	// returned records are copies
	got.GivenNames = "Changed"
	again, _ := m.GetRegistration(ctx, "a")
	assert.Equal(t, "Jose", again.GivenNames)

	byCode, err := m.GetRegistrationByCode(ctx, "SORTECJP001")
	require.NoError(t, err)
	assert.Equal(t, "a", byCode.Id)

	missing, err := m.GetRegistration(ctx, "x")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemory_SetStatusIsCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CreateRegistration(ctx, newRegistration("a", "SORTECJP001")))

	at := time.Now().UTC()
	ok, err := m.SetStatus(ctx, "a", entity.StatusPending, entity.StatusApproved, at)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.SetStatus(ctx, "a", entity.StatusPending, entity.StatusDenied, at)
	require.NoError(t, err)
	assert.False(t, ok)

	reg, _ := m.GetRegistration(ctx, "a")
	assert.Equal(t, entity.StatusApproved, reg.Status)
	require.NotNil(t, reg.DecidedAt)
	assert.True(t, reg.DecidedAt.Equal(at))

	ok, _ = m.SetStatus(ctx, "missing", entity.StatusPending, entity.StatusDenied, at)
	assert.False(t, ok)
}

func TestMemory_ListUpdateDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, m.CreateRegistration(ctx, newRegistration(id, "CODE"+id)))
	}

	ok, err := m.DeleteRegistration(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = m.DeleteRegistration(ctx, "b")
	assert.False(t, ok)

	p := entity.Participant{GivenNames: "Ana", FamilyNames: "Rojas"}
	ok, err = m.UpdateParticipant(ctx, "c", &p)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = m.UpdateParticipant(ctx, "b", &p)
	assert.False(t, ok)

	var ids []string
	for reg, err := range m.Registrations(ctx) {
		require.NoError(t, err)
		ids = append(ids, reg.Id)
	}
	assert.Equal(t, []string{"a", "c"}, ids)

	count, err := m.CountRegistrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	c, _ := m.GetRegistration(ctx, "c")
	assert.Equal(t, "Ana Rojas", c.FullName())
	assert.Equal(t, "CODEc", c.Code())
}

func TestMemory_ListStopsOnCanceledContext(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.CreateRegistration(context.Background(), newRegistration("a", "A")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for reg, err := range m.Registrations(ctx) {
		assert.Nil(t, reg)
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestMemory_Sequence(t *testing.T) {
	ctx := context.Background()

	t.Run("seed before first allocation", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.Seed(ctx, 2))
		require.NoError(t, m.Seed(ctx, 10))
		n, err := m.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("seed after allocation is ignored", func(t *testing.T) {
		m := NewMemory()
		_, _ = m.Next(ctx)
		require.NoError(t, m.Seed(ctx, 100))
		n, _ := m.Next(ctx)
		assert.Equal(t, int64(2), n)
	})

	t.Run("concurrent allocations are distinct", func(t *testing.T) {
		m := NewMemory()
		const n = 100
		var mu sync.Mutex
		seen := make(map[int64]bool)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := m.Next(ctx)
				assert.NoError(t, err)
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}()
		}
		wg.Wait()
		assert.Len(t, seen, n)
	})
}
