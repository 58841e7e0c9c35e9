package routestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dutyplan/core/factory"
	"github.com/kilianp07/dutyplan/core/model"
)

func sampleDoc(number string) model.RouteDocument {
	return model.RouteDocument{
		RouteNumber:   number,
		RouteName:     "Line " + number,
		FromTerminal:  "A",
		ToTerminal:    "B",
		Leg1:          model.LegDoc{Kilometers: 4, TimePerKm: 5},
		Leg2:          &model.LegDoc{Kilometers: 4, TimePerKm: 5},
		BusesAssigned: 2,
		CrewDutyRules: &model.CrewDutyRulesDoc{BreakDuration: model.NumPtr(20)},
	}
}

func TestMemoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	tick := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	s.now = func() time.Time { tick = tick.Add(time.Minute); return tick }

	r1, err := s.Create(ctx, sampleDoc("1"))
	require.NoError(t, err)
	r2, err := s.Create(ctx, sampleDoc("2"))
	require.NoError(t, err)
	assert.NotEmpty(t, r1.ID)
	assert.NotEqual(t, r1.ID, r2.ID)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, r2.ID, list[0].ID, "newest first")

	doc := sampleDoc("1b")
	up, err := s.Update(ctx, r1.ID, doc)
	require.NoError(t, err)
	assert.Equal(t, "1b", up.RouteNumber)
	assert.Equal(t, r1.CreatedAt, up.CreatedAt)
	assert.True(t, up.UpdatedAt.After(r1.UpdatedAt))

	require.NoError(t, s.Delete(ctx, r2.ID))
	_, err = s.Get(ctx, r2.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.ErrorIs(t, s.Delete(ctx, r2.ID), ErrNotFound)
	_, err = s.Update(ctx, "missing", doc)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DeepCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	doc := sampleDoc("1")
	r, err := s.Create(ctx, doc)
	require.NoError(t, err)

	*doc.CrewDutyRules.BreakDuration = 99
	r.Leg2.Kilometers = 77

	got, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Num(20), *got.CrewDutyRules.BreakDuration)
	assert.Equal(t, model.Num(4), got.Leg2.Kilometers)
}

func TestMemoryStore_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryStore().List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(factory.ModuleConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	_, err = NewStore(factory.ModuleConfig{Type: "missing"})
	assert.Error(t, err)
	assert.Contains(t, Backends(), "memory")
}
