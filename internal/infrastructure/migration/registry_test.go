package migration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/userschema/internal/shared/errors"
)

func TestNewRegistry_OrdersChain(t *testing.T) {
	revs := widgetRevisions()
	registry, err := NewRegistry(revs[2], revs[0], revs[1])
	require.NoError(t, err)

	var ids []string
	for _, rev := range registry.Revisions() {
		ids = append(ids, rev.ID)
	}
	assert.Equal(t, []string{"a1", "b2", "c3"}, ids)
	assert.Equal(t, "", registry.Base())
	assert.Equal(t, "c3", registry.Head())
}

func TestNewRegistry_ExternalBase(t *testing.T) {
	registry, err := NewRegistry(
		addColumnRevision("b2", "a1", "size"),
		addColumnRevision("c3", "b2", "weight"),
	)
	require.NoError(t, err)

	assert.Equal(t, "a1", registry.Base())

	pos, err := registry.Resolve("a1")
	require.NoError(t, err)
	assert.Equal(t, -1, pos)
}

func TestNewRegistry_Invalid(t *testing.T) {
	noop := func(context.Context, Operations) error { return nil }

	tests := []struct {
		name      string
		revisions []*Revision
	}{
		{name: "empty"},
		{name: "nil revision", revisions: []*Revision{nil}},
		{name: "empty id", revisions: []*Revision{{Upgrade: noop, Downgrade: noop}}},
		{name: "missing downgrade", revisions: []*Revision{{ID: "a1", Upgrade: noop}}},
		{name: "self reference", revisions: []*Revision{{ID: "a1", DownRevision: "a1", Upgrade: noop, Downgrade: noop}}},
		{name: "reserved id", revisions: []*Revision{{ID: "head", Upgrade: noop, Downgrade: noop}}},
		{
			name: "duplicate id",
			revisions: []*Revision{
				addColumnRevision("a1", "", "color"),
				addColumnRevision("a1", "", "size"),
			},
		},
		{
			name: "branch",
			revisions: []*Revision{
				addColumnRevision("a1", "", "color"),
				addColumnRevision("b2", "a1", "size"),
				addColumnRevision("b3", "a1", "weight"),
			},
		},
		{
			name: "two roots",
			revisions: []*Revision{
				addColumnRevision("a1", "", "color"),
				addColumnRevision("b2", "x9", "size"),
			},
		},
		{
			name: "cycle",
			revisions: []*Revision{
				addColumnRevision("a1", "", "color"),
				addColumnRevision("b2", "c3", "size"),
				addColumnRevision("c3", "b2", "weight"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.revisions...)
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err), err.Error())
		})
	}
}

func TestRegistry_Resolve(t *testing.T) {
	registry := newWidgetRegistry(t)

	for target, want := range map[string]int{"head": 2, "base": -1, "a1": 0, "b2": 1} {
		pos, err := registry.Resolve(target)
		require.NoError(t, err, target)
		assert.Equal(t, want, pos, target)
	}

	_, err := registry.Resolve("zz")
	assert.True(t, errors.IsNotFoundError(err))
	_, err = registry.Resolve("")
	assert.True(t, errors.IsNotFoundError(err))

	rev, ok := registry.Get("b2")
	require.True(t, ok)
	assert.Equal(t, "a1", rev.DownRevision)
	_, ok = registry.Get("zz")
	assert.False(t, ok)

	pos, ok := registry.Position("c3")
	require.True(t, ok)
	assert.Equal(t, 2, pos)
	_, ok = registry.Position("base0")
	assert.False(t, ok)
}
