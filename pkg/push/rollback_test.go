package push

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreationContextReversed(t *testing.T) {
	trail := &CreationContext{}
	trail.Append(KindLeaf, "RK-A", "g-1")
	trail.Append(KindRow, "TOP-ROW1", "g-2")
	trail.Append(KindTop, "TOP", "g-3")

	reversed := trail.Reversed()
	require.Len(t, reversed, 3)
	assert.Equal(t, "g-3", reversed[0].GUID)
	assert.Equal(t, "g-1", reversed[2].GUID)

	// original order untouched
	assert.Equal(t, "g-1", trail.Entries()[0].GUID)
	assert.Equal(t, 3, trail.Len())
}

func TestRollbackDeletesNewestFirst(t *testing.T) {
	f := defaultFakePLM()
	client, _ := newPushClient(t, f)

	trail := &CreationContext{}
	trail.Append(KindLeaf, "RK-A", "g-1")
	trail.Append(KindRow, "TOP-ROW1", "g-2")
	trail.Append(KindTop, "TOP", "g-3")

	require.NoError(t, Rollback(context.Background(), client, trail))
	assert.Equal(t, []string{"g-3", "g-2", "g-1"}, f.deleted)
}

func TestRollbackTreats404AsSuccess(t *testing.T) {
	f := defaultFakePLM()
	f.goneDelete = map[string]bool{"g-2": true}
	client, _ := newPushClient(t, f)

	trail := &CreationContext{}
	trail.Append(KindLeaf, "RK-A", "g-1")
	trail.Append(KindRow, "TOP-ROW1", "g-2")

	require.NoError(t, Rollback(context.Background(), client, trail))
	assert.Equal(t, []string{"g-1"}, f.deleted)
}

func TestRollbackCollectsFailures(t *testing.T) {
	f := defaultFakePLM()
	f.failDelete = map[string]bool{"g-2": true}
	client, _ := newPushClient(t, f)

	trail := &CreationContext{}
	trail.Append(KindLeaf, "RK-A", "g-1")
	trail.Append(KindRow, "TOP-ROW1", "g-2")
	trail.Append(KindTop, "TOP", "g-3")

	err := Rollback(context.Background(), client, trail)
	var partial *PartialRollbackError
	require.ErrorAs(t, err, &partial)
	require.Len(t, partial.Failed, 1)
	assert.Equal(t, "TOP-ROW1", partial.Failed[0].Number)
	assert.Contains(t, err.Error(), "TOP-ROW1")

	// the sweep continues past the failure
	assert.Equal(t, []string{"g-3", "g-1"}, f.deleted)
}
