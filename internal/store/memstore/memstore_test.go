package memstore_test

import (
	"sort"
	"testing"

	"brewhaus/backend/internal/store"
	"brewhaus/backend/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSubscribe_DeliversCurrentValueImmediately verifies the full-snapshot
// contract: a new subscriber sees the existing value without waiting for a
// change.
func TestSubscribe_DeliversCurrentValueImmediately(t *testing.T) {
	// Arrange
	st := memstore.New()
	require.NoError(t, st.Write("chats/s1", map[string]any{"status": "active"}))

	// Act
	var got []store.Snapshot
	unsub := st.Subscribe("chats/s1", func(snap store.Snapshot) {
		got = append(got, snap)
	})
	defer unsub()

	// Assert
	require.Len(t, got, 1)
	assert.Equal(t, "active", got[0]["status"])
}

// TestSubscribe_FullStateReplaceOnEveryChange verifies each emission carries
// the entire value at the path, not a delta.
func TestSubscribe_FullStateReplaceOnEveryChange(t *testing.T) {
	// Arrange
	st := memstore.New()
	var got []store.Snapshot
	unsub := st.Subscribe("chats", func(snap store.Snapshot) {
		got = append(got, snap)
	})
	defer unsub()

	// Act - two writes under the subscribed path
	require.NoError(t, st.Write("chats/a", map[string]any{"status": "active"}))
	require.NoError(t, st.Write("chats/b", map[string]any{"status": "active"}))

	// Assert - initial nil snapshot, then one child, then both
	require.Len(t, got, 3)
	assert.Nil(t, got[0])
	assert.Len(t, got[1], 1)
	assert.Len(t, got[2], 2)
	assert.Contains(t, got[2], "a")
	assert.Contains(t, got[2], "b")
}

// TestUnsubscribe_StopsCallbacks verifies the cancellation contract.
func TestUnsubscribe_StopsCallbacks(t *testing.T) {
	// Arrange
	st := memstore.New()
	calls := 0
	unsub := st.Subscribe("chats", func(store.Snapshot) { calls++ })

	// Act
	unsub()
	require.NoError(t, st.Write("chats/a", map[string]any{"x": 1}))

	// Assert - only the initial delivery happened
	assert.Equal(t, 1, calls)
}

// TestUpdate_MergesFieldsLeavingSiblingsIntact distinguishes update from
// write: session cache updates must not clobber the message subtree.
func TestUpdate_MergesFieldsLeavingSiblingsIntact(t *testing.T) {
	// Arrange
	st := memstore.New()
	require.NoError(t, st.Write("chats/s1", map[string]any{
		"status":      "active",
		"unreadCount": 2,
	}))
	require.NoError(t, st.Write("chats/s1/messages/m1", map[string]any{"text": "hi"}))

	// Act
	require.NoError(t, st.Update("chats/s1", map[string]any{"status": "resolved"}))

	// Assert
	snap, err := st.Get("chats/s1")
	require.NoError(t, err)
	assert.Equal(t, "resolved", snap["status"])
	assert.Equal(t, 2, snap["unreadCount"])
	msgs, err := st.Get("chats/s1/messages")
	require.NoError(t, err)
	assert.Contains(t, msgs, "m1", "update must leave the message subtree alone")
}

// TestWrite_FullyReplaces verifies write drops fields absent from the new
// value.
func TestWrite_FullyReplaces(t *testing.T) {
	// Arrange
	st := memstore.New()
	require.NoError(t, st.Write("chats/s1", map[string]any{"a": 1, "b": 2}))

	// Act
	require.NoError(t, st.Write("chats/s1", map[string]any{"a": 9}))

	// Assert
	snap, err := st.Get("chats/s1")
	require.NoError(t, err)
	assert.Equal(t, 9, snap["a"])
	assert.NotContains(t, snap, "b")
}

// TestGenerateKey_UniqueAndOrdered verifies push keys sort by allocation
// order.
func TestGenerateKey_UniqueAndOrdered(t *testing.T) {
	// Arrange
	st := memstore.New()

	// Act
	keys := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		keys = append(keys, st.GenerateKey("chats"))
	}

	// Assert
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	assert.Equal(t, keys, sorted, "push keys must sort by creation order")
	seen := make(map[string]bool)
	for _, k := range keys {
		assert.False(t, seen[k], "push keys must be unique")
		seen[k] = true
	}
}

// TestServerTimestamp_ResolvedMonotonically verifies the marker resolves to
// strictly increasing values even for writes in the same millisecond.
func TestServerTimestamp_ResolvedMonotonically(t *testing.T) {
	// Arrange
	st := memstore.New()

	// Act - burst of writes, all within one tick
	for i := 0; i < 20; i++ {
		key := st.GenerateKey("chats/s1/messages")
		require.NoError(t, st.Write("chats/s1/messages/"+key, map[string]any{
			"timestamp": store.ServerTimestamp,
		}))
	}

	// Assert
	snap, err := st.Get("chats/s1/messages")
	require.NoError(t, err)
	var stamps []int64
	for _, raw := range snap {
		rec := raw.(map[string]any)
		stamps = append(stamps, rec["timestamp"].(int64))
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })
	for i := 1; i < len(stamps); i++ {
		assert.Greater(t, stamps[i], stamps[i-1], "timestamps must be strictly increasing")
	}
}

// TestSnapshotIsolation verifies mutating a delivered snapshot does not leak
// back into the store.
func TestSnapshotIsolation(t *testing.T) {
	// Arrange
	st := memstore.New()
	require.NoError(t, st.Write("chats/s1", map[string]any{"status": "active"}))

	// Act
	snap, err := st.Get("chats/s1")
	require.NoError(t, err)
	snap["status"] = "tampered"

	// Assert
	fresh, err := st.Get("chats/s1")
	require.NoError(t, err)
	assert.Equal(t, "active", fresh["status"])
}
