package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(t *testing.T, v any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestEqMatchesStringField(t *testing.T) {
	d := doc(t, map[string]any{"user_id": "u-1", "quantity": 5})

	assert.True(t, Matches(Eq("user_id", "u-1"), d))
	assert.False(t, Matches(Eq("user_id", "u-2"), d))
}

func TestEqNormalizesNumericTypes(t *testing.T) {
	// Decoded documents carry float64; callers pass int64.
	d := doc(t, map[string]any{"quantity": int64(5)})

	assert.True(t, Matches(Eq("quantity", int64(5)), d))
	assert.True(t, Matches(Eq("quantity", 5), d))
	assert.False(t, Matches(Eq("quantity", 6), d))
}

func TestEqMissingFieldDoesNotMatch(t *testing.T) {
	d := doc(t, map[string]any{"user_id": "u-1"})

	assert.False(t, Matches(Eq("catalog_item_id", "c-1"), d))
}

func TestInMatchesAnyValue(t *testing.T) {
	d := doc(t, map[string]any{"id": "b"})

	assert.True(t, Matches(In("id", "a", "b", "c"), d))
	assert.False(t, Matches(In("id", "x", "y"), d))
	assert.False(t, Matches(In("id"), d))
}

func TestAndRequiresEveryClause(t *testing.T) {
	d := doc(t, map[string]any{"user_id": "u-1", "catalog_item_id": "c-1"})

	assert.True(t, Matches(And(Eq("user_id", "u-1"), Eq("catalog_item_id", "c-1")), d))
	assert.False(t, Matches(And(Eq("user_id", "u-1"), Eq("catalog_item_id", "c-2")), d))
	assert.True(t, Matches(And(), d))
}
