package optional_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racketdata/ttsync/pkg/optional"
)

func TestZeroValueIsAbsent(t *testing.T) {
	var v optional.Value[string]
	assert.False(t, v.Present())
	assert.Nil(t, v.Ptr())
	assert.Equal(t, "fallback", v.Or("fallback"))
}

func TestOfNonEmpty(t *testing.T) {
	assert.False(t, optional.OfNonEmpty("").Present())

	v := optional.OfNonEmpty("C2")
	require.True(t, v.Present())
	got, ok := v.Get()
	assert.True(t, ok)
	assert.Equal(t, "C2", got)
}

func TestMergeNonRegression(t *testing.T) {
	stored := optional.Of("Hainaut")

	// Absent incoming never clears a stored value.
	merged := optional.Merge(stored, optional.None[string]())
	assert.Equal(t, "Hainaut", merged.Or(""))

	// Present incoming always wins, even when different.
	merged = optional.Merge(stored, optional.Of("Namur"))
	assert.Equal(t, "Namur", merged.Or(""))

	// Insert case: nothing stored, incoming present.
	merged = optional.Merge(optional.None[string](), optional.Of("Liège"))
	assert.Equal(t, "Liège", merged.Or(""))

	// Absent on both sides stays absent.
	merged = optional.Merge(optional.None[string](), optional.None[string]())
	assert.False(t, merged.Present())
}

func TestFromPtr(t *testing.T) {
	n := 1234.5
	assert.True(t, optional.FromPtr(&n).Present())
	assert.False(t, optional.FromPtr[float64](nil).Present())
}

func TestJSONRoundTrip(t *testing.T) {
	type row struct {
		Province optional.Value[string] `json:"province"`
		Points   optional.Value[float64] `json:"points"`
	}

	in := row{Province: optional.Of("Hainaut")}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"province":"Hainaut","points":null}`, string(data))

	var out row
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "Hainaut", out.Province.Or(""))
	assert.False(t, out.Points.Present())
}
