package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	t.Run("string form", func(t *testing.T) {
		var d Duration
		require.NoError(t, json.Unmarshal([]byte(`"1h30m"`), &d))
		assert.Equal(t, 90*time.Minute, d.Duration)
	})

	t.Run("integer nanoseconds", func(t *testing.T) {
		var d Duration
		require.NoError(t, json.Unmarshal([]byte(`1000000000`), &d))
		assert.Equal(t, time.Second, d.Duration)
	})

	t.Run("bad string", func(t *testing.T) {
		var d Duration
		assert.Error(t, json.Unmarshal([]byte(`"not-a-duration"`), &d))
	})

	t.Run("wrong type", func(t *testing.T) {
		var d Duration
		assert.Error(t, json.Unmarshal([]byte(`true`), &d))
	})
}

func TestDuration_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Duration{Duration: 90 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(b))
}
