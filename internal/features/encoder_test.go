package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelEncoder(t *testing.T) {
	enc := FitLabels([]string{"wave", "fist", "palm", "fist", "wave"})

	assert.Equal(t, 3, enc.Len())
	assert.Equal(t, []string{"fist", "palm", "wave"}, enc.Classes())

	t.Run("bijection", func(t *testing.T) {
		for i, label := range enc.Classes() {
			id, err := enc.Encode(label)
			require.NoError(t, err)
			assert.Equal(t, i, id)

			back, err := enc.Decode(id)
			require.NoError(t, err)
			assert.Equal(t, label, back)
		}
	})

	t.Run("unknown label", func(t *testing.T) {
		_, err := enc.Encode("thumbs_up")
		assert.ErrorIs(t, err, ErrUnknownLabel)
	})

	t.Run("id out of range", func(t *testing.T) {
		_, err := enc.Decode(3)
		assert.Error(t, err)
		_, err = enc.Decode(-1)
		assert.Error(t, err)
	})

	t.Run("restored from label list", func(t *testing.T) {
		restored := NewLabelEncoder(enc.Classes())
		ids, err := restored.EncodeAll([]string{"palm", "wave"})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, ids)
	})
}
