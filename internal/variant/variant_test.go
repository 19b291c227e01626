package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll_CoversConfigurationMatrix(t *testing.T) {
	require.Len(t, All, 6)

	type cell struct {
		bias bool
		time TimeMode
	}
	seen := make(map[cell]string)
	for _, v := range All {
		c := cell{v.UseBias, v.Time}
		assert.Empty(t, seen[c], "variants %s and %s share a configuration", seen[c], v.Name)
		seen[c] = v.Name
	}
}

func TestByName(t *testing.T) {
	v, err := ByName("TimeSVD")
	require.NoError(t, err)
	assert.Equal(t, TimeCategorical, v.Time)
	assert.False(t, v.UseBias)

	_, err = ByName("SVD++")
	require.Error(t, err)
}

func TestTimeSuffix(t *testing.T) {
	svd, err := ByName("SVD")
	require.NoError(t, err)
	assert.Equal(t, "", svd.TimeSuffix())

	bptf, err := ByName("BPTF")
	require.NoError(t, err)
	assert.Equal(t, "time-bin", bptf.TimeSuffix())
}

func TestTimeMode_Valid(t *testing.T) {
	assert.True(t, TimeNone.Valid())
	assert.True(t, TimeCategorical.Valid())
	assert.True(t, TimeBinary.Valid())
	assert.False(t, TimeMode("hourly").Valid())
}
