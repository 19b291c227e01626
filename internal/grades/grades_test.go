package grades

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoints_LetterGrades(t *testing.T) {
	tests := []struct {
		grade string
		want  float64
	}{
		{"A+", 4.0},
		{"A", 4.0},
		{"A-", 3.67},
		{"B+", 3.33},
		{"B", 3.00},
		{"B-", 2.67},
		{"C+", 2.33},
		{"C", 2.00},
		{"C-", 1.67},
		{"D", 1.00},
		{"F", 0.00},
		{"IN", 0.00},
		{"S", 3.00},
		{"NC", 1.00},
		{"W", 1.00},
	}
	for _, tt := range tests {
		got, ok := Points(tt.grade)
		require.True(t, ok, "grade %q should be mapped", tt.grade)
		assert.Equal(t, tt.want, got, "grade %q", tt.grade)
	}
}

func TestPoints_UnknownCodesAreMissing(t *testing.T) {
	for _, grade := range []string{"NR", "AU", "REG", "IX", "IP", "", "Z?"} {
		got, ok := Points(grade)
		assert.False(t, ok, "grade %q should be missing, not mapped", grade)
		assert.Zero(t, got)
	}
}

func TestIsNongrade(t *testing.T) {
	assert.True(t, IsNongrade("W"))
	assert.True(t, IsNongrade("S"))
	assert.True(t, IsNongrade("NC"))
	assert.False(t, IsNongrade("A"))
	assert.False(t, IsNongrade(""))
}
