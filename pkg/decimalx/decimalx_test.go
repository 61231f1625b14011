package decimalx

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser(t *testing.T) {
	testCases := []struct {
		name    string
		inputs  []string
		want    []string
		wantErr bool
	}{
		{
			name:   "all valid",
			inputs: []string{"1.5", "0.00000001", "42"},
			want:   []string{"1.5", "0.00000001", "42"},
		},
		{
			name:    "first failure sticks",
			inputs:  []string{"1", "abc", "3"},
			want:    []string{"1", "0", "0"},
			wantErr: true,
		},
		{
			name:    "empty string",
			inputs:  []string{""},
			want:    []string{"0"},
			wantErr: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var p Parser
			for i, in := range tc.inputs {
				got := p.Parse("field", in)
				assert.True(t, MustFromString(tc.want[i]).Equal(got), "input %q got %s", in, got)
			}
			if tc.wantErr {
				require.Error(t, p.Err())
				assert.Contains(t, p.Err().Error(), "field")
			} else {
				assert.NoError(t, p.Err())
			}
		})
	}
}

func TestFloatAndPositive(t *testing.T) {
	assert.Equal(t, 101.25, Float(MustFromString("101.25")))
	assert.True(t, Positive(decimal.NewFromInt(1), MustFromString("0.1")))
	assert.False(t, Positive(decimal.NewFromInt(1), decimal.Zero))
	assert.True(t, Positive())
}
