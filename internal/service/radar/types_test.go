package radar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirection_Text(t *testing.T) {
	for _, d := range []Direction{Bullish, Bearish} {
		b, err := json.Marshal(d)
		require.NoError(t, err)
		var got Direction
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, d, got)
	}

	// the zero value must fail on the way in, not only on the way out
	var zero Direction
	_, err := json.Marshal(zero)
	assert.ErrorIs(t, err, ErrUnknownDirection)
	assert.ErrorIs(t, json.Unmarshal([]byte(`""`), &zero), ErrUnknownDirection)
}

func TestAlert_Validate(t *testing.T) {
	valid := func() Alert {
		return Alert{
			ID:          "a-1",
			Symbol:      "BTCUSDT",
			CreatedAt:   time.UnixMilli(1709294470123).UTC(),
			Verdict:     VerdictAlert,
			Severity:    SeverityMedium,
			Direction:   Bullish,
			ScoreBundle: NeutralBundle(21),
		}
	}

	testCases := []struct {
		name    string
		mutate  func(a *Alert)
		wantErr error
	}{
		{name: "valid", mutate: func(a *Alert) {}},
		{name: "unknown verdict", mutate: func(a *Alert) { a.Verdict = Verdict(5) }, wantErr: ErrUnknownVerdict},
		{name: "unknown severity", mutate: func(a *Alert) { a.Severity = Severity(5) }, wantErr: ErrUnknownSeverity},
		{name: "empty direction", mutate: func(a *Alert) { a.Direction = "" }, wantErr: ErrUnknownDirection},
		{name: "empty bundle direction", mutate: func(a *Alert) { a.ScoreBundle.Direction = "" }, wantErr: ErrUnknownDirection},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := valid()
			tc.mutate(&a)
			err := a.Validate()
			if tc.wantErr == nil {
				require.NoError(t, err)
				b, err := a.Marshal()
				require.NoError(t, err)
				got, err := UnmarshalAlert(b)
				require.NoError(t, err)
				assert.Equal(t, a, got)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
			_, err = a.Marshal()
			assert.Error(t, err)
		})
	}

	a := valid()
	a.ID = ""
	assert.Error(t, a.Validate())
}
