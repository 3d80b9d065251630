package helpers_test

import (
	"encoding/json"
	"testing"

	"github.com/spooky-finn/go-broker-bridge/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalFromJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"Number", `100.5`, "100.5"},
		{"QuotedString", `"100.5"`, "100.5"},
		{"Negative", `-2`, "-2"},
		{"HighPrecision", `"0.000000011"`, "0.000000011"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := helpers.DecimalFromJSON(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}

	_, err := helpers.DecimalFromJSON(json.RawMessage(`[1]`))
	assert.Error(t, err)
}

func TestStringFromJSON(t *testing.T) {
	s, err := helpers.StringFromJSON(json.RawMessage(`"abc"`))
	require.NoError(t, err)
	assert.Equal(t, "abc", s)

	s, err = helpers.StringFromJSON(json.RawMessage(`736`))
	require.NoError(t, err)
	assert.Equal(t, "736", s)
}

func TestTimeFromUnixSeconds(t *testing.T) {
	ts := helpers.TimeFromUnixSeconds(1714000000.5)
	assert.Equal(t, int64(1714000000), ts.Unix())
	assert.Equal(t, 500000000, ts.Nanosecond())
}
