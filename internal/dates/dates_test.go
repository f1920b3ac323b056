package dates

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"iso", "2026-11-01", "2026-11-01", true},
		{"iso slashes", "2026/11/01", "2026-11-01", true},
		{"us slashes", "11/01/2026", "2026-11-01", true},
		{"us slashes short", "1/5/2027", "2027-01-05", true},
		{"us dashes", "11-01-2026", "2026-11-01", true},
		{"long month", "November 1, 2026", "2026-11-01", true},
		{"long month no comma", "November 1 2026", "2026-11-01", true},
		{"short month", "Jan 15, 2027", "2027-01-15", true},
		{"day first", "15 January 2027", "2027-01-15", true},
		{"ordinal suffix", "November 1st, 2026", "2026-11-01", true},
		{"ordinal mid-month", "January 22nd, 2027", "2027-01-22", true},
		{"ordinal third", "March 3rd, 2027", "2027-03-03", true},
		{"all caps", "NOVEMBER 1, 2026", "2026-11-01", true},
		{"all lower", "november 1, 2026", "2026-11-01", true},
		{"extra whitespace", "  November   1,  2026  ", "2026-11-01", true},
		{"two digit year", "Jan 15, 27", "2027-01-15", true},
		{"two digit slashes", "1/15/27", "2027-01-15", true},
		{"empty", "", "", false},
		{"whitespace only", "   ", "", false},
		{"prose", "see website for details", "", false},
		{"month only", "November 2026", "", false},
		{"invalid month", "2026-13-01", "", false},
		{"invalid day", "February 30, 2026", "", false},
		{"tba", "TBA", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.String())
			} else {
				assert.True(t, got.IsZero())
			}
		})
	}
}

func TestDateComparisons(t *testing.T) {
	a := New(2026, time.November, 1)
	b := New(2026, time.November, 15)

	assert.True(t, a.Equal(New(2026, time.November, 1)))
	assert.False(t, a.Equal(b))
	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.False(t, a.Before(a))
}

func TestDateJSON(t *testing.T) {
	d := New(2027, time.January, 5)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2027-01-05"`, string(data))

	var decoded Date
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, d.Equal(decoded))

	var null Date
	require.NoError(t, json.Unmarshal([]byte(`""`), &null))
	assert.True(t, null.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`"next fall"`), &decoded))
}

func TestDateScan(t *testing.T) {
	var d Date

	require.NoError(t, d.Scan(time.Date(2026, time.November, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026-11-01", d.String())

	require.NoError(t, d.Scan("2027-01-15"))
	assert.Equal(t, "2027-01-15", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))
}

func genDate() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(1900, 2200),
		gen.IntRange(1, 12),
		gen.IntRange(1, 28),
	).Map(func(vals []interface{}) Date {
		return New(vals[0].(int), time.Month(vals[1].(int)), vals[2].(int))
	})
}

func TestNormalizeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("canonical form round-trips", prop.ForAll(
		func(d Date) bool {
			got, ok := Normalize(d.String())
			return ok && got.Equal(d)
		},
		genDate(),
	))

	properties.Property("normalization is deterministic", prop.ForAll(
		func(d Date) bool {
			raw := d.Time().Format("January 2, 2006")
			first, ok1 := Normalize(raw)
			second, ok2 := Normalize(raw)
			return ok1 == ok2 && first.Equal(second)
		},
		genDate(),
	))

	properties.Property("long month form parses to the same date", prop.ForAll(
		func(d Date) bool {
			got, ok := Normalize(d.Time().Format("January 2, 2006"))
			return ok && got.Equal(d)
		},
		genDate(),
	))

	properties.Property("JSON round-trip preserves the date", prop.ForAll(
		func(d Date) bool {
			data, err := json.Marshal(d)
			if err != nil {
				return false
			}
			var decoded Date
			if err := json.Unmarshal(data, &decoded); err != nil {
				return false
			}
			return decoded.Equal(d)
		},
		genDate(),
	))

	properties.TestingRun(t)
}
