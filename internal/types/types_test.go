package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeadlineType(t *testing.T) {
	known := map[string]DeadlineType{
		"ed1":               DeadlineED1,
		"ed2":               DeadlineED2,
		"ea":                DeadlineEA,
		"rea":               DeadlineREA,
		"rd":                DeadlineRD,
		"rolling_admission": DeadlineRolling,
	}
	for code, want := range known {
		got, err := ParseDeadlineType(code)
		require.NoError(t, err, code)
		assert.Equal(t, want, got)
	}

	for _, code := range []string{"", "ED1", "early_decision", "priority", "rolling"} {
		_, err := ParseDeadlineType(code)
		assert.Error(t, err, code)
	}
}

func TestDeadlineTypeLabel(t *testing.T) {
	assert.Equal(t, "Early Decision I", DeadlineED1.Label())
	assert.Equal(t, "Early Decision II", DeadlineED2.Label())
	assert.Equal(t, "Early Action", DeadlineEA.Label())
	assert.Equal(t, "Restrictive Early Action", DeadlineREA.Label())
	assert.Equal(t, "Regular Decision", DeadlineRD.Label())
	assert.Equal(t, "Rolling Admission", DeadlineRolling.Label())
}

func TestScrapedDeadlineTypesExcludesRolling(t *testing.T) {
	assert.Len(t, ScrapedDeadlineTypes, 5)
	assert.NotContains(t, ScrapedDeadlineTypes, DeadlineRolling)
}
