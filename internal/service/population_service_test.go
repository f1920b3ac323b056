package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deadline-tracker/internal/dates"
	"github.com/deadline-tracker/internal/models"
	"github.com/deadline-tracker/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type populateFixture struct {
	svc       *PopulationService
	colleges  *mockCollegeStore
	years     *mockYearStore
	instances *mockInstanceStore
}

func newPopulateFixture(t *testing.T, college *models.College, records ...*models.DeadlineYearRecord) *populateFixture {
	t.Helper()

	f := &populateFixture{
		colleges:  newMockCollegeStore(college),
		years:     newMockYearStore(records...),
		instances: &mockInstanceStore{},
	}
	f.svc = NewPopulationService(f.colleges, f.years, f.instances, nil)
	f.svc.now = func() time.Time {
		return time.Date(2026, time.September, 1, 9, 0, 0, 0, time.UTC)
	}
	return f
}

func datePtr(year int, month time.Month, day int) *dates.Date {
	d := dates.New(year, month, day)
	return &d
}

func float64Ptr(v float64) *float64 { return &v }

func fullRecord(year int) *models.DeadlineYearRecord {
	return &models.DeadlineYearRecord{
		CollegeID:           "college-1",
		ApplicationYear:     year,
		OffersEarlyDecision: true,
		OffersEarlyAction:   true,
		ED1Date:             datePtr(year, time.November, 1),
		ED2Date:             datePtr(year+1, time.January, 5),
		EADate:              datePtr(year, time.November, 15),
		RDDate:              datePtr(year+1, time.January, 15),
		ConfidenceScore:     float64Ptr(0.9),
		SourceURL:           "https://example.edu/deadlines",
	}
}

func TestPopulate_CurrentYearRecord(t *testing.T) {
	f := newPopulateFixture(t, testCollege(), fullRecord(2026))

	result, err := f.svc.Populate(context.Background(), "app-1", "college-1")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.False(t, result.UsedHistoricalData)
	assert.Equal(t, "Added 4 deadlines for Example University.", result.Message)

	all := f.instances.all()
	require.Len(t, all, 4)
	byType := make(map[types.DeadlineType]*models.DeadlineInstance)
	for _, inst := range all {
		byType[inst.Type] = inst
		assert.Equal(t, "app-1", inst.ApplicationID)
		assert.Equal(t, types.StatusNotStarted, inst.Status)
		require.NotNil(t, inst.SourceURL)
		assert.Equal(t, "https://example.edu/deadlines", *inst.SourceURL)
	}
	assert.Equal(t, "2026-11-01", byType[types.DeadlineED1].Date.String())
	assert.Equal(t, "2027-01-05", byType[types.DeadlineED2].Date.String())
	assert.Equal(t, "2026-11-15", byType[types.DeadlineEA].Date.String())
	assert.Equal(t, "2027-01-15", byType[types.DeadlineRD].Date.String())
	assert.Equal(t, "Early Decision I deadline", byType[types.DeadlineED1].Description)
}

func TestPopulate_ConfidenceGateFallsBackToPriorYear(t *testing.T) {
	current := fullRecord(2026)
	current.ConfidenceScore = float64Ptr(0.5)
	previous := fullRecord(2025)

	f := newPopulateFixture(t, testCollege(), current, previous)

	result, err := f.svc.Populate(context.Background(), "app-1", "college-1")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.UsedHistoricalData)
	assert.Contains(t, result.Message, "using last year's dates")
	assert.Contains(t, result.Message, "they will update automatically once published")

	// The prior year's dates are what got inserted.
	all := f.instances.all()
	require.Len(t, all, 4)
	for _, inst := range all {
		if inst.Type == types.DeadlineED1 {
			assert.Equal(t, "2025-11-01", inst.Date.String())
		}
	}
}

func TestPopulate_ConfidenceAtFloorUsesCurrent(t *testing.T) {
	current := fullRecord(2026)
	current.ConfidenceScore = float64Ptr(0.7)

	f := newPopulateFixture(t, testCollege(), current, fullRecord(2025))

	result, err := f.svc.Populate(context.Background(), "app-1", "college-1")
	require.NoError(t, err)
	assert.False(t, result.UsedHistoricalData)
}

func TestPopulate_NilConfidenceUsesCurrent(t *testing.T) {
	current := fullRecord(2026)
	current.ConfidenceScore = nil

	f := newPopulateFixture(t, testCollege(), current)

	result, err := f.svc.Populate(context.Background(), "app-1", "college-1")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.UsedHistoricalData)
}

func TestPopulate_LowConfidenceWithoutPriorYearIsNoData(t *testing.T) {
	current := fullRecord(2026)
	current.ConfidenceScore = float64Ptr(0.3)

	f := newPopulateFixture(t, testCollege(), current)

	result, err := f.svc.Populate(context.Background(), "app-1", "college-1")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, "No deadline data available for Example University yet.", result.Message)
	assert.Empty(t, f.instances.all())
}

func TestPopulate_NoRecordsAtAll(t *testing.T) {
	f := newPopulateFixture(t, testCollege())

	result, err := f.svc.Populate(context.Background(), "app-1", "college-1")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, "No deadline data available for Example University yet.", result.Message)
}

func TestPopulate_OfferedTypeFiltering(t *testing.T) {
	// Dates present but the plans not confirmed offered: only RD survives.
	rec := fullRecord(2026)
	rec.OffersEarlyDecision = false
	rec.OffersEarlyAction = false

	f := newPopulateFixture(t, testCollege(), rec)

	result, err := f.svc.Populate(context.Background(), "app-1", "college-1")
	require.NoError(t, err)
	assert.True(t, result.Success)

	all := f.instances.all()
	require.Len(t, all, 1)
	assert.Equal(t, types.DeadlineRD, all[0].Type)
}

func TestPopulate_OfferedFlagWithoutDateYieldsNothing(t *testing.T) {
	rec := &models.DeadlineYearRecord{
		CollegeID:           "college-1",
		ApplicationYear:     2026,
		OffersEarlyDecision: true,
		ConfidenceScore:     float64Ptr(0.9),
	}

	f := newPopulateFixture(t, testCollege(), rec)

	result, err := f.svc.Populate(context.Background(), "app-1", "college-1")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, "No applicable deadlines found for Example University.", result.Message)
	assert.Empty(t, f.instances.all())
}

func TestPopulate_RollingFallbackChain(t *testing.T) {
	base := func() *models.DeadlineYearRecord {
		return &models.DeadlineYearRecord{
			CollegeID:              "college-1",
			ApplicationYear:        2026,
			OffersRollingAdmission: true,
			ConfidenceScore:        float64Ptr(0.9),
		}
	}

	tests := []struct {
		name         string
		mutate       func(*models.DeadlineYearRecord)
		wantDate     string
		wantDesc     string
		wantTotal    int
	}{
		{
			name: "priority deadline wins",
			mutate: func(r *models.DeadlineYearRecord) {
				r.PriorityDeadline = datePtr(2026, time.December, 1)
				r.RDDate = datePtr(2027, time.January, 15)
			},
			wantDate:  "2026-12-01",
			wantDesc:  "Priority deadline for rolling admission",
			wantTotal: 2, // RD instance plus the rolling one
		},
		{
			name: "regular decision date second",
			mutate: func(r *models.DeadlineYearRecord) {
				r.RDDate = datePtr(2027, time.January, 15)
			},
			wantDate:  "2027-01-15",
			wantDesc:  "Rolling admission",
			wantTotal: 2,
		},
		{
			name:      "june first default",
			mutate:    func(r *models.DeadlineYearRecord) {},
			wantDate:  "2027-06-01",
			wantDesc:  "Rolling admission",
			wantTotal: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := base()
			tt.mutate(rec)
			f := newPopulateFixture(t, testCollege(), rec)

			result, err := f.svc.Populate(context.Background(), "app-1", "college-1")
			require.NoError(t, err)
			assert.True(t, result.Success)

			all := f.instances.all()
			require.Len(t, all, tt.wantTotal)
			var rolling *models.DeadlineInstance
			for _, inst := range all {
				if inst.Type == types.DeadlineRolling {
					rolling = inst
				}
			}
			require.NotNil(t, rolling)
			assert.Equal(t, tt.wantDate, rolling.Date.String())
			assert.Equal(t, tt.wantDesc, rolling.Description)
		})
	}
}

func TestPopulate_BatchInsertFailureIsAtomic(t *testing.T) {
	f := newPopulateFixture(t, testCollege(), fullRecord(2026))
	f.instances.failNext = errors.New("connection reset")

	_, err := f.svc.Populate(context.Background(), "app-1", "college-1")
	require.Error(t, err)
	assert.Empty(t, f.instances.all(), "a failed batch must insert nothing")
}

func TestPopulate_UnknownCollege(t *testing.T) {
	f := newPopulateFixture(t, testCollege())

	_, err := f.svc.Populate(context.Background(), "app-1", "college-missing")
	require.Error(t, err)
}

func TestHasDeadlineData(t *testing.T) {
	t.Run("current year", func(t *testing.T) {
		f := newPopulateFixture(t, testCollege(), fullRecord(2026))
		ok, err := f.svc.HasDeadlineData(context.Background(), "college-1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("prior year only", func(t *testing.T) {
		f := newPopulateFixture(t, testCollege(), fullRecord(2025))
		ok, err := f.svc.HasDeadlineData(context.Background(), "college-1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("none", func(t *testing.T) {
		f := newPopulateFixture(t, testCollege())
		ok, err := f.svc.HasDeadlineData(context.Background(), "college-1")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
