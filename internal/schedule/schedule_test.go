package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsynth/internal/model"
)

var now = time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

func TestBack(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"0", now},
		{"", now},
		{"12mo", time.Date(2023, 3, 31, 12, 0, 0, 0, time.UTC)},
		{"30d", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		{"2w", time.Date(2024, 3, 17, 12, 0, 0, 0, time.UTC)},
		{"3h", now.Add(-3 * time.Hour)},
		{"90m", now.Add(-90 * time.Minute)},
		{"45s", now.Add(-45 * time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Back(now, tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestBack_Invalid(t *testing.T) {
	for _, in := range []string{"d", "12y", "-3d", "3 days"} {
		_, err := Back(now, in)
		var ce *model.ConfigurationError
		assert.True(t, errors.As(err, &ce), "input %q", in)
	}
}

func TestSlots_SinglePhase(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	slots, err := Slots([]Phase{{Start: start, End: start.Add(5 * time.Minute), Step: time.Minute, Resolution: model.Res1m}})
	require.NoError(t, err)
	require.Len(t, slots, 5)
	for i, s := range slots {
		assert.Equal(t, start.Add(time.Duration(i)*time.Minute), s.TS)
		assert.Equal(t, model.Res1m, s.Resolution)
	}
}

func TestSlots_PartialLastStep(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	slots, err := Slots([]Phase{{Start: start, End: start.Add(150 * time.Second), Step: time.Minute, Resolution: model.Res1m}})
	require.NoError(t, err)
	assert.Len(t, slots, 3)
}

func TestSlots_EmptyPhase(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	slots, err := Slots([]Phase{
		{Start: start, End: start, Step: time.Hour, Resolution: model.Res1h},
		{Start: start.Add(time.Hour), End: start, Step: time.Hour, Resolution: model.Res1h},
	})
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestSlots_InvalidStep(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, step := range []time.Duration{0, -time.Minute} {
		_, err := Slots([]Phase{{Start: start, End: start.Add(time.Hour), Step: step, Resolution: model.Res1m}})
		var ce *model.ConfigurationError
		assert.True(t, errors.As(err, &ce))
	}
}

func TestSlots_Overlap(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := Slots([]Phase{
		{Start: start, End: start.Add(3 * time.Hour), Step: time.Hour, Resolution: model.Res1h},
		{Start: start.Add(2 * time.Hour), End: start.Add(4 * time.Hour), Step: time.Minute, Resolution: model.Res1m},
	})
	var ce *model.ConfigurationError
	require.True(t, errors.As(err, &ce))
}

func TestBuild_DefaultPlan(t *testing.T) {
	slots, err := Build(now, DefaultPhases())
	require.NoError(t, err)

	var coarse, medium, fine int
	for i, s := range slots {
		if i > 0 {
			require.False(t, s.TS.Before(slots[i-1].TS), "slot %d goes back in time", i)
		}
		switch s.Resolution {
		case model.Res3h:
			coarse++
		case model.Res1h:
			medium++
		case model.Res1m:
			fine++
		}
	}
	assert.Equal(t, 28*24, medium)
	assert.Equal(t, 2*24*60, fine)
	assert.Greater(t, coarse, 2000)
	assert.Equal(t, model.Res3h, slots[0].Resolution)
	assert.Equal(t, time.Date(2023, 3, 31, 12, 0, 0, 0, time.UTC), slots[0].TS)
	assert.True(t, slots[len(slots)-1].TS.Before(now))
}

func TestBuild_Deterministic(t *testing.T) {
	a, err := Build(now, DefaultPhases())
	require.NoError(t, err)
	b, err := Build(now, DefaultPhases())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestResolve_CustomStepAndBadResolution(t *testing.T) {
	phases, err := Resolve(now, []PhaseConfig{{From: "1h", To: "0", Resolution: model.Res1m, Step: "5m"}})
	require.NoError(t, err)
	require.Len(t, phases, 1)
	assert.Equal(t, 5*time.Minute, phases[0].Step)

	_, err = Resolve(now, []PhaseConfig{{From: "1h", To: "0", Resolution: "5m"}})
	var ce *model.ConfigurationError
	assert.True(t, errors.As(err, &ce))
}
