package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
)

func TestOrdinalFromName(t *testing.T) {
	cases := map[string]int{
		"1º Semestre":   1,
		"Período 12":    12,
		"Semestre 3 B2": 3,
		"Extra":         0,
		"":              0,
	}
	for name, want := range cases {
		assert.Equal(t, want, OrdinalFromName(name), name)
	}
}

func TestSortSemestersUsesOrdinalNotInsertionOrder(t *testing.T) {
	in := []models.Semester{
		{ID: "s10", Name: "10º Semestre"},
		{ID: "s2", Name: "2º Semestre"},
		{ID: "s1", Ordinal: 1, Name: "Primeiro"},
	}
	sorted := SortSemesters(in)
	require.Len(t, sorted, 3)
	assert.Equal(t, []string{"s1", "s2", "s10"}, []string{sorted[0].ID, sorted[1].ID, sorted[2].ID})
	assert.Equal(t, "s10", in[0].ID, "input must not be reordered")
}

func TestPlanResizeShrinkRemovesTrailingSemesters(t *testing.T) {
	semesters := []models.Semester{
		{ID: "b", Name: "2º Semestre"},
		{ID: "a", Name: "1º Semestre"},
	}
	plan, err := PlanResize("c1", semesters, 1)
	require.NoError(t, err)
	assert.Empty(t, plan.Add)
	assert.Equal(t, []string{"b"}, plan.RemoveIDs())
}

func TestPlanResizeGrowContinuesOrdinals(t *testing.T) {
	semesters := []models.Semester{
		{ID: "a", Ordinal: 1, Name: SemesterName(1)},
		{ID: "b", Ordinal: 2, Name: SemesterName(2)},
	}
	plan, err := PlanResize("c1", semesters, 4)
	require.NoError(t, err)
	assert.Empty(t, plan.Remove)
	require.Len(t, plan.Add, 2)
	assert.Equal(t, 3, plan.Add[0].Ordinal)
	assert.Equal(t, "Período 4", plan.Add[1].Name)
	assert.Equal(t, "c1", plan.Add[1].CourseID)
}

func TestPlanResizeLiveCountAlwaysMatchesDuration(t *testing.T) {
	for start := 0; start <= 6; start++ {
		for target := 1; target <= 6; target++ {
			semesters := InitialSemesters("c", start)
			plan, err := PlanResize("c", semesters, target)
			require.NoError(t, err)
			assert.Equal(t, target, len(semesters)-len(plan.Remove)+len(plan.Add), "start=%d target=%d", start, target)
		}
	}
}

func TestPlanResizeNoop(t *testing.T) {
	plan, err := PlanResize("c", InitialSemesters("c", 3), 3)
	require.NoError(t, err)
	assert.True(t, plan.Empty())
}

func TestPlanResizeRejectsZero(t *testing.T) {
	_, err := PlanResize("c", nil, 0)
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestNormalizePeriods(t *testing.T) {
	out, unknown := NormalizePeriods([]string{"morning", "EVENING", "Morning", "night", " "})
	assert.Equal(t, []string{models.PeriodMorning, models.PeriodEvening}, out)
	assert.Equal(t, []string{"NIGHT"}, unknown)
}

func TestPeriodsIntersect(t *testing.T) {
	assert.True(t, PeriodsIntersect([]string{"MORNING", "EVENING"}, []string{"evening"}))
	assert.False(t, PeriodsIntersect([]string{"MORNING"}, []string{"AFTERNOON", "EVENING"}))
	assert.False(t, PeriodsIntersect(nil, []string{"MORNING"}))
}
