package hierarchy

import (
	"errors"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
)

// ErrInvalidDuration is returned for a semester duration below one.
var ErrInvalidDuration = errors.New("semester duration must be at least 1")

// ResizePlan lists the semesters to drop and to append so that a course
// ends up with exactly the requested number of semesters.
type ResizePlan struct {
	Remove []models.Semester
	Add    []models.Semester
}

// Empty reports whether the plan changes nothing.
func (p ResizePlan) Empty() bool {
	return len(p.Remove) == 0 && len(p.Add) == 0
}

// RemoveIDs returns the ids of the semesters to drop.
func (p ResizePlan) RemoveIDs() []string {
	ids := make([]string, 0, len(p.Remove))
	for _, s := range p.Remove {
		ids = append(ids, s.ID)
	}
	return ids
}

// PlanResize compares the live semesters of a course with newDuration.
// Semesters at sorted index >= newDuration are removed; missing ones are
// appended with ordinals continuing from the current maximum.
func PlanResize(courseID string, semesters []models.Semester, newDuration int) (ResizePlan, error) {
	if newDuration < 1 {
		return ResizePlan{}, ErrInvalidDuration
	}
	sorted := SortSemesters(semesters)

	var plan ResizePlan
	if len(sorted) > newDuration {
		plan.Remove = append(plan.Remove, sorted[newDuration:]...)
		return plan, nil
	}

	maxOrdinal := 0
	for _, s := range sorted {
		if o := Ordinal(s); o > maxOrdinal {
			maxOrdinal = o
		}
	}
	for i := 1; i <= newDuration-len(sorted); i++ {
		n := maxOrdinal + i
		plan.Add = append(plan.Add, models.Semester{CourseID: courseID, Name: SemesterName(n), Ordinal: n})
	}
	return plan, nil
}
