// Package hierarchy holds the pure rules behind the course → semester →
// discipline/class tree: semester ordering, resize planning and the
// day-period compatibility check.
package hierarchy

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
)

var digitsPattern = regexp.MustCompile(`\d+`)

// SemesterName renders the display name of the n-th semester.
func SemesterName(n int) string {
	return fmt.Sprintf("Período %d", n)
}

// OrdinalFromName extracts the first run of digits from a semester name.
// Names without digits yield 0.
func OrdinalFromName(name string) int {
	match := digitsPattern.FindString(name)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return n
}

// Ordinal returns the stored ordinal, falling back to the name for rows
// created before the column existed.
func Ordinal(s models.Semester) int {
	if s.Ordinal > 0 {
		return s.Ordinal
	}
	return OrdinalFromName(s.Name)
}

// SortSemesters returns a copy ordered by ordinal, ties broken by name.
func SortSemesters(semesters []models.Semester) []models.Semester {
	sorted := make([]models.Semester, len(semesters))
	copy(sorted, semesters)
	sort.SliceStable(sorted, func(i, j int) bool {
		oi, oj := Ordinal(sorted[i]), Ordinal(sorted[j])
		if oi != oj {
			return oi < oj
		}
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}

// InitialSemesters builds the semesters of a freshly created course.
func InitialSemesters(courseID string, duration int) []models.Semester {
	out := make([]models.Semester, 0, duration)
	for n := 1; n <= duration; n++ {
		out = append(out, models.Semester{CourseID: courseID, Name: SemesterName(n), Ordinal: n})
	}
	return out
}
