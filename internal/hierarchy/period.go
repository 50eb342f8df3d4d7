package hierarchy

import (
	"strings"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
)

var knownPeriods = map[string]struct{}{
	models.PeriodMorning:   {},
	models.PeriodAfternoon: {},
	models.PeriodEvening:   {},
}

// NormalizePeriods upper-cases, de-duplicates and validates period names.
// The second return value lists unknown entries.
func NormalizePeriods(periods []string) ([]string, []string) {
	seen := make(map[string]struct{}, len(periods))
	var out, unknown []string
	for _, p := range periods {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := knownPeriods[p]; !ok {
			unknown = append(unknown, p)
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, unknown
}

// PeriodsIntersect reports whether the two period sets share an entry.
// A discipline is schedulable for a class only when its day periods
// intersect the periods of the class's course.
func PeriodsIntersect(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, p := range a {
		set[strings.ToUpper(p)] = struct{}{}
	}
	for _, p := range b {
		if _, ok := set[strings.ToUpper(p)]; ok {
			return true
		}
	}
	return false
}
