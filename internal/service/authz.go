package service

import "github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"

// CanManageScheduling reports whether actor may edit or delete s: the
// owner, an admin, the secretariat, or a director of the scheduling's course.
func CanManageScheduling(actor models.Actor, s models.Scheduling, directedCourseIDs []string) bool {
	if actor.UserID == "" {
		return false
	}
	if s.UserID == actor.UserID {
		return true
	}
	if seesAllSchedulings(actor) {
		return true
	}
	for _, id := range directedCourseIDs {
		if id == s.CourseID {
			return true
		}
	}
	return false
}

func seesAllSchedulings(actor models.Actor) bool {
	return actor.HasRole(models.RoleAdmin) || actor.HasRole(models.RoleSecretary)
}
