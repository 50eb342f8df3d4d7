package service

import (
	"context"
	"time"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	appErrors "github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/errors"
)

type conflictStore interface {
	HasConflict(ctx context.Context, candidate models.ConflictCandidate) (bool, error)
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share an
// instant. Touching intervals and empty intervals never overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if !aStart.Before(aEnd) || !bStart.Before(bEnd) {
		return false
	}
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// ConflictGuard answers whether a proposed booking collides with a stored one.
type ConflictGuard struct {
	store conflictStore
}

// NewConflictGuard constructs a ConflictGuard.
func NewConflictGuard(store conflictStore) *ConflictGuard {
	return &ConflictGuard{store: store}
}

// Check returns true when another scheduling with the same date, class and
// discipline (other than ExcludeID) overlaps the candidate. Candidates
// without a class or discipline have no slot and never conflict.
func (g *ConflictGuard) Check(ctx context.Context, candidate models.ConflictCandidate) (bool, error) {
	if candidate.ClassID == "" || candidate.DisciplineID == "" {
		return false, nil
	}
	if !candidate.StartTime.Before(candidate.EndTime) {
		return false, nil
	}
	conflict, err := g.store.HasConflict(ctx, candidate)
	if err != nil {
		return false, appErrors.Internal(err, "failed to check scheduling conflict")
	}
	return conflict, nil
}
