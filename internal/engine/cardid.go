package engine

import (
	"context"
	"time"

	"school-service/internal/apperr"
	"school-service/internal/store"
	"school-service/prometheus"
)

const cardIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// cardIDAttempts bounds the collision retry loop. 36^2 = 1296 suffixes exist
// per birth date per school, so exhausting 10 attempts is vanishingly rare
// but still reported as a typed failure rather than assumed away.
const cardIDAttempts = 10

// allocateCardID builds a card identifier from the student's birth date
// (YYYYMMDD prefix) plus two random base-36 characters, probing the school's
// students for uniqueness. It returns an allocation error after
// cardIDAttempts collisions; the enclosing create aborts and persists
// nothing.
func (e *Engine) allocateCardID(ctx context.Context, st store.Store, schoolID uint, dateOfBirth time.Time) (string, error) {
	prefix := dateOfBirth.Format("20060102")
	for attempt := 0; attempt < cardIDAttempts; attempt++ {
		id := prefix + e.randomSuffix()
		exists, err := st.Students().CardIDExists(ctx, schoolID, id)
		if err != nil {
			return "", apperr.Integrity("failed to probe card id uniqueness", err)
		}
		if !exists {
			prometheus.RecordCardIDAllocation("allocated")
			return id, nil
		}
	}
	prometheus.RecordCardIDAllocation("exhausted")
	return "", apperr.Allocation("failed to allocate a unique card id")
}

func (e *Engine) randomSuffix() string {
	return string([]byte{
		cardIDAlphabet[e.intn(len(cardIDAlphabet))],
		cardIDAlphabet[e.intn(len(cardIDAlphabet))],
	})
}
