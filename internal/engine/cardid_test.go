package engine

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"school-service/internal/apperr"
	"school-service/internal/store"
	"school-service/prometheus"
)

func allocationCount(outcome string) float64 {
	return testutil.ToFloat64(prometheus.CardIDAllocationCounter.WithLabelValues(outcome))
}

func TestAllocateCardID_Format(t *testing.T) {
	st := store.NewMemory()
	e := New(st, nil)

	before := allocationCount("allocated")
	dob := time.Date(2010, 5, 15, 0, 0, 0, 0, time.UTC)
	id, err := e.allocateCardID(context.Background(), st, 1, dob)
	if err != nil {
		t.Fatalf("allocateCardID() error = %v", err)
	}

	pattern := regexp.MustCompile(`^20100515[0-9A-Z]{2}$`)
	if !pattern.MatchString(id) {
		t.Errorf("card id = %q, want match for %s", id, pattern)
	}
	if got := allocationCount("allocated"); got != before+1 {
		t.Errorf("allocated counter = %v, want %v", got, before+1)
	}
}

func TestAllocateCardID_RetriesPastCollision(t *testing.T) {
	st := store.NewMemory()
	e := New(st, nil)

	// Force the first draw to collide with a seeded student, the second to
	// land on a free suffix.
	draws := []int{0, 0, 1, 1} // "00" then "11"
	e.intn = func(n int) int {
		d := draws[0]
		draws = draws[1:]
		return d
	}

	dob := time.Date(2012, 1, 2, 0, 0, 0, 0, time.UTC)
	seedStudent(t, st, 1, "2012010200")

	id, err := e.allocateCardID(context.Background(), st, 1, dob)
	if err != nil {
		t.Fatalf("allocateCardID() error = %v", err)
	}
	if id != "2012010211" {
		t.Errorf("card id = %q, want %q", id, "2012010211")
	}
}

func TestAllocateCardID_Exhaustion(t *testing.T) {
	st := store.NewMemory()
	e := New(st, nil)

	// Every draw collides: the allocator must give up after its bounded retries
	// with a typed allocation failure, not loop forever.
	e.intn = func(n int) int { return 0 }

	dob := time.Date(2012, 1, 2, 0, 0, 0, 0, time.UTC)
	seedStudent(t, st, 1, "2012010200")

	before := allocationCount("exhausted")
	_, err := e.allocateCardID(context.Background(), st, 1, dob)
	if err == nil {
		t.Fatal("allocateCardID() expected error, got nil")
	}
	if apperr.KindOf(err) != apperr.KindAllocation {
		t.Errorf("error kind = %v, want KindAllocation", apperr.KindOf(err))
	}
	if got := allocationCount("exhausted"); got != before+1 {
		t.Errorf("exhausted counter = %v, want %v", got, before+1)
	}
}

func TestAllocateCardID_UniquePerSchoolOnly(t *testing.T) {
	st := store.NewMemory()
	e := New(st, nil)
	e.intn = func(n int) int { return 0 }

	// The same card id in another school does not count as a collision.
	dob := time.Date(2012, 1, 2, 0, 0, 0, 0, time.UTC)
	seedStudent(t, st, 2, "2012010200")

	id, err := e.allocateCardID(context.Background(), st, 1, dob)
	if err != nil {
		t.Fatalf("allocateCardID() error = %v", err)
	}
	if id != "2012010200" {
		t.Errorf("card id = %q, want %q", id, "2012010200")
	}
}
