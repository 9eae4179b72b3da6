package mailer

import (
	"math"

	"mailflare/internal/models"
)

// Split is the single source of truth for A/B test arithmetic. Every phase
// (initial test, timing batches, campaign-status decisions) derives its
// counts from here so the assignment can never drift between phases.
type Split struct {
	Total     int
	TestCount int
	ACount    int
	BCount    int
}

// ComputeSplit clamps the ratio to 0..100 and rounds the test slice. Timing
// tests ignore the ratio: the whole population is addressed, divided at the
// midpoint.
func ComputeSplit(total int, ratio int64, abType models.ABType) Split {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 100 {
		ratio = 100
	}

	testCount := int(math.Round(float64(total) * float64(ratio) / 100.0))
	if abType.CoversFullPopulation() {
		testCount = total
	}

	aCount := testCount / 2
	return Split{
		Total:     total,
		TestCount: testCount,
		ACount:    aCount,
		BCount:    testCount - aCount,
	}
}

// VariantAt maps a recipient's list index to its variant. The second return
// is false for indexes outside the test slice, which are held back until
// the winner phase.
func (s Split) VariantAt(index int) (models.Variant, bool) {
	if index >= s.TestCount {
		return "", false
	}
	if index < s.ACount {
		return models.VariantA, true
	}
	return models.VariantB, true
}
