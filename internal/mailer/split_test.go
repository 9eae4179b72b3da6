package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mailflare/internal/models"
)

func TestComputeSplit(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		ratio     int64
		abType    models.ABType
		testCount int
		aCount    int
		bCount    int
	}{
		{"even split", 10, 50, models.ABTypeSubject, 5, 2, 3},
		{"full ratio", 7, 100, models.ABTypeContent, 7, 3, 4},
		{"rounding up", 10, 25, models.ABTypeSender, 3, 1, 2},
		{"zero ratio", 10, 0, models.ABTypeSubject, 0, 0, 0},
		{"ratio clamped low", 10, -5, models.ABTypeSubject, 0, 0, 0},
		{"ratio clamped high", 10, 150, models.ABTypeSubject, 10, 5, 5},
		{"empty population", 0, 50, models.ABTypeSubject, 0, 0, 0},
		{"timing ignores ratio", 10, 30, models.ABTypeTiming, 10, 5, 5},
		{"timing odd population", 7, 50, models.ABTypeTiming, 7, 3, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ComputeSplit(tt.total, tt.ratio, tt.abType)
			assert.Equal(t, tt.testCount, s.TestCount)
			assert.Equal(t, tt.aCount, s.ACount)
			assert.Equal(t, tt.bCount, s.BCount)
			assert.Equal(t, s.TestCount, s.ACount+s.BCount)
		})
	}
}

func TestSplitVariantAt(t *testing.T) {
	s := ComputeSplit(10, 50, models.ABTypeSubject)

	var aSeen, bSeen, held int
	for i := 0; i < 10; i++ {
		variant, inTest := s.VariantAt(i)
		switch {
		case !inTest:
			held++
		case variant == models.VariantA:
			aSeen++
		case variant == models.VariantB:
			bSeen++
		}
	}

	assert.Equal(t, 2, aSeen)
	assert.Equal(t, 3, bSeen)
	assert.Equal(t, 5, held)

	// A indexes strictly precede B indexes
	variant, inTest := s.VariantAt(0)
	assert.True(t, inTest)
	assert.Equal(t, models.VariantA, variant)
	variant, inTest = s.VariantAt(s.ACount)
	assert.True(t, inTest)
	assert.Equal(t, models.VariantB, variant)
	_, inTest = s.VariantAt(s.TestCount)
	assert.False(t, inTest)
}

func TestSplitTimingCoversEveryone(t *testing.T) {
	s := ComputeSplit(9, 0, models.ABTypeTiming)
	for i := 0; i < 9; i++ {
		_, inTest := s.VariantAt(i)
		assert.True(t, inTest)
	}
	assert.Equal(t, 4, s.ACount)
	assert.Equal(t, 5, s.BCount)
}
