package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerCounts(t *testing.T) {
	t.Run("single sample has no spread", func(t *testing.T) {
		var c AnswerCounts
		require.NoError(t, c.Add(2))

		assert.Equal(t, 1, c.N())
		assert.Equal(t, 2.0, c.Mean())
		assert.Equal(t, 0.0, c.StdDev())
	})

	t.Run("two samples use the sample variance", func(t *testing.T) {
		var c AnswerCounts
		require.NoError(t, c.Add(2))
		require.NoError(t, c.Add(3))

		assert.Equal(t, 2, c.N())
		assert.Equal(t, 2.5, c.Mean())
		assert.InDelta(t, math.Sqrt(0.5), c.StdDev(), 1e-12)
	})

	t.Run("identical answers have zero spread", func(t *testing.T) {
		c := AnswerCounts{C3: 10}
		assert.Equal(t, 3.0, c.Mean())
		assert.Equal(t, 0.0, c.StdDev())
	})

	t.Run("empty counts", func(t *testing.T) {
		var c AnswerCounts
		assert.Equal(t, Stat{}, c.Stat())
	})

	t.Run("out of range answer is rejected", func(t *testing.T) {
		var c AnswerCounts
		assert.Error(t, c.Add(-1))
		assert.Error(t, c.Add(4))
		assert.Equal(t, 0, c.N())
	})

	t.Run("merge equals sequential adds", func(t *testing.T) {
		var a, b, all AnswerCounts
		for _, v := range []int{0, 1, 3} {
			require.NoError(t, a.Add(v))
			require.NoError(t, all.Add(v))
		}
		for _, v := range []int{2, 2, 3} {
			require.NoError(t, b.Add(v))
			require.NoError(t, all.Add(v))
		}
		a.Merge(b)
		assert.Equal(t, all, a)
	})
}

func TestStdDevNeverNegative(t *testing.T) {
	for c0 := 0; c0 < 4; c0++ {
		for c1 := 0; c1 < 4; c1++ {
			for c2 := 0; c2 < 4; c2++ {
				for c3 := 0; c3 < 4; c3++ {
					c := AnswerCounts{C0: c0, C1: c1, C2: c2, C3: c3}
					sd := c.StdDev()
					if c.N() < 2 {
						assert.Equal(t, 0.0, sd)
					} else {
						assert.GreaterOrEqual(t, sd, 0.0)
						assert.False(t, math.IsNaN(sd))
					}
				}
			}
		}
	}
}

func TestGroupAccumulator(t *testing.T) {
	var g GroupAccumulator
	g.Add(2.5)
	assert.Equal(t, 2.5, g.Mean())
	assert.Equal(t, 0.0, g.StdDev())

	g.Add(1.5)
	assert.Equal(t, 2, g.Count)
	assert.Equal(t, 2.0, g.Mean())
	assert.InDelta(t, math.Sqrt(0.5), g.StdDev(), 1e-12)

	var other GroupAccumulator
	other.Add(3)
	g.Merge(other)
	assert.Equal(t, 3, g.Count)
	assert.InDelta(t, 7.0/3.0, g.Mean(), 1e-12)

	same := GroupAccumulator{}
	for i := 0; i < 5; i++ {
		same.Add(0.1 + 0.2)
	}
	assert.InDelta(t, 0.0, same.StdDev(), 1e-6)
}

func TestAgeInMonths(t *testing.T) {
	at := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 9, AgeInMonths(2024, 6, at))
	assert.Equal(t, 0, AgeInMonths(2025, 3, at))
	assert.Equal(t, 26, AgeInMonths(2023, 1, at))
	assert.Equal(t, -1, AgeInMonths(2025, 4, at))
}

func TestImputedAnswer(t *testing.T) {
	assert.Equal(t, 2, ImputedAnswer(2, true, 9, 6))
	assert.Equal(t, 0, ImputedAnswer(0, true, 9, 6))
	assert.Equal(t, 3, ImputedAnswer(Unanswered, false, 9, 6))
	assert.Equal(t, 3, ImputedAnswer(Unanswered, false, 6, 6))
	assert.Equal(t, 0, ImputedAnswer(Unanswered, false, 5, 6))
	// an unanswered seed in the session is imputed like a missing milestone
	assert.Equal(t, 3, ImputedAnswer(Unanswered, true, 9, 6))
}

func TestGroupSampleFromImputation(t *testing.T) {
	birth := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	created := birth.AddDate(0, 9, 3)
	age := AgeInMonths(birth.Year(), int(birth.Month()), created)
	require.Equal(t, 9, age)

	values := []int{
		ImputedAnswer(2, true, age, 0),
		ImputedAnswer(Unanswered, false, age, 6),
	}
	assert.Equal(t, 2.5, Average(values))
	assert.Equal(t, 0.0, Average(nil))
}
