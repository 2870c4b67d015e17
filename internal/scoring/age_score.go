package scoring

import (
	"fmt"
	"math"
	"time"
)

const (
	// Unanswered marks a seeded answer that the respondent has not given yet.
	Unanswered = -1
	MinAnswer  = 0
	MaxAnswer  = 3

	// DefaultMaxAgeMonths is the oldest age bucket kept in the statistics.
	DefaultMaxAgeMonths = 72

	minSamplesForSpread = 2
)

// ValidAnswer reports whether v is on the 0..3 competency scale.
func ValidAnswer(v int) bool {
	return v >= MinAnswer && v <= MaxAnswer
}

// AgeInMonths returns the whole-month age of a child at the given instant.
func AgeInMonths(birthYear, birthMonth int, at time.Time) int {
	return (at.Year()-birthYear)*12 + (int(at.Month()) - birthMonth)
}

// Stat is a derived (count, mean, sample stddev) triple.
type Stat struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// AnswerCounts stores how often each answer value was given for one
// milestone at one age. Mean and spread are derived from the counts so that
// folding in new sessions stays exact.
type AnswerCounts struct {
	C0 int `json:"c0"`
	C1 int `json:"c1"`
	C2 int `json:"c2"`
	C3 int `json:"c3"`
}

// Add folds one answer into the counts.
func (c *AnswerCounts) Add(answer int) error {
	switch answer {
	case 0:
		c.C0++
	case 1:
		c.C1++
	case 2:
		c.C2++
	case 3:
		c.C3++
	default:
		return fmt.Errorf("answer %d outside %d..%d", answer, MinAnswer, MaxAnswer)
	}
	return nil
}

// Merge adds other's counts to c.
func (c *AnswerCounts) Merge(other AnswerCounts) {
	c.C0 += other.C0
	c.C1 += other.C1
	c.C2 += other.C2
	c.C3 += other.C3
}

// N is the number of answers.
func (c AnswerCounts) N() int {
	return c.C0 + c.C1 + c.C2 + c.C3
}

// NotAchieved counts answers of 0 or 1.
func (c AnswerCounts) NotAchieved() int {
	return c.C0 + c.C1
}

// Achieved counts answers of 2 or 3.
func (c AnswerCounts) Achieved() int {
	return c.C2 + c.C3
}

func (c AnswerCounts) Mean() float64 {
	n := c.N()
	if n == 0 {
		return 0
	}
	return float64(c.C1+2*c.C2+3*c.C3) / float64(n)
}

// StdDev is the Bessel-corrected standard deviation, 0 below two samples.
func (c AnswerCounts) StdDev() float64 {
	n := c.N()
	if n < minSamplesForSpread {
		return 0
	}
	mean := c.Mean()
	m2 := float64(c.C1+4*c.C2+9*c.C3) / float64(n)
	return sampleStdDev(m2, mean, n)
}

func (c AnswerCounts) Stat() Stat {
	return Stat{Count: c.N(), Mean: c.Mean(), StdDev: c.StdDev()}
}

// GroupAccumulator tracks a milestone group's per-session scores at one age.
// A group score is already an average over a variable set of milestones, so
// raw sums are kept instead of answer frequencies.
type GroupAccumulator struct {
	Count           int     `json:"count"`
	SumScore        float64 `json:"sum_score"`
	SumSquaredScore float64 `json:"sum_squared_score"`
}

func (g *GroupAccumulator) Add(score float64) {
	g.Count++
	g.SumScore += score
	g.SumSquaredScore += score * score
}

func (g *GroupAccumulator) Merge(other GroupAccumulator) {
	g.Count += other.Count
	g.SumScore += other.SumScore
	g.SumSquaredScore += other.SumSquaredScore
}

func (g GroupAccumulator) Mean() float64 {
	if g.Count == 0 {
		return 0
	}
	return g.SumScore / float64(g.Count)
}

func (g GroupAccumulator) StdDev() float64 {
	if g.Count < minSamplesForSpread {
		return 0
	}
	return sampleStdDev(g.SumSquaredScore/float64(g.Count), g.Mean(), g.Count)
}

func (g GroupAccumulator) Stat() Stat {
	return Stat{Count: g.Count, Mean: g.Mean(), StdDev: g.StdDev()}
}

// sampleStdDev applies sqrt((E[x²]-E[x]²)·n/(n-1)). Rounding can push the
// population variance slightly below zero; that is clamped.
func sampleStdDev(m2, mean float64, n int) float64 {
	variance := (m2 - mean*mean) * float64(n) / float64(n-1)
	if variance <= 0 {
		return 0
	}
	return math.Sqrt(variance)
}

// ImputedAnswer is the value a milestone contributes to a group score. An
// unanswered milestone counts as achieved (3) once the child is at least as
// old as the start of its relevant window, and as not reached (0) before.
func ImputedAnswer(answer int, answered bool, childAge, relevantAgeMin int) int {
	if answered && ValidAnswer(answer) {
		return answer
	}
	if childAge >= relevantAgeMin {
		return MaxAnswer
	}
	return MinAnswer
}

// Average returns the arithmetic mean of values, 0 for none.
func Average(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}
