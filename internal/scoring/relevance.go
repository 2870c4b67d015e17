package scoring

// RelevancePolicy decides when an age bucket counts as "achieved".
type RelevancePolicy struct {
	MaxAge           int
	MinSamples       int
	AchievedFraction float64
}

func DefaultRelevancePolicy() RelevancePolicy {
	return RelevancePolicy{
		MaxAge:           DefaultMaxAgeMonths,
		MinSamples:       3,
		AchievedFraction: 0.8,
	}
}

// Relevance is the derived expected age and the inclusive window of ages at
// which a milestone is asked.
type Relevance struct {
	ExpectedAge      int `json:"expected_age"`
	ExpectedAgeDelta int `json:"expected_age_delta"`
	MinAge           int `json:"relevant_age_min"`
	MaxAge           int `json:"relevant_age_max"`
}

// Contains reports whether age falls inside the relevant window.
func (r Relevance) Contains(age int) bool {
	return age >= r.MinAge && age <= r.MaxAge
}

// DefaultRelevance asks a milestone at every age.
func DefaultRelevance(maxAge int) Relevance {
	return Relevance{ExpectedAge: maxAge, ExpectedAgeDelta: maxAge, MinAge: 0, MaxAge: maxAge}
}

func (p RelevancePolicy) enoughSamples(c AnswerCounts) bool {
	return c.N() >= p.MinSamples
}

func (p RelevancePolicy) achieved(c AnswerCounts) bool {
	if !p.enoughSamples(c) {
		return false
	}
	return float64(c.Achieved())+1e-9 >= p.AchievedFraction*float64(c.N())
}

// Estimate derives the relevance of a milestone from its per-age counts,
// indexed by age in months. Missing trailing ages count as empty.
//
// The expected age is the first age where at least AchievedFraction of the
// answers are 2 or 3. The window then drops leading ages where every sampled
// child clearly had not reached the milestone and trailing ages where every
// sampled child clearly had, never crossing the expected age.
func (p RelevancePolicy) Estimate(counts []AnswerCounts) Relevance {
	at := func(age int) AnswerCounts {
		if age < 0 || age >= len(counts) {
			return AnswerCounts{}
		}
		return counts[age]
	}

	expected := p.MaxAge
	for age := 0; age <= p.MaxAge; age++ {
		if p.achieved(at(age)) {
			expected = age
			break
		}
	}

	maxAge := p.MaxAge
	for maxAge > expected {
		c := at(maxAge)
		if c.NotAchieved() != 0 || !p.enoughSamples(c) {
			break
		}
		maxAge--
	}

	minAge := 0
	for minAge < expected {
		c := at(minAge)
		if c.Achieved() != 0 || !p.enoughSamples(c) {
			break
		}
		minAge++
	}

	delta := expected - minAge
	if maxAge-expected > delta {
		delta = maxAge - expected
	}

	return Relevance{
		ExpectedAge:      expected,
		ExpectedAgeDelta: delta,
		MinAge:           minAge,
		MaxAge:           maxAge,
	}
}
