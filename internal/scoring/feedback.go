package scoring

import "math"

// TrafficLight is the three-level feedback signal, plus a marker for ages
// or milestones without enough population data.
type TrafficLight int

const (
	InsufficientData TrafficLight = -2
	Red              TrafficLight = -1
	Yellow           TrafficLight = 0
	Green            TrafficLight = 1
)

func (t TrafficLight) String() string {
	switch t {
	case Red:
		return "red"
	case Yellow:
		return "yellow"
	case Green:
		return "green"
	default:
		return "insufficient_data"
	}
}

const (
	relTolerance = 1e-5
	absTolerance = 1e-8
)

func isClose(a, b float64) bool {
	return math.Abs(a-b) <= absTolerance+relTolerance*math.Abs(b)
}

// leq treats values within rounding distance of the limit as equal, so a
// score sitting on a boundary falls into the lower bucket.
func leq(v, limit float64) bool {
	return v < limit || isClose(v, limit)
}

// Classify places observed against the population: red at or below two
// standard deviations under the mean, yellow at or below one, green above.
func Classify(observed, mean, stddev float64) TrafficLight {
	return classifyBands(observed, mean-2*stddev, mean-stddev)
}

func classifyBands(observed, lower, upper float64) TrafficLight {
	switch {
	case leq(observed, lower):
		return Red
	case leq(observed, upper):
		return Yellow
	default:
		return Green
	}
}

// FeedbackPolicy wraps Classify with the data-sufficiency rules applied to
// stored statistics.
type FeedbackPolicy struct {
	// MinSamples below which no feedback is given.
	MinSamples int
	// DegenerateStdDev is the spread under which bands of one and two
	// answer points below the mean are used instead of stddev multiples.
	DegenerateStdDev float64
}

func DefaultFeedbackPolicy() FeedbackPolicy {
	return FeedbackPolicy{MinSamples: 2, DegenerateStdDev: 1e-2}
}

// ClassifyStat classifies observed against stat, or reports
// InsufficientData.
func (p FeedbackPolicy) ClassifyStat(stat Stat, observed float64) TrafficLight {
	if stat.Count == 0 || stat.Count < p.MinSamples {
		return InsufficientData
	}
	if stat.StdDev < p.DegenerateStdDev {
		return classifyBands(observed, stat.Mean-2, stat.Mean-1)
	}
	return Classify(observed, stat.Mean, stat.StdDev)
}

// Deviation accumulates squared differences between given answers and the
// population mean for the same milestone and age.
type Deviation struct {
	sum   float64
	count int
}

func (d *Deviation) Add(mean float64, answer int) {
	diff := mean - float64(answer)
	d.sum += diff * diff
	d.count++
}

func (d Deviation) Count() int {
	return d.count
}

// RMS is the root-mean-square deviation; 0 when nothing was comparable.
func (d Deviation) RMS() float64 {
	if d.count == 0 {
		return 0
	}
	return math.Sqrt(d.sum / float64(d.count))
}
