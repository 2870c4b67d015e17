// Package scoring holds the numeric core of milestone feedback: per-age
// answer frequencies and group accumulators that are folded forward as new
// answer sessions arrive, the estimator that derives a milestone's expected
// age and relevant age window from those frequencies, the RMS deviation used
// to flag implausible sessions, and the traffic-light classifier.
//
// Nothing in this package touches storage. Callers load counts, fold samples
// in, and persist the results.
package scoring
