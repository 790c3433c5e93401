package services

import "time"

const DefaultGracePeriod = 2 * time.Minute

// GracePolicy decides whether a transaction may still be undone. It is always
// evaluated against the clock at request time.
type GracePolicy struct {
	Period time.Duration
}

func (p GracePolicy) period() time.Duration {
	if p.Period <= 0 {
		return DefaultGracePeriod
	}
	return p.Period
}

// Eligible reports whether now - ts <= period.
func (p GracePolicy) Eligible(ts, now time.Time) bool {
	return now.Sub(ts) <= p.period()
}

// Deadline is the last instant at which a transaction created at ts can be undone.
func (p GracePolicy) Deadline(ts time.Time) time.Time {
	return ts.Add(p.period())
}
