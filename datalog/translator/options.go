package translator

import (
	"fmt"
)

// SIPSMetric names the strategy used to order body atoms when a clause
// carries no execution plan
type SIPSMetric string

const (
	// SIPSStrict keeps declaration order
	SIPSStrict SIPSMetric = "strict"
	// SIPSAllBound prefers atoms whose arguments are all bound
	SIPSAllBound SIPSMetric = "all-bound"
	// SIPSMaxBound prefers atoms with the most bound arguments
	SIPSMaxBound SIPSMetric = "max-bound"
	// SIPSLeastFreeVars prefers atoms introducing the fewest new variables
	SIPSLeastFreeVars SIPSMetric = "least-free-vars"
	// SIPSDelta prefers delta relations, then bound arguments
	SIPSDelta SIPSMetric = "delta"
)

// ParseSIPS validates a metric name
func ParseSIPS(name string) (SIPSMetric, error) {
	switch m := SIPSMetric(name); m {
	case SIPSStrict, SIPSAllBound, SIPSMaxBound, SIPSLeastFreeVars, SIPSDelta:
		return m, nil
	case "":
		return SIPSStrict, nil
	}
	return "", fmt.Errorf("unknown sips metric %q", name)
}

// Options configures translation
type Options struct {
	SIPS SIPSMetric

	// ReleaseExpired emits a CLEAR for every relation after the last
	// stratum that reads it, unless the relation is stored
	ReleaseExpired bool

	// DebugInfo wraps each translated clause in a DEBUG statement
	// carrying its source text
	DebugInfo bool
}

// DefaultOptions returns the default translation options
func DefaultOptions() Options {
	return Options{
		SIPS:           SIPSStrict,
		ReleaseExpired: true,
		DebugInfo:      true,
	}
}
