// Package indicator computes technical indicator series over price data.
// Lines follow the talib convention: the value at index i describes the
// series up to and including index i, with a zero prefix during warmup.
package indicator

// CrossDirection describes how a fast line moved against a slow line on the
// most recent step.
type CrossDirection int

const (
	// CrossNone means the lines did not cross.
	CrossNone CrossDirection = iota
	// CrossUp means the fast line closed above the slow line after sitting at
	// or below it on the previous step.
	CrossUp
	// CrossDown means the fast line closed below the slow line after sitting
	// at or above it on the previous step.
	CrossDown
)

// LastCross compares the two most recent points of both lines. Lines shorter
// than two points or of mismatched lengths never cross.
func LastCross(fast, slow []float64) CrossDirection {
	n := len(fast)
	if n < 2 || len(slow) != n {
		return CrossNone
	}

	last, prev := n-1, n-2

	switch {
	case fast[last] > slow[last] && fast[prev] <= slow[prev]:
		return CrossUp
	case fast[last] < slow[last] && fast[prev] >= slow[prev]:
		return CrossDown
	default:
		return CrossNone
	}
}
