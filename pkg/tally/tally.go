// Package tally implements the pure, side-effect-free phase-1 and phase-2
// tally rules of the Ben-Or round: given the contents of an inbox bucket
// and a node's own current value, compute the next value or a decision.
package tally

import (
	"github.com/quorumkit/benor-node/pkg/inbox"
	"github.com/quorumkit/benor-node/pkg/value"
)

// Counts tallies entries (plus an optional own value) over {0, 1, ?}.
func Counts(own value.Value, includeOwn bool, entries []inbox.Entry) (zero, one, unknown int) {
	count := func(v value.Value) {
		switch v.Kind() {
		case value.KindZero:
			zero++
		case value.KindOne:
			one++
		default:
			unknown++
		}
	}
	if includeOwn {
		count(own)
	}
	for _, e := range entries {
		count(e.Value)
	}
	return
}

// Phase1 implements the phase-1 tally: counts over {0, 1} only (own x
// plus every received phase-1 value that is 0 or 1), compared against
// the simple majority floor(N/2)+1. "?" is never counted in phase 1,
// whether it is a received value or own x.
func Phase1(own value.Value, entries []inbox.Entry, n int) value.Value {
	zero, one, _ := Counts(own, own.IsBinary(), entries)
	majority := n/2 + 1
	switch {
	case zero >= majority:
		return value.Zero
	case one >= majority:
		return value.One
	default:
		return value.Unknown
	}
}

// Outcome is the result of a phase-2 tally: either a sticky decision or a
// next-round proposal.
type Outcome struct {
	Decided bool
	Value   value.Value // the decided value if Decided, else the next round's x
}

// CoinFunc returns a single uniformly distributed bit, fresh on every
// call. Production wiring supplies CryptoCoin; tests inject a
// deterministic source to make the randomized escape of rule (e)
// reproducible.
type CoinFunc func() bool

// Phase2 implements the phase-2 tally. Own x (which may be the "?"
// sentinel coming out of phase 1) and every received phase-2 value in
// {0, 1, ?} feed the count. Rules are evaluated in order; the first match
// wins.
func Phase2(own value.Value, entries []inbox.Entry, n, f int, coin CoinFunc) Outcome {
	zero, one, _ := Counts(own, true, entries)

	assumedCorrect := n - f
	decisionThreshold := assumedCorrect/2 + 1
	adoptionThreshold := assumedCorrect/3 + 1

	switch {
	case zero >= decisionThreshold && own.IsZero():
		return Outcome{Decided: true, Value: value.Zero}
	case one >= decisionThreshold && own.IsOne():
		return Outcome{Decided: true, Value: value.One}
	case zero >= adoptionThreshold:
		return Outcome{Value: value.Zero}
	case one >= adoptionThreshold:
		return Outcome{Value: value.One}
	default:
		return Outcome{Value: value.FromBit(coin())}
	}
}
