package surface

import (
	"fmt"
	"math"
	"sort"
)

// positionTol is the relative distance under which two strikes (or two
// expiries) name the same position. It absorbs float noise such as
// 0.1+0.2 against 0.3 or day counts divided by 365.
const positionTol = 1e-9

// Sample is a single implied-volatility observation.
type Sample struct {
	Strike       float64 `json:"strike"`
	TimeToExpiry float64 `json:"time_to_expiry"`
	ImpliedVol   float64 `json:"implied_vol"`
}

// Validate checks the domain constraints of a sample.
func (s Sample) Validate() error {
	switch {
	case !finite(s.Strike) || !finite(s.TimeToExpiry) || !finite(s.ImpliedVol):
		return fmt.Errorf("%w: non-finite field in %+v", ErrInvalidSample, s)
	case s.Strike <= 0:
		return fmt.Errorf("%w: strike must be positive, got %g", ErrInvalidSample, s.Strike)
	case s.TimeToExpiry <= 0:
		return fmt.Errorf("%w: time_to_expiry must be positive, got %g", ErrInvalidSample, s.TimeToExpiry)
	case s.ImpliedVol < 0:
		return fmt.Errorf("%w: implied_vol must be non-negative, got %g", ErrInvalidSample, s.ImpliedVol)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// DuplicatePolicy decides what happens when a sample lands on an occupied position.
type DuplicatePolicy int

const (
	// DuplicateReject refuses the new sample with ErrDuplicateSample.
	DuplicateReject DuplicatePolicy = iota
	// DuplicateAverage replaces the stored vol with the mean of all observations at the position.
	DuplicateAverage
)

func (p DuplicatePolicy) String() string {
	switch p {
	case DuplicateReject:
		return "reject"
	case DuplicateAverage:
		return "average"
	default:
		return fmt.Sprintf("DuplicatePolicy(%d)", int(p))
	}
}

// ParseDuplicatePolicy maps a config string onto a DuplicatePolicy.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch s {
	case "", "reject":
		return DuplicateReject, nil
	case "average":
		return DuplicateAverage, nil
	default:
		return DuplicateReject, fmt.Errorf("surface: unknown duplicate policy %q", s)
	}
}

// Bounds is the axis-aligned extent of the stored sample positions.
type Bounds struct {
	MinStrike float64 `json:"min_strike"`
	MaxStrike float64 `json:"max_strike"`
	MinTime   float64 `json:"min_time"`
	MaxTime   float64 `json:"max_time"`
}

// Store is the ordered sample set. It is not safe for concurrent use;
// Engine serializes access to it.
type Store struct {
	policy  DuplicatePolicy
	samples []Sample
	// sample indices ordered by strike
	byStrike []int
	// observations per slot, used by DuplicateAverage
	counts []int
}

// NewStore creates an empty store with the given duplicate policy.
func NewStore(policy DuplicatePolicy) *Store {
	return &Store{policy: policy}
}

// Add validates s and stores it. A sample within positionTol of a stored one
// on both axes is a duplicate of it. The returned sample is what the store
// now holds at s's position, which differs from s when averaging merged it.
func (st *Store) Add(s Sample) (Sample, error) {
	if err := s.Validate(); err != nil {
		return Sample{}, err
	}

	if i, ok := st.find(s.Strike, s.TimeToExpiry); ok {
		if st.policy != DuplicateAverage {
			return Sample{}, fmt.Errorf("%w: (%g, %g) already holds vol %g",
				ErrDuplicateSample, s.Strike, s.TimeToExpiry, st.samples[i].ImpliedVol)
		}
		n := float64(st.counts[i])
		st.samples[i].ImpliedVol = (st.samples[i].ImpliedVol*n + s.ImpliedVol) / (n + 1)
		st.counts[i]++
		return st.samples[i], nil
	}

	at := sort.Search(len(st.byStrike), func(j int) bool {
		return st.samples[st.byStrike[j]].Strike >= s.Strike
	})
	st.byStrike = append(st.byStrike, 0)
	copy(st.byStrike[at+1:], st.byStrike[at:])
	st.byStrike[at] = len(st.samples)

	st.samples = append(st.samples, s)
	st.counts = append(st.counts, 1)
	return s, nil
}

// find returns the stored sample at (strike, t) within positionTol.
func (st *Store) find(strike, t float64) (int, bool) {
	lo := strike * (1 - positionTol)
	j := sort.Search(len(st.byStrike), func(j int) bool {
		return st.samples[st.byStrike[j]].Strike >= lo
	})
	for ; j < len(st.byStrike); j++ {
		c := st.samples[st.byStrike[j]]
		if !samePosition(c.Strike, strike) {
			if c.Strike > strike {
				break
			}
			continue
		}
		if samePosition(c.TimeToExpiry, t) {
			return st.byStrike[j], true
		}
	}
	return -1, false
}

func samePosition(a, b float64) bool {
	return math.Abs(a-b) <= positionTol*math.Max(math.Abs(a), math.Abs(b))
}

// Count returns the number of distinct sample positions.
func (st *Store) Count() int {
	return len(st.samples)
}

// Bounds returns the extent of the samples; ok is false when the store is empty.
func (st *Store) Bounds() (Bounds, bool) {
	return boundsOf(st.samples)
}

func boundsOf(samples []Sample) (b Bounds, ok bool) {
	if len(samples) == 0 {
		return Bounds{}, false
	}
	b = Bounds{
		MinStrike: samples[0].Strike, MaxStrike: samples[0].Strike,
		MinTime: samples[0].TimeToExpiry, MaxTime: samples[0].TimeToExpiry,
	}
	for _, s := range samples[1:] {
		b.MinStrike = math.Min(b.MinStrike, s.Strike)
		b.MaxStrike = math.Max(b.MaxStrike, s.Strike)
		b.MinTime = math.Min(b.MinTime, s.TimeToExpiry)
		b.MaxTime = math.Max(b.MaxTime, s.TimeToExpiry)
	}
	return b, true
}

// Samples returns a copy of the samples in insertion order.
func (st *Store) Samples() []Sample {
	out := make([]Sample, len(st.samples))
	copy(out, st.samples)
	return out
}
