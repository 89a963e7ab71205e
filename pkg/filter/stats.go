package filter

import (
	"math"
)

// Stats describes the parameters and fill level of a filter.
type Stats struct {
	HashTimes      int
	BitLength      uint64
	Size           int64
	BitsSet        uint64
	FillRatio      float64
	EstimatedCount float64 // +Inf once every bit is set.
}

// Stats computes the current fill level of f.
func (f *Filter) Stats() Stats {
	set := uint64(f.BitSet().Count())
	m := float64(f.bitLength)
	k := float64(f.hashTimes)
	st := Stats{
		HashTimes: f.hashTimes,
		BitLength: f.bitLength,
		Size:      f.Size(),
		BitsSet:   set,
		FillRatio: float64(set) / m,
	}
	if set > 0 {
		st.EstimatedCount = -(m / k) * math.Log(1-st.FillRatio)
	}
	return st
}
