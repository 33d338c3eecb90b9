package rental

import (
	"fmt"

	"github.com/ssargent/bicis/pkg/codec"
)

// StationReport compares one station counter with the records parked there
type StationReport struct {
	Station int `json:"station"` // 1-based
	Counter int `json:"counter"`
	Parked  int `json:"parked"`
}

// CheckReport is the result of a consistency check
type CheckReport struct {
	Stations []StationReport `json:"stations"`
	Bikes    int             `json:"bikes"`
	Rented   int             `json:"rented"`
	Problems []string        `json:"problems,omitempty"`
}

// OK reports whether no problems were found
func (r *CheckReport) OK() bool {
	return len(r.Problems) == 0
}

// Check verifies the store against its invariants: every counter matches
// the bikes parked at its station and lies within [0, capacity], and bike
// codes are unique. It reads everything and changes nothing. A record whose
// client field contradicts its state never decodes, so it surfaces as an
// ErrMalformedRecord error rather than a problem in the report.
func (svc *Service) Check() (*CheckReport, error) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	counters, err := svc.store.ReadCounters()
	if err != nil {
		return nil, err
	}

	report := &CheckReport{Stations: make([]StationReport, len(counters))}
	for i, c := range counters {
		report.Stations[i] = StationReport{Station: i + 1, Counter: c}
	}

	seen := make(map[string]int64)
	err = svc.store.ForEach(func(off int64, b *codec.Bike) bool {
		report.Bikes++
		if prev, dup := seen[b.Code]; dup {
			report.Problems = append(report.Problems,
				fmt.Sprintf("bike %s appears at offsets %d and %d", b.Code, prev, off))
		}
		seen[b.Code] = off

		if b.Rented() {
			report.Rented++
			return true
		}
		report.Stations[b.Station].Parked++
		return true
	})
	if err != nil {
		return nil, err
	}

	capacity := svc.Capacity()
	for _, st := range report.Stations {
		if st.Counter != st.Parked {
			report.Problems = append(report.Problems,
				fmt.Sprintf("station %d counts %d bikes but %d are parked", st.Station, st.Counter, st.Parked))
		}
		if st.Counter < 0 || st.Counter > capacity {
			report.Problems = append(report.Problems,
				fmt.Sprintf("station %d counter %d outside [0, %d]", st.Station, st.Counter, capacity))
		}
	}

	return report, nil
}
