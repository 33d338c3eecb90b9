package rental

import (
	"errors"
	"fmt"
	"time"
)

// Outcome tags the result of a rent or return. Anything other than OK is a
// recognized invalid request: nothing was changed and the caller may carry on.
type Outcome int

const (
	OK Outcome = iota
	InvalidStation
	InvalidClient
	StationEmpty
	BikeNotFound
	NotHolder
	StationFull
)

var outcomeNames = map[Outcome]string{
	OK:             "ok",
	InvalidStation: "invalid_station",
	InvalidClient:  "invalid_client",
	StationEmpty:   "station_empty",
	BikeNotFound:   "bike_not_found",
	NotHolder:      "not_holder",
	StationFull:    "station_full",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the outcome by name
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an outcome name
func (o *Outcome) UnmarshalText(text []byte) error {
	for k, name := range outcomeNames {
		if name == string(text) {
			*o = k
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", text)
}

// Soft failure errors, one per Outcome
var (
	ErrInvalidStation = errors.New("station does not exist")
	ErrInvalidClient  = errors.New("invalid client code")
	ErrStationEmpty   = errors.New("no bikes parked at station")
	ErrBikeNotFound   = errors.New("bike not found")
	ErrNotHolder      = errors.New("bike is not rented by this client")
	ErrStationFull    = errors.New("station is full")
)

// ErrInconsistent is a hard failure: counters and records disagree
var ErrInconsistent = errors.New("counter table does not match bike records")

// Err returns the error matching the outcome, or nil for OK.
func (o Outcome) Err() error {
	switch o {
	case OK:
		return nil
	case InvalidStation:
		return ErrInvalidStation
	case InvalidClient:
		return ErrInvalidClient
	case StationEmpty:
		return ErrStationEmpty
	case BikeNotFound:
		return ErrBikeNotFound
	case NotHolder:
		return ErrNotHolder
	case StationFull:
		return ErrStationFull
	default:
		return errors.New("unknown outcome")
	}
}

// RentResult is the result of RentBike. Bike is set only when Outcome is OK.
type RentResult struct {
	Outcome Outcome `json:"outcome"`
	Bike    string  `json:"bike,omitempty"`
	Station int     `json:"station"`
	Client  string  `json:"client"`
}

// OK reports whether the bike was rented
func (r RentResult) OK() bool {
	return r.Outcome == OK
}

// ReturnResult is the result of ReturnBike. Bike is set only when Outcome is OK.
type ReturnResult struct {
	Outcome Outcome `json:"outcome"`
	Bike    string  `json:"bike,omitempty"`
	Station int     `json:"station"`
	Client  string  `json:"client"`
}

// OK reports whether the bike was returned
func (r ReturnResult) OK() bool {
	return r.Outcome == OK
}

// Bike is a read-only view of one bike record
type Bike struct {
	Code    string `json:"code"`
	Station int    `json:"station,omitempty"` // 1-based; 0 when rented
	Client  string `json:"client,omitempty"`
	Rented  bool   `json:"rented"`
	Hour    int    `json:"hour"`
	Minute  int    `json:"minute"`
}

// TransitionKind names a state change
type TransitionKind string

const (
	KindRent   TransitionKind = "rent"
	KindReturn TransitionKind = "return"
)

// Transition describes a committed rent or return
type Transition struct {
	Kind    TransitionKind `json:"kind"`
	Bike    string         `json:"bike"`
	Client  string         `json:"client"`
	Station int            `json:"station"` // 1-based
	Hour    int            `json:"hour"`
	Minute  int            `json:"minute"`
	At      time.Time      `json:"at"`
}

// Recorder receives every committed transition
type Recorder interface {
	Record(Transition) error
}

// Clock supplies the time used to stamp transitions
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the local wall clock
var SystemClock Clock = ClockFunc(time.Now)

// ServiceConfig holds the optional collaborators of a Service
type ServiceConfig struct {
	Clock    Clock    // Defaults to SystemClock
	Recorder Recorder // Optional transition history
	Fsync    bool     // Sync the data file after every committed change
}
