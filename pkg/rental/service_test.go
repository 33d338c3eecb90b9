package rental

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/ssargent/bicis/pkg/codec"
	"github.com/ssargent/bicis/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

func fixedClock() Clock {
	return ClockFunc(func() time.Time { return fixedTime })
}

type recorderFunc func(Transition) error

func (f recorderFunc) Record(t Transition) error {
	return f(t)
}

// counterFaultBackend fails writes into the counter table once armed
type counterFaultBackend struct {
	*store.MemoryBackend
	header int64
	armed  bool
}

var errCounterWrite = errors.New("counter write failed")

func (b *counterFaultBackend) WriteAt(p []byte, off int64) (int, error) {
	if b.armed && off < b.header {
		return 0, errCounterWrite
	}
	return b.MemoryBackend.WriteAt(p, off)
}

func newService(t *testing.T, layout store.Layout, config ServiceConfig) *Service {
	t.Helper()
	s, err := store.OpenBackend(store.NewMemoryBackend(nil), layout)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	if config.Clock == nil {
		config.Clock = fixedClock()
	}
	return NewService(s, config)
}

func requireConsistent(t *testing.T, svc *Service) {
	t.Helper()
	report, err := svc.Check()
	require.NoError(t, err)
	require.True(t, report.OK(), "problems: %v", report.Problems)
}

func TestService_AvailableCounts(t *testing.T) {
	svc := newService(t, store.DefaultLayout(), ServiceConfig{})

	counts, err := svc.AvailableCounts()
	require.NoError(t, err)
	assert.Equal(t, []int{5, 5, 5, 5, 5}, counts)
	assert.Equal(t, 5, svc.Stations())
	assert.Equal(t, 10, svc.Capacity())
}

func TestService_RentAndReturn(t *testing.T) {
	svc := newService(t, store.DefaultLayout(), ServiceConfig{})

	rent, err := svc.RentBike(1, "client01")
	require.NoError(t, err)
	assert.True(t, rent.OK())
	assert.Equal(t, "B000", rent.Bike)

	counts, err := svc.AvailableCounts()
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5, 5, 5, 5}, counts)

	rented, err := svc.RentedBikes("client01")
	require.NoError(t, err)
	assert.Equal(t, []string{"B000"}, rented)

	bikes, err := svc.Bikes()
	require.NoError(t, err)
	assert.Equal(t, Bike{Code: "B000", Client: "client01", Rented: true, Hour: 9, Minute: 30}, bikes[0])
	requireConsistent(t, svc)

	ret, err := svc.ReturnBike(1, "B000", "client01")
	require.NoError(t, err)
	assert.True(t, ret.OK())
	assert.Equal(t, "B000", ret.Bike)

	counts, err = svc.AvailableCounts()
	require.NoError(t, err)
	assert.Equal(t, []int{5, 5, 5, 5, 5}, counts)

	rented, err = svc.RentedBikes("client01")
	require.NoError(t, err)
	assert.Empty(t, rented)

	bikes, err = svc.Bikes()
	require.NoError(t, err)
	assert.Equal(t, Bike{Code: "B000", Station: 1, Hour: 9, Minute: 30}, bikes[0])
	requireConsistent(t, svc)
}

func TestService_RentTakesLowestOffset(t *testing.T) {
	svc := newService(t, store.DefaultLayout(), ServiceConfig{})

	for _, want := range []string{"B010", "B011", "B012"} {
		res, err := svc.RentBike(3, "client02")
		require.NoError(t, err)
		assert.Equal(t, want, res.Bike)
	}

	rented, err := svc.RentedBikes("client02")
	require.NoError(t, err)
	assert.Equal(t, []string{"B010", "B011", "B012"}, rented)

	// returning to another station makes the bike the first match there
	ret, err := svc.ReturnBike(1, "B011", "client02")
	require.NoError(t, err)
	require.True(t, ret.OK())

	res, err := svc.RentBike(1, "client03")
	require.NoError(t, err)
	assert.Equal(t, "B000", res.Bike)
	requireConsistent(t, svc)
}

func TestService_RentSoftFailures(t *testing.T) {
	svc := newService(t, store.DefaultLayout(), ServiceConfig{})

	tests := []struct {
		name    string
		station int
		client  string
		want    Outcome
	}{
		{"station zero", 0, "client01", InvalidStation},
		{"station above range", 6, "client01", InvalidStation},
		{"negative station", -3, "client01", InvalidStation},
		{"empty client", 2, "", InvalidClient},
		{"client too long", 2, "client0001", InvalidClient},
		{"client with trailing space", 2, "abc ", InvalidClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.RentBike(tt.station, tt.client)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Outcome)
			assert.Empty(t, res.Bike)
			assert.Error(t, res.Outcome.Err())
		})
	}

	counts, err := svc.AvailableCounts()
	require.NoError(t, err)
	assert.Equal(t, []int{5, 5, 5, 5, 5}, counts)
}

func TestService_RentFromEmptyStation(t *testing.T) {
	svc := newService(t, store.DefaultLayout(), ServiceConfig{})

	for i := 0; i < 5; i++ {
		res, err := svc.RentBike(2, "client01")
		require.NoError(t, err)
		require.True(t, res.OK())
	}

	res, err := svc.RentBike(2, "client01")
	require.NoError(t, err)
	assert.Equal(t, StationEmpty, res.Outcome)
	assert.ErrorIs(t, res.Outcome.Err(), ErrStationEmpty)

	counts, err := svc.AvailableCounts()
	require.NoError(t, err)
	assert.Equal(t, []int{5, 0, 5, 5, 5}, counts, "an empty station is never decremented")
	requireConsistent(t, svc)
}

func TestService_ReturnSoftFailures(t *testing.T) {
	svc := newService(t, store.DefaultLayout(), ServiceConfig{})

	rent, err := svc.RentBike(1, "client01")
	require.NoError(t, err)
	require.True(t, rent.OK())

	tests := []struct {
		name    string
		station int
		bike    string
		client  string
		want    Outcome
	}{
		{"invalid station", 9, "B000", "client01", InvalidStation},
		{"unknown bike", 1, "B999", "client01", BikeNotFound},
		{"empty bike code", 1, "", "client01", BikeNotFound},
		{"other client", 1, "B000", "client02", NotHolder},
		{"bike not rented", 1, "B001", "client01", NotHolder},
		{"empty client", 1, "B000", "", InvalidClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.ReturnBike(tt.station, tt.bike, tt.client)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Outcome)
			assert.Empty(t, res.Bike)
		})
	}

	// nothing moved: the bike is still held and no counter grew
	counts, err := svc.AvailableCounts()
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5, 5, 5, 5}, counts)

	bikes, err := svc.Bikes()
	require.NoError(t, err)
	assert.True(t, bikes[0].Rented)
	assert.Equal(t, "client01", bikes[0].Client)
	requireConsistent(t, svc)
}

func TestService_ReturnToFullStation(t *testing.T) {
	svc := newService(t, store.DefaultLayout(), ServiceConfig{})

	// move five bikes from station 2 to station 1 to fill it, and hold one more from station 3
	var codes []string
	for _, station := range []int{2, 2, 2, 2, 2, 3} {
		res, err := svc.RentBike(station, "client01")
		require.NoError(t, err)
		require.True(t, res.OK())
		codes = append(codes, res.Bike)
	}
	for _, code := range codes[:5] {
		res, err := svc.ReturnBike(1, code, "client01")
		require.NoError(t, err)
		require.True(t, res.OK(), "return %s", code)
	}

	res, err := svc.ReturnBike(1, codes[5], "client01")
	require.NoError(t, err)
	assert.Equal(t, StationFull, res.Outcome)

	counts, err := svc.AvailableCounts()
	require.NoError(t, err)
	assert.Equal(t, []int{10, 0, 4, 5, 5}, counts, "a full station is never incremented")

	rented, err := svc.RentedBikes("client01")
	require.NoError(t, err)
	assert.Equal(t, []string{codes[5]}, rented)
	requireConsistent(t, svc)
}

// A capacity other than ten must be honoured by the return path exactly as
// it is by seeding.
func TestService_CapacityUsedByReturn(t *testing.T) {
	svc := newService(t, store.Layout{Stations: 3, Capacity: 4}, ServiceConfig{})

	counts, err := svc.AvailableCounts()
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 2}, counts)

	for i := 0; i < 2; i++ {
		rent, err := svc.RentBike(2, "client01")
		require.NoError(t, err)
		res, err := svc.ReturnBike(1, rent.Bike, "client01")
		require.NoError(t, err)
		require.True(t, res.OK())
	}

	counts, err = svc.AvailableCounts()
	require.NoError(t, err)
	require.Equal(t, []int{4, 0, 2}, counts)

	rent, err := svc.RentBike(3, "client02")
	require.NoError(t, err)
	require.True(t, rent.OK())

	res, err := svc.ReturnBike(1, rent.Bike, "client02")
	require.NoError(t, err)
	assert.Equal(t, StationFull, res.Outcome)

	res, err = svc.ReturnBike(2, rent.Bike, "client02")
	require.NoError(t, err)
	assert.True(t, res.OK())

	counts, err = svc.AvailableCounts()
	require.NoError(t, err)
	assert.Equal(t, []int{4, 1, 1}, counts)
	requireConsistent(t, svc)
}

func TestService_RentThenReturnRestoresCounts(t *testing.T) {
	svc := newService(t, store.DefaultLayout(), ServiceConfig{})

	for station := 1; station <= 5; station++ {
		before, err := svc.AvailableCounts()
		require.NoError(t, err)

		rent, err := svc.RentBike(station, "client09")
		require.NoError(t, err)
		require.True(t, rent.OK())

		res, err := svc.ReturnBike(station, rent.Bike, "client09")
		require.NoError(t, err)
		require.True(t, res.OK())

		after, err := svc.AvailableCounts()
		require.NoError(t, err)
		assert.Equal(t, before, after, "station %d", station)
	}
}

func TestService_RandomOperationsKeepInvariants(t *testing.T) {
	svc := newService(t, store.DefaultLayout(), ServiceConfig{})
	rng := rand.New(rand.NewSource(42))
	clients := []string{"c1", "c2", "c3", "c4"}

	for i := 0; i < 400; i++ {
		client := clients[rng.Intn(len(clients))]
		station := rng.Intn(7) // includes out-of-range ids

		if rng.Intn(2) == 0 {
			_, err := svc.RentBike(station, client)
			require.NoError(t, err)
		} else {
			held, err := svc.RentedBikes(clients[rng.Intn(len(clients))])
			require.NoError(t, err)
			code := "B000"
			if len(held) > 0 {
				code = held[rng.Intn(len(held))]
			}
			_, err = svc.ReturnBike(station, code, client)
			require.NoError(t, err)
		}

		report, err := svc.Check()
		require.NoError(t, err)
		require.True(t, report.OK(), "step %d: %v", i, report.Problems)
		require.Equal(t, 25, report.Bikes)
	}
}

func TestService_CounterWriteFailureRollsBack(t *testing.T) {
	layout := store.DefaultLayout()
	backend := &counterFaultBackend{MemoryBackend: store.NewMemoryBackend(nil), header: layout.HeaderSize()}
	s, err := store.OpenBackend(backend, layout)
	require.NoError(t, err)
	svc := NewService(s, ServiceConfig{Clock: fixedClock()})

	backend.armed = true
	_, err = svc.RentBike(1, "client01")
	assert.ErrorIs(t, err, store.ErrIO)
	assert.ErrorIs(t, err, errCounterWrite)

	backend.armed = false
	rented, err := svc.RentedBikes("client01")
	require.NoError(t, err)
	assert.Empty(t, rented, "the record change was rolled back")
	requireConsistent(t, svc)
}

func TestService_InconsistentCounter(t *testing.T) {
	s, err := store.OpenBackend(store.NewMemoryBackend(nil), store.DefaultLayout())
	require.NoError(t, err)
	require.NoError(t, s.WriteCounter(0, 0))
	svc := NewService(s, ServiceConfig{Clock: fixedClock()})

	_, err = svc.RentBike(1, "client01")
	assert.ErrorIs(t, err, ErrInconsistent)

	report, err := svc.Check()
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Equal(t, StationReport{Station: 1, Counter: 0, Parked: 5}, report.Stations[0])
}

func TestService_Recorder(t *testing.T) {
	var got []Transition
	svc := newService(t, store.DefaultLayout(), ServiceConfig{
		Recorder: recorderFunc(func(tr Transition) error {
			got = append(got, tr)
			return nil
		}),
	})

	rent, err := svc.RentBike(4, "client01")
	require.NoError(t, err)
	_, err = svc.ReturnBike(2, rent.Bike, "client01")
	require.NoError(t, err)
	_, err = svc.RentBike(9, "client01")
	require.NoError(t, err)

	require.Len(t, got, 2, "soft failures are not recorded")
	assert.Equal(t, Transition{Kind: KindRent, Bike: "B015", Client: "client01", Station: 4,
		Hour: 9, Minute: 30, At: fixedTime}, got[0])
	assert.Equal(t, Transition{Kind: KindReturn, Bike: "B015", Client: "client01", Station: 2,
		Hour: 9, Minute: 30, At: fixedTime}, got[1])
}

func TestService_RecorderFailureDoesNotFailOperation(t *testing.T) {
	svc := newService(t, store.DefaultLayout(), ServiceConfig{
		Recorder: recorderFunc(func(Transition) error { return errors.New("journal offline") }),
	})

	res, err := svc.RentBike(1, "client01")
	require.NoError(t, err)
	assert.True(t, res.OK())
}

func TestService_FsyncAndClosedStore(t *testing.T) {
	s, err := store.OpenBackend(store.NewMemoryBackend(nil), store.DefaultLayout())
	require.NoError(t, err)
	svc := NewService(s, ServiceConfig{Fsync: true})

	res, err := svc.RentBike(5, "client01")
	require.NoError(t, err)
	assert.Equal(t, "B020", res.Bike)

	require.NoError(t, s.Close())
	_, err = svc.AvailableCounts()
	assert.ErrorIs(t, err, store.ErrClosed)
	_, err = svc.RentBike(1, "client01")
	assert.ErrorIs(t, err, store.ErrClosed)
}

func TestCheck_ParkedClientIsMalformed(t *testing.T) {
	backend := store.NewMemoryBackend(nil)
	s, err := store.OpenBackend(backend, store.DefaultLayout())
	require.NoError(t, err)
	off := s.RecordOffset(0)

	ghost := &codec.Bike{Code: "B000", Station: 0, Client: "ghost"}
	assert.ErrorIs(t, s.WriteRecord(off, ghost), store.ErrMalformedRecord)

	// a record with a valid checksum but a contradictory state, written behind the store's back
	_, err = backend.WriteAt(codec.NewRecordCodec().Encode(ghost), off)
	require.NoError(t, err)

	svc := NewService(s, ServiceConfig{})
	_, err = svc.Check()
	assert.ErrorIs(t, err, store.ErrMalformedRecord)

	_, err = svc.RentBike(1, "client01")
	assert.ErrorIs(t, err, store.ErrMalformedRecord)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", OK.String())
	assert.Equal(t, "station_full", StationFull.String())
	assert.Equal(t, "unknown", Outcome(99).String())
	assert.NoError(t, OK.Err())
	assert.ErrorIs(t, NotHolder.Err(), ErrNotHolder)
	assert.ErrorIs(t, BikeNotFound.Err(), ErrBikeNotFound)
}

func TestOutcome_Text(t *testing.T) {
	text, err := NotHolder.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "not_holder", string(text))

	var o Outcome
	require.NoError(t, o.UnmarshalText([]byte("station_empty")))
	assert.Equal(t, StationEmpty, o)
	assert.Error(t, o.UnmarshalText([]byte("nope")))
}
