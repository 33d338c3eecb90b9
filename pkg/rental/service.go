// Package rental implements renting and returning bikes on top of the record store.
//
// A Service keeps two invariants across every committed operation: each
// station counter equals the number of bikes parked there, and every bike is
// either parked or rented, never both.
package rental

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/ssargent/bicis/pkg/codec"
	"github.com/ssargent/bicis/pkg/store"
)

// Service runs rental operations against a store. All operations are
// serialized, so a Service may be shared between goroutines.
type Service struct {
	mutex    sync.Mutex
	store    *store.Store
	clock    Clock
	recorder Recorder
	fsync    bool
}

// NewService creates a rental service over an open store
func NewService(s *store.Store, config ServiceConfig) *Service {
	clock := config.Clock
	if clock == nil {
		clock = SystemClock
	}
	return &Service{
		store:    s,
		clock:    clock,
		recorder: config.Recorder,
		fsync:    config.Fsync,
	}
}

// Stations returns the number of stations
func (svc *Service) Stations() int {
	return svc.store.Layout().Stations
}

// Capacity returns the per-station capacity used by both rent and return
func (svc *Service) Capacity() int {
	return svc.store.Layout().Capacity
}

// AvailableCounts returns the number of parked bikes per station, in station order
func (svc *Service) AvailableCounts() ([]int, error) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	return svc.store.ReadCounters()
}

// RentedBikes returns the codes of the bikes held by client, in record order
func (svc *Service) RentedBikes(client string) ([]string, error) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	codes := []string{}
	if !validClient(client) {
		return codes, nil
	}

	err := svc.store.ForEach(func(_ int64, b *codec.Bike) bool {
		if b.HeldBy(client) {
			codes = append(codes, b.Code)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// Bikes returns every bike in record order
func (svc *Service) Bikes() ([]Bike, error) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	bikes := make([]Bike, 0, svc.store.Records())
	err := svc.store.ForEach(func(_ int64, b *codec.Bike) bool {
		bikes = append(bikes, toBike(b))
		return true
	})
	if err != nil {
		return nil, err
	}
	return bikes, nil
}

// RentBike hands the first bike parked at station (1-based) to client.
func (svc *Service) RentBike(station int, client string) (RentResult, error) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	res := RentResult{Station: station, Client: client}
	if !svc.validStation(station) {
		res.Outcome = InvalidStation
		return res, nil
	}
	if !validClient(client) {
		res.Outcome = InvalidClient
		return res, nil
	}

	idx := station - 1
	off, found, err := svc.store.FindByStation(idx)
	if err != nil {
		return res, err
	}
	if !found {
		res.Outcome = StationEmpty
		return res, nil
	}

	bike, err := svc.store.ReadRecord(off)
	if err != nil {
		return res, err
	}
	available, err := svc.store.ReadCounter(idx)
	if err != nil {
		return res, err
	}
	if available <= 0 {
		return res, fmt.Errorf("%w: station %d counts %d but bike %s is parked there",
			ErrInconsistent, station, available, bike.Code)
	}

	updated := *bike
	updated.Station = codec.RentedStation
	updated.Client = client
	svc.stamp(&updated)

	if err := svc.commit(off, bike, &updated, idx, available-1); err != nil {
		return res, err
	}

	res.Outcome = OK
	res.Bike = updated.Code
	svc.record(KindRent, &updated, station, client)
	return res, nil
}

// ReturnBike parks bike at station (1-based). Only the client holding the
// bike may return it, and only to a station below capacity.
func (svc *Service) ReturnBike(station int, bikeCode, client string) (ReturnResult, error) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	res := ReturnResult{Station: station, Client: client}
	if !svc.validStation(station) {
		res.Outcome = InvalidStation
		return res, nil
	}
	if !validClient(client) {
		res.Outcome = InvalidClient
		return res, nil
	}

	off, found, err := svc.store.FindByCode(bikeCode)
	if err != nil {
		return res, err
	}
	if !found {
		res.Outcome = BikeNotFound
		return res, nil
	}

	idx := station - 1
	available, err := svc.store.ReadCounter(idx)
	if err != nil {
		return res, err
	}
	if available >= svc.Capacity() {
		res.Outcome = StationFull
		return res, nil
	}

	bike, err := svc.store.ReadRecord(off)
	if err != nil {
		return res, err
	}
	if !bike.HeldBy(client) {
		res.Outcome = NotHolder
		return res, nil
	}

	updated := *bike
	updated.Station = int32(idx)
	updated.Client = ""
	svc.stamp(&updated)

	if err := svc.commit(off, bike, &updated, idx, available+1); err != nil {
		return res, err
	}

	res.Outcome = OK
	res.Bike = updated.Code
	svc.record(KindReturn, &updated, station, client)
	return res, nil
}

// commit writes the record and then the counter. If the counter write fails
// the previous record is put back so neither change is observable.
func (svc *Service) commit(off int64, prev, updated *codec.Bike, station, count int) error {
	if err := svc.store.WriteRecord(off, updated); err != nil {
		return err
	}
	if err := svc.store.WriteCounter(station, count); err != nil {
		if rbErr := svc.store.WriteRecord(off, prev); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback of bike %s failed: %w", prev.Code, rbErr))
		}
		return err
	}
	if svc.fsync {
		return svc.store.Sync()
	}
	return nil
}

func (svc *Service) stamp(b *codec.Bike) {
	now := svc.clock.Now()
	b.Hour = int32(now.Hour())
	b.Minute = int32(now.Minute())
}

func (svc *Service) record(kind TransitionKind, b *codec.Bike, station int, client string) {
	if svc.recorder == nil {
		return
	}
	t := Transition{
		Kind:    kind,
		Bike:    b.Code,
		Client:  client,
		Station: station,
		Hour:    int(b.Hour),
		Minute:  int(b.Minute),
		At:      svc.clock.Now(),
	}
	if err := svc.recorder.Record(t); err != nil {
		// the transition is already committed to the data file
		log.Printf("rental: failed to record %s of bike %s: %v", kind, b.Code, err)
	}
}

func (svc *Service) validStation(station int) bool {
	return station >= 1 && station <= svc.Stations()
}

// validClient accepts codes that survive the fixed-width client field unchanged
func validClient(client string) bool {
	if client == "" || len(client) > codec.ClientWidth {
		return false
	}
	return strings.TrimRight(client, " ") == client
}

func toBike(b *codec.Bike) Bike {
	out := Bike{
		Code:   b.Code,
		Client: b.Client,
		Rented: b.Rented(),
		Hour:   int(b.Hour),
		Minute: int(b.Minute),
	}
	if !out.Rented {
		out.Station = int(b.Station) + 1
	}
	return out
}
