package api

import (
	"github.com/ssargent/bicis/pkg/journal"
	"github.com/ssargent/bicis/pkg/rental"
)

// APIResponse represents a standard API response. Outcome is set on rent and
// return responses, including refused ones.
type APIResponse struct {
	Success bool        `json:"success"`
	Outcome string      `json:"outcome,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RentRequest is the body of POST /rentals
type RentRequest struct {
	Station int    `json:"station"`
	Client  string `json:"client"`
}

// ReturnRequest is the body of POST /returns
type ReturnRequest struct {
	Station int    `json:"station"`
	Bike    string `json:"bike"`
	Client  string `json:"client"`
}

// StationStatus is one entry of GET /stations
type StationStatus struct {
	Station   int `json:"station"`
	Available int `json:"available"`
	Free      int `json:"free"`
	Capacity  int `json:"capacity"`
}

// ClientBikes is the response of GET /clients/{client}/bikes
type ClientBikes struct {
	Client string   `json:"client"`
	Bikes  []string `json:"bikes"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port    int
	Bind    string
	APIKey  string
	Verbose bool // log every request
}

// RentalService is the part of rental.Service the API needs
type RentalService interface {
	AvailableCounts() ([]int, error)
	RentedBikes(client string) ([]string, error)
	Bikes() ([]rental.Bike, error)
	RentBike(station int, client string) (rental.RentResult, error)
	ReturnBike(station int, bike, client string) (rental.ReturnResult, error)
	Check() (*rental.CheckReport, error)
	Capacity() int
}

// History is the read side of the rental journal
type History interface {
	List(limit int) ([]journal.Entry, error)
	ForBike(code string) ([]journal.Entry, error)
	ForClient(client string) ([]journal.Entry, error)
}
