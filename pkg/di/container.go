// Package di provides dependency injection container
package di

import (
	"context"

	"github.com/ssargent/bicis/pkg/api"     //nolint:depguard
	"github.com/ssargent/bicis/pkg/journal" //nolint:depguard
	"github.com/ssargent/bicis/pkg/store"   //nolint:depguard
)

// StoreOpener opens or creates the data file at path
type StoreOpener func(path string, layout store.Layout) (*store.Store, error)

// JournalOpener opens the rental history journal in dir
type JournalOpener func(dir string) (*journal.Journal, error)

// ServeFunc runs the REST API until ctx is cancelled
type ServeFunc func(ctx context.Context, service api.RentalService, history api.History, config api.ServerConfig) error

// Container holds all the dependencies for the application
type Container struct {
	openStore   StoreOpener
	openJournal JournalOpener
	serve       ServeFunc
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		openStore:   store.Open,
		openJournal: journal.Open,
		serve:       api.StartServer,
	}
}

// OpenStore opens the data file
func (c *Container) OpenStore(path string, layout store.Layout) (*store.Store, error) {
	return c.openStore(path, layout)
}

// OpenJournal opens the history journal
func (c *Container) OpenJournal(dir string) (*journal.Journal, error) {
	return c.openJournal(dir)
}

// Serve runs the API server
func (c *Container) Serve(ctx context.Context, service api.RentalService, history api.History, config api.ServerConfig) error {
	return c.serve(ctx, service, history, config)
}

// SetStoreOpener allows overriding how the data file is opened (for testing)
func (c *Container) SetStoreOpener(open StoreOpener) {
	c.openStore = open
}

// SetJournalOpener allows overriding how the journal is opened (for testing)
func (c *Container) SetJournalOpener(open JournalOpener) {
	c.openJournal = open
}

// SetServeFunc allows overriding the API server (for testing)
func (c *Container) SetServeFunc(serve ServeFunc) {
	c.serve = serve
}
