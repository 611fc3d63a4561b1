package provider

import (
	"context"
	"errors"
)

// ErrAuthentication means the provider rejected the API credential. The next
// scheduled pass retries, since credentials can be rotated externally.
var ErrAuthentication = errors.New("provider rejected credentials")

type Provider interface {
	// FindRecord returns the first record matching name and type in the zone,
	// or nil if no such record exists.
	FindRecord(ctx context.Context, zone, name, recordType string) (*Record, error)
	CreateRecord(ctx context.Context, zone string, record Record) error
	UpdateRecord(ctx context.Context, zone string, record Record) error
}

type Record struct {
	ID      string
	Name    string
	Type    string
	Content string
	TTL     int
	Proxied bool
}
