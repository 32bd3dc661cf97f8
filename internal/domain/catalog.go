package domain

import (
	"strings"
	"time"
)

type (
	// EntryKind distinguishes delivery requests from flights in the catalog.
	EntryKind string
	// Availability is the reservation state of a catalog entry.
	Availability string
)

// List of catalog entry kinds
const (
	KindRequest EntryKind = "request"
	KindFlight  EntryKind = "flight"
)

// List of catalog availability states
const (
	AvailabilityAvailable Availability = "available"
	AvailabilityReserved  Availability = "reserved"
	AvailabilityMatched   Availability = "matched"
)

// Valid checks if the EntryKind is valid
func (k EntryKind) Valid() bool {
	return k == KindRequest || k == KindFlight
}

// Counterpart returns the kind an entry of kind k is matched against.
func (k EntryKind) Counterpart() EntryKind {
	if k == KindRequest {
		return KindFlight
	}
	return KindRequest
}

// Valid checks if the Availability is valid
func (a Availability) Valid() bool {
	switch a {
	case AvailabilityAvailable, AvailabilityReserved, AvailabilityMatched:
		return true
	}
	return false
}

// CatalogEntry is a delivery request or a flight's spare capacity.
// For a request WeightKg is the parcel weight and the window is the acceptable
// travel period; for a flight WeightKg is the spare capacity and WindowStart is
// the departure time.
type CatalogEntry struct {
	ID           string
	Kind         EntryKind
	OwnerID      string
	Origin       string
	Destination  string
	WindowStart  time.Time
	WindowEnd    time.Time
	WeightKg     float64
	Availability Availability
	// HeldBy is the match holding a reserved or matched entry.
	HeldBy    string
	Version   int64
	UpdatedAt time.Time
}

// SameRoute reports whether two entries travel between the same places.
func (e CatalogEntry) SameRoute(o CatalogEntry) bool {
	return strings.EqualFold(strings.TrimSpace(e.Origin), strings.TrimSpace(o.Origin)) &&
		strings.EqualFold(strings.TrimSpace(e.Destination), strings.TrimSpace(o.Destination))
}

// Reservation pins a catalog entry at the version it was observed with.
type Reservation struct {
	EntryID string
	Version int64
}
