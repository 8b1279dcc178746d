// Package domain holds the arbitrage route and settlement types.
package domain

import (
	"fmt"

	"github.com/fd1az/flashpool/internal/asset"
)

// RouteKind distinguishes how many venues a round trip touches.
type RouteKind int

const (
	// CrossVenue sells the borrowed asset on one venue and buys it
	// back on another, capturing the price gap between them.
	CrossVenue RouteKind = iota

	// SameVenue round-trips through a single venue. The pool fee is
	// paid twice, so the trip loses by construction; it exercises the
	// full loan-and-settle path without needing a price gap.
	SameVenue
)

func (k RouteKind) String() string {
	if k == SameVenue {
		return "same-venue"
	}
	return "cross-venue"
}

// Route describes one flash-loan-funded round trip: borrow from
// LendVenue, sell on SellVenue, buy back on BuyVenue, repay.
type Route struct {
	Kind      RouteKind
	Borrow    *asset.Asset
	LendVenue string
	SellVenue string
	BuyVenue  string
}

// NewCrossVenueRoute borrows on the buy side and closes the loop there.
func NewCrossVenueRoute(borrow *asset.Asset, sellVenue, buyVenue string) Route {
	return Route{
		Kind:      CrossVenue,
		Borrow:    borrow,
		LendVenue: buyVenue,
		SellVenue: sellVenue,
		BuyVenue:  buyVenue,
	}
}

// NewSameVenueRoute runs both legs through a single venue.
func NewSameVenueRoute(borrow *asset.Asset, venue string) Route {
	return Route{
		Kind:      SameVenue,
		Borrow:    borrow,
		LendVenue: venue,
		SellVenue: venue,
		BuyVenue:  venue,
	}
}

func (r Route) String() string {
	if r.Kind == SameVenue {
		return fmt.Sprintf("%s round trip on %s", r.Borrow.Symbol(), r.SellVenue)
	}
	return fmt.Sprintf("%s %s -> %s", r.Borrow.Symbol(), r.SellVenue, r.BuyVenue)
}
