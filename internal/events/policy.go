// Package events holds the per-event registration policy: team size bounds
// and the pricing used when a payment order is created.
package events

import "github.com/SalmanNajah/devhost-2025/internal/models"

// Policy is the registration policy for one event. Amounts are whole INR.
type Policy struct {
	Min    int // minimum total members, leader included
	Max    int // maximum total members, leader included
	Amount int // base amount; per member when PerHead is set

	PerHead  bool // multiply Amount by member count
	FlatFee  int  // fixed surcharge added to the charge
	MarkupBP int  // markup in basis points, rounded up (250 = 2.5%)

	RequireDriveLink bool // finalize requires a non-empty drive link
}

// Charge computes the order amount for a team of the given size. Integer
// arithmetic only, so repeated computations for the same inputs always agree.
func (p Policy) Charge(members int) int {
	base := p.Amount
	if p.PerHead {
		base *= members
	}
	markup := 0
	if p.MarkupBP > 0 {
		markup = (base*p.MarkupBP + 9999) / 10000 // ceil
	}
	return base + markup + p.FlatFee
}

// FitsSize reports whether a team of the given size may pay/finalize.
func (p Policy) FitsSize(members int) bool {
	return members >= p.Min && members <= p.Max
}

// Policies maps event ids to their policy.
type Policies map[string]Policy

// Lookup returns the policy for an event id.
func (ps Policies) Lookup(eventID string) (Policy, bool) {
	p, ok := ps[eventID]
	return p, ok
}

// Defaults is the DevHost 2025 event table. Regular events charge a flat
// amount plus the gateway convenience fee; the hackathon charges per head
// with a 2.5% markup and requires a drive link before finalizing.
func Defaults() Policies {
	return Policies{
		"1": {Min: 4, Max: 4, Amount: 450, FlatFee: 10},
		"2": {Min: 1, Max: 2, Amount: 150, FlatFee: 3},
		"3": {Min: 2, Max: 4, Amount: 150, FlatFee: 3},
		"4": {Min: 1, Max: 2, Amount: 150, FlatFee: 3},
		"5": {Min: 1, Max: 2, Amount: 150, FlatFee: 3},
		models.HackathonEventID: {
			Min:              3,
			Max:              4,
			Amount:           250,
			PerHead:          true,
			MarkupBP:         250,
			RequireDriveLink: true,
		},
	}
}
