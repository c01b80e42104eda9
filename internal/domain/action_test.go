package domain

import (
	"errors"
	"testing"
)

func TestActionRef_RoundTrip(t *testing.T) {
	ref := ActionRef{Action: ActionClaim, TicketID: "support:desk-1A2B3C4D"}

	parsed, err := ParseActionRef(ref.Encode())
	if err != nil {
		t.Fatalf("ParseActionRef failed: %v", err)
	}
	if parsed != ref {
		t.Errorf("expected %+v, got %+v", ref, parsed)
	}
}

func TestParseActionRef_Rejects(t *testing.T) {
	cases := []string{
		"",
		"ticket",
		"ticket:claim",
		"ticket:claim:",
		"settings:claim:ticket-1",
		"ticket:explode:ticket-1",
	}
	for _, c := range cases {
		if _, err := ParseActionRef(c); !errors.Is(err, ErrMalformedActionRef) {
			t.Errorf("%q: expected ErrMalformedActionRef, got %v", c, err)
		}
	}
}

func TestTicket_Consistent(t *testing.T) {
	ticket := &Ticket{Status: TicketStatusClosed}
	if ticket.Consistent() {
		t.Error("closed ticket without closedAt must be inconsistent")
	}

	claimer := "staff-1"
	ticket = &Ticket{Status: TicketStatusOpen, ClaimedBy: &claimer}
	if ticket.Consistent() {
		t.Error("claimed ticket without claimedAt must be inconsistent")
	}

	ticket = &Ticket{Status: TicketStatusOpen}
	if !ticket.Consistent() {
		t.Error("fresh open ticket must be consistent")
	}
}

func TestWorkingHours_Contains(t *testing.T) {
	hours := WorkingHours{Start: 9, End: 17}
	if !hours.Contains(9) || !hours.Contains(16) {
		t.Error("window start and last hour must be inside")
	}
	if hours.Contains(17) || hours.Contains(3) {
		t.Error("end hour and night hours must be outside")
	}
}
