package domain

import (
	"errors"
	"strings"
)

// TicketAction is the kind of a per-ticket control.
type TicketAction string

const (
	ActionClaim        TicketAction = "claim"
	ActionClose        TicketAction = "close"
	ActionLock         TicketAction = "lock"
	ActionUnlock       TicketAction = "unlock"
	ActionReopen       TicketAction = "reopen"
	ActionRename       TicketAction = "rename"
	ActionRenameSubmit TicketAction = "rename-submit"
)

var knownActions = map[TicketAction]struct{}{
	ActionClaim:        {},
	ActionClose:        {},
	ActionLock:         {},
	ActionUnlock:       {},
	ActionReopen:       {},
	ActionRename:       {},
	ActionRenameSubmit: {},
}

const actionNamespace = "ticket"

// ErrMalformedActionRef is returned for component ids that are not ticket actions.
var ErrMalformedActionRef = errors.New("malformed ticket action reference")

// ActionRef binds a control kind to the ticket it operates on.
type ActionRef struct {
	Action   TicketAction
	TicketID string
}

// Encode renders the reference as a component custom id.
func (r ActionRef) Encode() string {
	return actionNamespace + ":" + string(r.Action) + ":" + r.TicketID
}

// ParseActionRef decodes a custom id produced by Encode.
func ParseActionRef(customID string) (ActionRef, error) {
	parts := strings.SplitN(customID, ":", 3)
	if len(parts) != 3 || parts[0] != actionNamespace || parts[2] == "" {
		return ActionRef{}, ErrMalformedActionRef
	}
	action := TicketAction(parts[1])
	if _, ok := knownActions[action]; !ok {
		return ActionRef{}, ErrMalformedActionRef
	}
	return ActionRef{Action: action, TicketID: parts[2]}, nil
}
