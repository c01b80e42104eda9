package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/supportdesk/ticket-bot/internal/repository"
)

const maxIDAttempts = 5

// IDGenerator produces "{prefix}-{TOKEN}" ticket identifiers unique within a guild.
type IDGenerator struct {
	tickets  repository.TicketRepository
	newToken func() string
	now      func() time.Time
}

// NewIDGenerator builds a generator drawing tokens from random UUIDs.
func NewIDGenerator(tickets repository.TicketRepository, now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{tickets: tickets, newToken: uuidToken, now: now}
}

// Generate tries a few random tokens and falls back to the base-36 millisecond
// clock, which is accepted without an existence check.
func (g *IDGenerator) Generate(ctx context.Context, guildID, prefix string) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := prefix + "-" + g.newToken()
		exists, err := g.tickets.Exists(ctx, guildID, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return prefix + "-" + strings.ToUpper(strconv.FormatInt(g.now().UnixMilli(), 36)), nil
}

func uuidToken() string {
	first, _, _ := strings.Cut(uuid.NewString(), "-")
	return strings.ToUpper(first)
}
