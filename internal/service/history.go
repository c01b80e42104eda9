package service

import (
	"context"
	"sort"

	"github.com/supportdesk/ticket-bot/internal/platform"
)

// DefaultHistoryPageSize is the largest page the platform returns per request.
const DefaultHistoryPageSize = 100

// collectHistory pages backwards through a channel until a short page, then
// returns the messages oldest first with duplicates removed by id.
func collectHistory(ctx context.Context, p platform.Platform, channelID string, pageSize int) ([]platform.Message, error) {
	if pageSize <= 0 {
		pageSize = DefaultHistoryPageSize
	}

	seen := make(map[string]struct{})
	var all []platform.Message
	before := ""
	for {
		page, err := p.FetchMessages(ctx, channelID, before, pageSize)
		if err != nil {
			return nil, err
		}
		added := 0
		for _, msg := range page {
			if _, dup := seen[msg.ID]; dup {
				continue
			}
			seen[msg.ID] = struct{}{}
			all = append(all, msg)
			added++
		}
		if len(page) < pageSize || added == 0 {
			break
		}
		before = page[len(page)-1].ID
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return all, nil
}
