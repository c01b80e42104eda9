// Package platformtest provides an in-memory platform for tests.
package platformtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/supportdesk/ticket-bot/internal/platform"
)

// ErrInjected is returned by operations configured to fail.
var ErrInjected = errors.New("injected platform failure")

// Sent records one message delivered to a channel or user.
type Sent struct {
	Target string
	Msg    platform.OutgoingMessage
}

// Fake records every side effect and serves seeded message history.
type Fake struct {
	mu sync.Mutex

	nextID     int
	channels   map[string]*platform.Channel
	specs      map[string]platform.ChannelSpec
	overwrites map[string][]platform.Overwrite
	history    map[string][]platform.Message

	Sent       []Sent
	DMs        []Sent
	Deleted    []string
	Renamed    map[string]string
	FetchCalls int

	FailCreate bool
	FailDelete bool
	FailDM     bool
	FailFetch  bool
	FailSendTo map[string]bool
}

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		channels:   make(map[string]*platform.Channel),
		specs:      make(map[string]platform.ChannelSpec),
		overwrites: make(map[string][]platform.Overwrite),
		history:    make(map[string][]platform.Message),
		Renamed:    make(map[string]string),
		FailSendTo: make(map[string]bool),
	}
}

// AddChannel registers an existing channel such as a category or transcript channel.
func (f *Fake) AddChannel(ch platform.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := ch
	f.channels[ch.ID] = &c
}

// RemoveChannel simulates a channel deleted outside the bot.
func (f *Fake) RemoveChannel(channelID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.channels, channelID)
}

// SeedHistory sets the message history of a channel; order does not matter.
func (f *Fake) SeedHistory(channelID string, msgs []platform.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[channelID] = append([]platform.Message(nil), msgs...)
}

// Spec returns the spec a channel was provisioned with.
func (f *Fake) Spec(channelID string) (platform.ChannelSpec, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	spec, ok := f.specs[channelID]
	return spec, ok
}

// Overwrites returns the overwrites applied after provisioning, in order.
func (f *Fake) Overwrites(channelID string) []platform.Overwrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.Overwrite(nil), f.overwrites[channelID]...)
}

// SentTo returns messages posted to a channel, in order.
func (f *Fake) SentTo(channelID string) []platform.OutgoingMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []platform.OutgoingMessage
	for _, s := range f.Sent {
		if s.Target == channelID {
			out = append(out, s.Msg)
		}
	}
	return out
}

// ChannelCount returns how many channels currently exist.
func (f *Fake) ChannelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.channels)
}

func (f *Fake) CreateChannel(_ context.Context, spec platform.ChannelSpec) (*platform.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCreate {
		return nil, ErrInjected
	}
	f.nextID++
	ch := &platform.Channel{
		ID:      fmt.Sprintf("chan-%d", f.nextID),
		GuildID: spec.GuildID,
		Name:    spec.Name,
		Kind:    platform.ChannelText,
	}
	f.channels[ch.ID] = ch
	f.specs[ch.ID] = spec
	out := *ch
	return &out, nil
}

func (f *Fake) Channel(_ context.Context, channelID string) (*platform.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, platform.ErrChannelNotFound
	}
	out := *ch
	return &out, nil
}

func (f *Fake) DeleteChannel(_ context.Context, channelID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDelete {
		return ErrInjected
	}
	if _, ok := f.channels[channelID]; !ok {
		return platform.ErrChannelNotFound
	}
	delete(f.channels, channelID)
	f.Deleted = append(f.Deleted, channelID)
	return nil
}

func (f *Fake) RenameChannel(_ context.Context, channelID, name, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return platform.ErrChannelNotFound
	}
	ch.Name = name
	f.Renamed[channelID] = name
	return nil
}

func (f *Fake) SetOverwrite(_ context.Context, channelID string, overwrite platform.Overwrite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channelID]; !ok {
		return platform.ErrChannelNotFound
	}
	f.overwrites[channelID] = append(f.overwrites[channelID], overwrite)
	return nil
}

func (f *Fake) SendMessage(_ context.Context, channelID string, msg platform.OutgoingMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailSendTo[channelID] {
		return ErrInjected
	}
	if _, ok := f.channels[channelID]; !ok {
		return platform.ErrChannelNotFound
	}
	f.Sent = append(f.Sent, Sent{Target: channelID, Msg: msg})
	return nil
}

func (f *Fake) SendDirectMessage(_ context.Context, userID string, msg platform.OutgoingMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDM {
		return ErrInjected
	}
	f.DMs = append(f.DMs, Sent{Target: userID, Msg: msg})
	return nil
}

// FetchMessages pages through seeded history newest first, keyed by message
// creation time.
func (f *Fake) FetchMessages(_ context.Context, channelID, beforeID string, limit int) ([]platform.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FetchCalls++
	if f.FailFetch {
		return nil, ErrInjected
	}
	if _, ok := f.channels[channelID]; !ok {
		return nil, platform.ErrChannelNotFound
	}
	msgs := append([]platform.Message(nil), f.history[channelID]...)
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
	})
	start := 0
	if beforeID != "" {
		start = len(msgs)
		for i, m := range msgs {
			if m.ID == beforeID {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(msgs) {
		end = len(msgs)
	}
	return msgs[start:end], nil
}

var _ platform.Platform = (*Fake)(nil)
