package interaction

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/supportdesk/ticket-bot/internal/domain"
	"github.com/supportdesk/ticket-bot/internal/observability"
	"github.com/supportdesk/ticket-bot/internal/platform"
	"github.com/supportdesk/ticket-bot/internal/platform/platformtest"
	"github.com/supportdesk/ticket-bot/internal/repository/memory"
	"github.com/supportdesk/ticket-bot/internal/service"
	"github.com/supportdesk/ticket-bot/internal/transcript"
)

const (
	guildID     = "guild-1"
	supportRole = "111"
)

var (
	adminPerms = int64(discordgo.PermissionAdministrator)
	plainPerms = int64(discordgo.PermissionSendMessages)
)

type fakeSession struct {
	mu        sync.Mutex
	responses []*discordgo.InteractionResponse
	edits     []*discordgo.WebhookEdit
	sent      map[string][]*discordgo.MessageSend
	edited    []*discordgo.MessageEdit
	failSend  bool
}

func (s *fakeSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, resp)
	return nil
}

func (s *fakeSession) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edits = append(s.edits, edit)
	return &discordgo.Message{}, nil
}

func (s *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSend {
		return nil, errors.New("missing access")
	}
	if s.sent == nil {
		s.sent = map[string][]*discordgo.MessageSend{}
	}
	s.sent[channelID] = append(s.sent[channelID], data)
	return &discordgo.Message{ChannelID: channelID}, nil
}

func (s *fakeSession) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edited = append(s.edited, m)
	return &discordgo.Message{ID: m.ID}, nil
}

func (s *fakeSession) lastResponse(t *testing.T) *discordgo.InteractionResponse {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.responses) == 0 {
		t.Fatal("no interaction response")
	}
	return s.responses[len(s.responses)-1]
}

// lastEmbed returns the embed shown to the user, from the deferred edit if
// there was one, otherwise from the direct response.
func (s *fakeSession) lastEmbed(t *testing.T) *discordgo.MessageEmbed {
	t.Helper()
	s.mu.Lock()
	edits := len(s.edits)
	s.mu.Unlock()
	if edits > 0 {
		edit := s.edits[edits-1]
		if edit.Embeds == nil || len(*edit.Embeds) == 0 {
			t.Fatal("edit carries no embed")
		}
		return (*edit.Embeds)[0]
	}
	resp := s.lastResponse(t)
	if resp.Data == nil || len(resp.Data.Embeds) == 0 {
		t.Fatalf("response carries no embed: %+v", resp)
	}
	return resp.Data.Embeds[0]
}

type nopArchiver struct{}

func (nopArchiver) Archive(_ context.Context, in transcript.Input) (platform.File, error) {
	return platform.File{Name: "transcript-" + in.Ticket.ID + ".html", Data: []byte("<html></html>")}, nil
}

type routerEnv struct {
	router   *Router
	session  *fakeSession
	platform *platformtest.Fake
	tickets  *memory.TicketRepository
	settings *memory.SettingsRepository
	metrics  *observability.Metrics
}

func newRouterEnv(t *testing.T) *routerEnv {
	t.Helper()
	now := func() time.Time { return time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC) }

	tickets := memory.NewTicketRepository()
	settingsRepo := memory.NewSettingsRepository()
	gs := domain.NewGuildSettings(guildID, now())
	gs.SupportRoleIDs = []string{supportRole}
	settingsRepo.Put(*gs)

	fake := platformtest.New()
	audit := service.NewAuditService(service.AuditDependencies{AuditRepo: memory.NewAuditRepository(), Clock: now})
	settings := service.NewSettingsService(service.SettingsDependencies{SettingsRepo: settingsRepo, Audit: audit, Clock: now})
	ticketSvc := service.NewTicketService(service.TicketDependencies{
		TicketRepo: tickets,
		Settings:   settings,
		Audit:      audit,
		IDs:        service.NewIDGenerator(tickets, now),
		Platform:   fake,
		Archiver:   nopArchiver{},
		Logger:     zap.NewNop(),
		Clock:      now,
		Location:   time.UTC,
		PageSize:   100,
		BotUserID:  "bot-1",
	})

	session := &fakeSession{}
	metrics := observability.NewMetrics()
	router := NewRouter(RouterDependencies{
		Tickets:  ticketSvc,
		Settings: settings,
		Session:  session,
		Logger:   zap.NewNop(),
		Metrics:  metrics,
		Clock:    now,
	})
	return &routerEnv{router: router, session: session, platform: fake, tickets: tickets, settings: settingsRepo, metrics: metrics}
}

func member(userID string, perms int64, roles ...string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: userID, Username: userID}, Roles: roles, Permissions: perms}
}

func command(m *discordgo.Member, sub string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:      "i-" + sub,
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: guildID,
		Member:  m,
		Data: discordgo.ApplicationCommandInteractionData{
			Name: commandName,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{{
				Name:    sub,
				Type:    discordgo.ApplicationCommandOptionSubCommand,
				Options: opts,
			}},
		},
	}
}

func component(m *discordgo.Member, customID string, values ...string) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:        "i-" + customID,
		Type:      discordgo.InteractionMessageComponent,
		GuildID:   guildID,
		ChannelID: "panel-channel",
		Member:    m,
		Message:   &discordgo.Message{ID: "msg-1", Components: []discordgo.MessageComponent{discordgo.ActionsRow{}}},
		Data:      discordgo.MessageComponentInteractionData{CustomID: customID, Values: values},
	}
}

func modal(m *discordgo.Member, customID string, fields map[string]string, fromMessage bool) *discordgo.Interaction {
	rows := make([]discordgo.MessageComponent, 0, len(fields))
	for id, value := range fields {
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{CustomID: id, Value: value},
		}})
	}
	i := &discordgo.Interaction{
		ID:      "i-" + customID,
		Type:    discordgo.InteractionModalSubmit,
		GuildID: guildID,
		Member:  m,
		Data:    discordgo.ModalSubmitInteractionData{CustomID: customID, Components: rows},
	}
	if fromMessage {
		i.Message = &discordgo.Message{ID: "panel-msg"}
	}
	return i
}

func (e *routerEnv) createTicket(t *testing.T, userID string) *domain.Ticket {
	t.Helper()
	e.router.Dispatch(context.Background(), component(member(userID, plainPerms), TicketSelectID, string(domain.TicketTypeGeneral)))
	open, err := e.tickets.ListOpenForUser(context.Background(), guildID, userID)
	if err != nil || len(open) != 1 {
		t.Fatalf("expected one open ticket for %s, got %d (%v)", userID, len(open), err)
	}
	return &open[0]
}

func TestDispatch_SelectMenuCreatesTicket(t *testing.T) {
	env := newRouterEnv(t)
	ticket := env.createTicket(t, "user-1")

	first := env.session.responses[0]
	if first.Type != discordgo.InteractionResponseDeferredChannelMessageWithSource || first.Data.Flags != discordgo.MessageFlagsEphemeral {
		t.Errorf("expected ephemeral deferral, got %+v", first)
	}
	embed := env.session.lastEmbed(t)
	if embed.Title != "✅ Success" || embed.Description != "Your ticket has been created: <#"+ticket.ChannelID+">" {
		t.Errorf("reply embed = %+v", embed)
	}
}

func TestDispatch_DuplicateTicketShowsError(t *testing.T) {
	env := newRouterEnv(t)
	ticket := env.createTicket(t, "user-1")

	env.router.Dispatch(context.Background(), component(member("user-1", plainPerms), TicketSelectID, string(domain.TicketTypeOther)))

	embed := env.session.lastEmbed(t)
	if embed.Title != "❌ Error" || !strings.Contains(embed.Description, "<#"+ticket.ChannelID+">") {
		t.Errorf("duplicate reply = %+v", embed)
	}
	if env.tickets.Len() != 1 {
		t.Errorf("duplicate should not persist a ticket, have %d", env.tickets.Len())
	}
}

func TestDispatch_ClaimButtonRefreshesControls(t *testing.T) {
	env := newRouterEnv(t)
	ticket := env.createTicket(t, "user-1")
	ref := domain.ActionRef{Action: domain.ActionClaim, TicketID: ticket.ID}.Encode()

	env.router.Dispatch(context.Background(), component(member("staff-1", plainPerms, supportRole), ref))

	embed := env.session.lastEmbed(t)
	if embed.Title != "✅ Success" || !strings.Contains(embed.Description, ticket.ID) {
		t.Fatalf("claim reply = %+v", embed)
	}
	if len(env.session.edited) != 1 || env.session.edited[0].ID != "msg-1" {
		t.Fatalf("expected controls message to be edited, got %+v", env.session.edited)
	}
	rows := *env.session.edited[0].Components
	for _, row := range rows {
		for _, c := range row.(discordgo.ActionsRow).Components {
			if c.(discordgo.Button).CustomID == ref {
				t.Error("claim button should be gone once claimed")
			}
		}
	}

	stored, _ := env.tickets.GetByID(context.Background(), ticket.ID)
	if stored.ClaimedBy == nil || *stored.ClaimedBy != "staff-1" {
		t.Errorf("claimed_by = %v", stored.ClaimedBy)
	}
}

func TestDispatch_ForbiddenClaimReportsError(t *testing.T) {
	env := newRouterEnv(t)
	ticket := env.createTicket(t, "user-1")

	env.router.Dispatch(context.Background(), component(member("user-2", plainPerms),
		domain.ActionRef{Action: domain.ActionClaim, TicketID: ticket.ID}.Encode()))

	embed := env.session.lastEmbed(t)
	if embed.Title != "❌ Error" || embed.Description == "" {
		t.Errorf("forbidden reply = %+v", embed)
	}
	if len(env.session.edited) != 0 {
		t.Error("controls should not change on failure")
	}
	if got := env.metrics.Snapshot().Errors; len(got) == 0 {
		t.Error("failure should be counted")
	}
}

func TestDispatch_RenameFlow(t *testing.T) {
	env := newRouterEnv(t)
	ticket := env.createTicket(t, "user-1")
	staff := member("staff-1", plainPerms, supportRole)

	env.router.Dispatch(context.Background(), component(staff, domain.ActionRef{Action: domain.ActionRename, TicketID: ticket.ID}.Encode()))
	resp := env.session.lastResponse(t)
	if resp.Type != discordgo.InteractionResponseModal {
		t.Fatalf("expected modal, got %v", resp.Type)
	}
	wantModal := domain.ActionRef{Action: domain.ActionRenameSubmit, TicketID: ticket.ID}.Encode()
	if resp.Data.CustomID != wantModal {
		t.Errorf("modal id = %q", resp.Data.CustomID)
	}

	env.router.Dispatch(context.Background(), modal(staff, wantModal, map[string]string{channelNameInput: "  Billing Issue "}, false))
	embed := env.session.lastEmbed(t)
	if embed.Title != "✅ Success" || !strings.Contains(embed.Description, "billing-issue") {
		t.Errorf("rename reply = %+v", embed)
	}
	if env.platform.Renamed[ticket.ChannelID] != "billing-issue" {
		t.Errorf("renamed = %v", env.platform.Renamed)
	}
}

func TestDispatch_RejectsOutsideGuild(t *testing.T) {
	env := newRouterEnv(t)
	env.router.Dispatch(context.Background(), &discordgo.Interaction{
		Type: discordgo.InteractionMessageComponent,
		Data: discordgo.MessageComponentInteractionData{CustomID: TicketSelectID},
	})

	resp := env.session.lastResponse(t)
	if resp.Data.Flags != discordgo.MessageFlagsEphemeral || resp.Data.Embeds[0].Title != "❌ Error" {
		t.Errorf("response = %+v", resp)
	}
}

func TestDispatch_UnknownComponent(t *testing.T) {
	env := newRouterEnv(t)
	env.router.Dispatch(context.Background(), component(member("u", plainPerms), "something:else"))

	if got := env.session.lastEmbed(t).Description; got != "Unknown action." {
		t.Errorf("description = %q", got)
	}
}

func TestCommand_SendPanel(t *testing.T) {
	channelOpt := &discordgo.ApplicationCommandInteractionDataOption{
		Name:  "channel",
		Type:  discordgo.ApplicationCommandOptionChannel,
		Value: "555",
	}

	t.Run("admin", func(t *testing.T) {
		env := newRouterEnv(t)
		env.router.Dispatch(context.Background(), command(member("admin", adminPerms), subcommandSend, channelOpt))

		panels := env.session.sent["555"]
		if len(panels) != 1 {
			t.Fatalf("expected one panel, got %d", len(panels))
		}
		menu := panels[0].Components[0].(discordgo.ActionsRow).Components[0].(discordgo.SelectMenu)
		if menu.CustomID != TicketSelectID || len(menu.Options) != len(domain.TicketTypes) {
			t.Errorf("menu = %+v", menu)
		}
		if got := env.session.lastEmbed(t).Description; got != "Ticket panel sent to <#555>!" {
			t.Errorf("reply = %q", got)
		}
	})

	t.Run("not admin", func(t *testing.T) {
		env := newRouterEnv(t)
		env.router.Dispatch(context.Background(), command(member("user", plainPerms), subcommandSend, channelOpt))

		if len(env.session.sent) != 0 {
			t.Error("panel should not be sent")
		}
		if got := env.session.lastEmbed(t).Description; got != "You need administrator permissions to use this command." {
			t.Errorf("reply = %q", got)
		}
	})

	t.Run("send fails", func(t *testing.T) {
		env := newRouterEnv(t)
		env.session.failSend = true
		env.router.Dispatch(context.Background(), command(member("admin", adminPerms), subcommandSend, channelOpt))

		if got := env.session.lastEmbed(t).Description; got != "Failed to send ticket panel. Please check my permissions." {
			t.Errorf("reply = %q", got)
		}
	})
}

func TestCommand_SettingsPanel(t *testing.T) {
	env := newRouterEnv(t)
	env.router.Dispatch(context.Background(), command(member("admin", adminPerms), subcommandSettings))

	resp := env.session.lastResponse(t)
	if resp.Data.Flags != discordgo.MessageFlagsEphemeral || len(resp.Data.Components) != 3 {
		t.Fatalf("settings response = %+v", resp.Data)
	}
	embed := resp.Data.Embeds[0]
	if embed.Title != "⚙️ Ticket System Settings" || len(embed.Fields) != 10 {
		t.Errorf("settings embed = %+v", embed)
	}
	if embed.Fields[1].Value != "<@&"+supportRole+">" || embed.Fields[0].Value != "Not set" {
		t.Errorf("fields = %+v %+v", embed.Fields[0], embed.Fields[1])
	}
}

func TestCommand_Stats(t *testing.T) {
	env := newRouterEnv(t)
	ticket := env.createTicket(t, "user-1")
	env.router.Dispatch(context.Background(), component(member("staff-1", plainPerms, supportRole),
		domain.ActionRef{Action: domain.ActionClaim, TicketID: ticket.ID}.Encode()))

	i := command(member("someone", plainPerms), subcommandStats, &discordgo.ApplicationCommandInteractionDataOption{
		Name:  "user",
		Type:  discordgo.ApplicationCommandOptionUser,
		Value: "staff-1",
	})
	data := i.Data.(discordgo.ApplicationCommandInteractionData)
	data.Resolved = &discordgo.ApplicationCommandInteractionDataResolved{
		Users: map[string]*discordgo.User{"staff-1": {ID: "staff-1", Username: "Staffer"}},
	}
	i.Data = data
	env.router.Dispatch(context.Background(), i)

	resp := env.session.lastResponse(t)
	if resp.Data.Flags == discordgo.MessageFlagsEphemeral {
		t.Error("stats should be public")
	}
	embed := resp.Data.Embeds[0]
	if embed.Title != "📊 Ticket Statistics for Staffer" {
		t.Errorf("title = %q", embed.Title)
	}
	if embed.Fields[0].Value != "1" || embed.Fields[3].Value != "1" {
		t.Errorf("fields = %+v", embed.Fields)
	}
}

func TestSettings_ToggleUpdatesPanel(t *testing.T) {
	env := newRouterEnv(t)
	env.router.Dispatch(context.Background(), component(member("admin", adminPerms), settingsPrefix+keyToggleMultiple))

	resp := env.session.lastResponse(t)
	if resp.Type != discordgo.InteractionResponseUpdateMessage || resp.Data.Content != "✅ Multiple tickets enabled." {
		t.Fatalf("toggle response = %v %q", resp.Type, resp.Data.Content)
	}
	row := resp.Data.Components[2].(discordgo.ActionsRow)
	if b := row.Components[0].(discordgo.Button); b.Label != "Disable Multiple" || b.Style != discordgo.DangerButton {
		t.Errorf("toggle button = %+v", b)
	}
	gs, _ := env.settings.GetOrCreate(context.Background(), guildID, time.Now())
	if !gs.AllowMultipleTickets {
		t.Error("setting should be stored")
	}
}

func TestSettings_RequiresAdmin(t *testing.T) {
	env := newRouterEnv(t)
	env.router.Dispatch(context.Background(), component(member("user", plainPerms), settingsPrefix+keyPrefix))

	resp := env.session.lastResponse(t)
	if resp.Type == discordgo.InteractionResponseModal {
		t.Fatal("modal should not open for non-admins")
	}
	if resp.Data.Embeds[0].Title != "❌ Error" {
		t.Errorf("response = %+v", resp.Data)
	}
}

func TestSettings_ModalRoundTrip(t *testing.T) {
	env := newRouterEnv(t)
	adminMember := member("admin", adminPerms)

	env.router.Dispatch(context.Background(), component(adminMember, settingsPrefix+keyWorkingHours))
	resp := env.session.lastResponse(t)
	if resp.Type != discordgo.InteractionResponseModal || resp.Data.CustomID != "settings:working_hours:modal" {
		t.Fatalf("modal = %v %q", resp.Type, resp.Data.CustomID)
	}
	if len(resp.Data.Components) != 2 {
		t.Errorf("working hours modal should have two inputs, got %d", len(resp.Data.Components))
	}

	tests := []struct {
		name    string
		key     string
		fields  map[string]string
		content string
	}{
		{"prefix", keyPrefix, map[string]string{"prefix": "help"}, "✅ Ticket prefix set to `help`."},
		{"auto close", keyAutoClose, map[string]string{"hours": "48"}, "✅ Auto-close timer set to 48 hours."},
		{"auto close off", keyAutoClose, map[string]string{"hours": "0"}, "✅ Auto-close timer disabled."},
		{"hours", keyWorkingHours, map[string]string{"start_hour": "8", "end_hour": "20"}, "✅ Working hours set to 8:00 - 20:00."},
		{"category", keyCategory, map[string]string{"category_id": "222"}, "✅ Ticket category set to <#222>."},
		{"category cleared", keyCategory, map[string]string{"category_id": ""}, "✅ Ticket category removed."},
		{"roles", keySupportRoles, map[string]string{"role_ids": "111, 333"}, "✅ Support roles updated."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.router.Dispatch(context.Background(), modal(adminMember, settingsPrefix+tt.key+modalSuffix, tt.fields, true))
			resp := env.session.lastResponse(t)
			if resp.Type != discordgo.InteractionResponseUpdateMessage || resp.Data.Content != tt.content {
				t.Errorf("response = %v %q", resp.Type, resp.Data.Content)
			}
		})
	}

	gs, _ := env.settings.GetOrCreate(context.Background(), guildID, time.Now())
	if gs.TicketPrefix != "help" || gs.WorkingHours.Start != 8 || len(gs.SupportRoleIDs) != 2 || gs.TicketCategoryID != nil {
		t.Errorf("stored settings = %+v", gs)
	}
}

func TestSettings_InvalidSubmission(t *testing.T) {
	env := newRouterEnv(t)
	env.router.Dispatch(context.Background(), modal(member("admin", adminPerms), settingsPrefix+keyAutoClose+modalSuffix,
		map[string]string{"hours": "soon"}, true))

	resp := env.session.lastResponse(t)
	if resp.Type != discordgo.InteractionResponseChannelMessageWithSource || resp.Data.Flags != discordgo.MessageFlagsEphemeral {
		t.Fatalf("response = %+v", resp)
	}
	if got := resp.Data.Embeds[0].Description; got != "Invalid hours value. Must be a number >= 0." {
		t.Errorf("description = %q", got)
	}
}

func TestSettings_SubmitWithoutSourceMessage(t *testing.T) {
	env := newRouterEnv(t)
	env.router.Dispatch(context.Background(), modal(member("admin", adminPerms), settingsPrefix+keyPrefix+modalSuffix,
		map[string]string{"prefix": "sup"}, false))

	resp := env.session.lastResponse(t)
	if resp.Type != discordgo.InteractionResponseChannelMessageWithSource || resp.Data.Flags != discordgo.MessageFlagsEphemeral {
		t.Errorf("response = %+v", resp)
	}
}

func TestCommands_Definition(t *testing.T) {
	cmds := Commands()
	if len(cmds) != 1 || cmds[0].Name != "ticket" {
		t.Fatalf("commands = %+v", cmds)
	}
	var names []string
	for _, o := range cmds[0].Options {
		names = append(names, o.Name)
	}
	if strings.Join(names, ",") != "send,settings,stats" {
		t.Errorf("subcommands = %v", names)
	}
}
