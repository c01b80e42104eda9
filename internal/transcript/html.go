// Package transcript renders a closed ticket's channel history into a
// standalone HTML document.
package transcript

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/supportdesk/ticket-bot/internal/domain"
	"github.com/supportdesk/ticket-bot/internal/platform"
)

// Input is everything needed to render one transcript. Messages must already
// be in chronological order.
type Input struct {
	Channel  platform.Channel
	Ticket   domain.Ticket
	Messages []platform.Message
}

// Renderer produces transcript files. It is safe for concurrent use.
type Renderer struct {
	markdown goldmark.Markdown
	page     *template.Template
	location *time.Location
	now      func() time.Time
}

// NewRenderer builds a renderer formatting times in location.
func NewRenderer(location *time.Location, now func() time.Time) *Renderer {
	if location == nil {
		location = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Renderer{
		// Raw HTML inside messages is dropped by goldmark's default renderer.
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		page:     template.Must(template.New("transcript").Parse(pageTemplate)),
		location: location,
		now:      now,
	}
}

type messageView struct {
	Author      string
	Bot         bool
	Timestamp   string
	Body        template.HTML
	Embeds      []platform.Embed
	Attachments []string
}

type pageView struct {
	Title    string
	Channel  string
	TicketID string
	Type     string
	Messages []messageView
	Footer   string
}

// Archive renders in as transcript-{ticketId}-{unixMillis}.html.
func (r *Renderer) Archive(ctx context.Context, in Input) (platform.File, error) {
	if err := ctx.Err(); err != nil {
		return platform.File{}, err
	}

	view := pageView{
		Title:    "Transcript " + in.Ticket.ID,
		Channel:  in.Channel.Name,
		TicketID: in.Ticket.ID,
		Type:     in.Ticket.Type.DisplayName(),
		Footer:   Footer(in.Ticket, r.location),
		Messages: make([]messageView, 0, len(in.Messages)),
	}
	for _, msg := range in.Messages {
		body, err := r.renderMarkdown(msg.Content)
		if err != nil {
			return platform.File{}, fmt.Errorf("render message %s: %w", msg.ID, err)
		}
		view.Messages = append(view.Messages, messageView{
			Author:      msg.AuthorName,
			Bot:         msg.AuthorBot,
			Timestamp:   msg.CreatedAt.In(r.location).Format("2006-01-02 15:04"),
			Body:        body,
			Embeds:      msg.Embeds,
			Attachments: msg.Attachments,
		})
	}

	var buf bytes.Buffer
	if err := r.page.Execute(&buf, view); err != nil {
		return platform.File{}, fmt.Errorf("execute transcript template: %w", err)
	}
	return platform.File{
		Name:        FileName(in.Ticket.ID, r.now()),
		ContentType: "text/html; charset=utf-8",
		Data:        buf.Bytes(),
	}, nil
}

func (r *Renderer) renderMarkdown(content string) (template.HTML, error) {
	if content == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// FileName names the transcript attachment.
func FileName(ticketID string, at time.Time) string {
	return fmt.Sprintf("transcript-%s-%d.html", ticketID, at.UnixMilli())
}

// Footer is the closing line of every transcript.
func Footer(ticket domain.Ticket, location *time.Location) string {
	closed := "N/A"
	if ticket.ClosedAt != nil {
		closed = ticket.ClosedAt.In(location).Format("2006-01-02 15:04:05 MST")
	}
	return fmt.Sprintf("Ticket %s • Closed %s", ticket.ID, closed)
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body{background:#313338;color:#dbdee1;font-family:"gg sans","Helvetica Neue",Arial,sans-serif;margin:0;padding:24px}
header{border-bottom:1px solid #3f4147;margin-bottom:16px;padding-bottom:12px}
.msg{padding:8px 0}
.author{font-weight:600;color:#f2f3f5}
.bot{background:#5865f2;border-radius:3px;color:#fff;font-size:10px;margin-left:4px;padding:1px 4px}
.time{color:#949ba4;font-size:12px;margin-left:8px}
.embed{border-left:4px solid #5865f2;background:#2b2d31;border-radius:4px;margin:4px 0;padding:8px 12px;white-space:pre-wrap}
.attachment a{color:#00a8fc}
footer{border-top:1px solid #3f4147;color:#949ba4;font-size:12px;margin-top:16px;padding-top:12px}
</style>
</head>
<body>
<header><h1>#{{.Channel}}</h1><div>{{.TicketID}} · {{.Type}}</div></header>
{{range .Messages}}<div class="msg">
<div><span class="author">{{.Author}}</span>{{if .Bot}}<span class="bot">BOT</span>{{end}}<span class="time">{{.Timestamp}}</span></div>
<div class="content">{{.Body}}</div>
{{range .Embeds}}<div class="embed">{{if .Title}}<strong>{{.Title}}</strong>
{{end}}{{.Description}}{{range .Fields}}
<strong>{{.Name}}</strong>: {{.Value}}{{end}}</div>
{{end}}{{range .Attachments}}<div class="attachment"><a href="{{.}}">{{.}}</a></div>
{{end}}</div>
{{end}}<footer>{{.Footer}}</footer>
</body>
</html>
`
