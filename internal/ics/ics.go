// Package ics renders follow-up reminders as iCalendar invites. The byte
// layout is a conformance contract: CRLF line endings, UTC basic-format
// timestamps and RFC 5545 text escaping, so any standard calendar client can
// import the result.
package ics

import (
	"fmt"
	"strings"
	"time"

	"github.com/followup-todo/todo-sync-backend/internal/domain"
)

const (
	prodID        = "-//Todo App//Follow-up Reminder//EN"
	uidDomain     = "todoapp.local"
	eventDuration = 15 * time.Minute
	dateLayout    = "20060102T150405Z"
)

// Comma, semicolon and backslash gain a leading backslash; a literal newline
// becomes the \n escape.
var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", `\,`,
	";", `\;`,
	"\n", `\n`,
)

// Invite renders the calendar event for a todo's follow-up: a 15-minute
// event starting at the follow-up time, with a display alarm 15 minutes
// before the start. now feeds both DTSTAMP and the unique event identifier.
func Invite(todo domain.Todo, followUp domain.FollowUp, now time.Time) []byte {
	start := followUp.DateTime.UTC()
	end := start.Add(eventDuration)
	uid := fmt.Sprintf("todo-%d@%s", now.UnixMilli(), uidDomain)

	description := "Todo: " + todo.Text
	if followUp.Notes != "" {
		description += "\n\nNotes: " + followUp.Notes
	}

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + prodID,
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"BEGIN:VEVENT",
		"UID:" + uid,
		"DTSTAMP:" + now.UTC().Format(dateLayout),
		"DTSTART:" + start.Format(dateLayout),
		"DTEND:" + end.Format(dateLayout),
		"SUMMARY:" + textEscaper.Replace(todo.Text),
		"DESCRIPTION:" + textEscaper.Replace(description),
		"STATUS:CONFIRMED",
		"SEQUENCE:0",
		"BEGIN:VALARM",
		"TRIGGER:-PT15M",
		"ACTION:DISPLAY",
		"DESCRIPTION:Reminder: " + textEscaper.Replace(todo.Text),
		"END:VALARM",
		"END:VEVENT",
		"END:VCALENDAR",
	}

	return []byte(strings.Join(lines, "\r\n"))
}

// Filename derives the attachment name from the todo text: the first 20
// characters with every non-alphanumeric replaced by '-', lowercased.
func Filename(text string) string {
	slug := text
	if len(slug) > 20 {
		slug = slug[:20]
	}
	var b strings.Builder
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('-')
		}
	}
	return "todo-reminder-" + b.String() + ".ics"
}
