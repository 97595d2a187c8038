// Package commands parses the structured reminder command surface into a
// small tagged-variant grammar. Each command is matched by a strict
// whole-string pattern; malformed near-matches produce a UsageError carrying
// fixed guidance text instead of a partial parse.
package commands

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrNotACommand is returned by Parse when the text matches none of the
// command verbs and should be treated as free dialogue. Callers use
// errors.Is to distinguish this expected case from real errors.
var ErrNotACommand = errors.New("not a reminder command")

// UsageError is a recognized command verb with a malformed body. Guidance is
// the fixed text to send back to the user verbatim.
type UsageError struct {
	Guidance string
}

func (e *UsageError) Error() string { return "malformed command: " + e.Guidance }

// Command is one parsed reminder command.
type Command interface{ isCommand() }

// Handshake begins the structured-add handshake ("提醒功能").
type Handshake struct{}

// List requests the user's reminders ("查看提醒").
type List struct{}

// Add commits a reminder within an active handshake.
type Add struct {
	Content string
	DueAt   time.Time
	TimeStr string // as entered, for echo-back
}

// Delete removes the first reminder containing Keyword.
type Delete struct {
	Keyword string
}

// Modify rewrites the first reminder containing Keyword.
type Modify struct {
	Keyword string
	Content string
	DueAt   time.Time
	TimeStr string
}

func (Handshake) isCommand() {}
func (List) isCommand()      {}
func (Add) isCommand()       {}
func (Delete) isCommand()    {}
func (Modify) isCommand()    {}

// timeLayout is the only accepted time format in structured commands.
const timeLayout = "2006/01/02 15:04"

var (
	addPattern    = regexp.MustCompile(`^提醒内容：(.*?)\s+提醒时间：(\d{4}/\d{2}/\d{2}\s+\d{2}:\d{2})$`)
	modifyPattern = regexp.MustCompile(`^修改提醒\s+(\S+)\s+新提醒内容：(.*?)\s+新提醒时间：(\d{4}/\d{2}/\d{2}\s+\d{2}:\d{2})$`)
)

// Parser recognizes the structured reminder commands. The mention prefix is
// assumed to be already stripped by the orchestrator; Mention is only used to
// render guidance texts that tell the user what to type.
type Parser struct {
	// Mention is the assistant's mention form, e.g. "@小z".
	Mention string
	// Location is the timezone command times are parsed in. Nil means
	// time.Local.
	Location *time.Location
}

// Parse maps text to a Command. Returns ErrNotACommand for free dialogue and
// a *UsageError for a recognized verb with a malformed body.
func (p *Parser) Parse(text string) (Command, error) {
	text = strings.TrimSpace(text)

	switch {
	case text == "提醒功能":
		return Handshake{}, nil

	case text == "查看提醒":
		return List{}, nil

	case strings.HasPrefix(text, "删除提醒"):
		keyword := strings.TrimSpace(strings.TrimPrefix(text, "删除提醒"))
		if keyword == "" {
			return nil, &UsageError{Guidance: "⚠️ 请提供要删除提醒的关键字。"}
		}
		return Delete{Keyword: keyword}, nil

	case strings.HasPrefix(text, "修改提醒"):
		m := modifyPattern.FindStringSubmatch(text)
		if m == nil {
			return nil, &UsageError{Guidance: fmt.Sprintf(
				"⚠️ 格式错误！请使用:\n%s 修改提醒 <原提醒关键字> 新提醒内容：<新提醒事项> 新提醒时间：YYYY/MM/DD HH:MM",
				p.Mention)}
		}
		dueAt, err := p.parseTime(m[3])
		if err != nil {
			return nil, &UsageError{Guidance: "⚠️ 提醒时间格式错误，请使用 YYYY/MM/DD HH:MM 格式。"}
		}
		return Modify{
			Keyword: strings.TrimSpace(m[1]),
			Content: strings.TrimSpace(m[2]),
			DueAt:   dueAt,
			TimeStr: strings.TrimSpace(m[3]),
		}, nil

	case strings.HasPrefix(text, "提醒内容："):
		m := addPattern.FindStringSubmatch(text)
		if m == nil {
			return nil, &UsageError{Guidance: fmt.Sprintf(
				"⚠️ 格式错误！请严格按照以下格式输入：\n%s 提醒内容：<提醒事项> 提醒时间：YYYY/MM/DD HH:MM",
				p.Mention)}
		}
		dueAt, err := p.parseTime(m[2])
		if err != nil {
			return nil, &UsageError{Guidance: "⚠️ 提醒时间格式错误，请使用 YYYY/MM/DD HH:MM 格式。"}
		}
		return Add{
			Content: strings.TrimSpace(m[1]),
			DueAt:   dueAt,
			TimeStr: strings.TrimSpace(m[2]),
		}, nil
	}

	return nil, ErrNotACommand
}

// parseTime parses a command time string, normalizing interior whitespace.
func (p *Parser) parseTime(s string) (time.Time, error) {
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	fields := strings.Fields(s)
	return time.ParseInLocation(timeLayout, strings.Join(fields, " "), loc)
}
