// Package reminder implements scheduled reminders: natural-language time
// resolution, the per-user reminder store with its two confirmation flows,
// and the background delivery loop.
package reminder

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNoCorrection is returned by ResolveCorrection when the utterance carries
// no recognizable time. This is a normal outcome, not a failure — callers
// should use errors.Is and fall through to their other interpretations.
var ErrNoCorrection = errors.New("no time correction found")

// Resolver converts loosely-structured Chinese time phrases into concrete
// timestamps. All results are computed in Location.
type Resolver struct {
	// Location is the timezone used for date arithmetic. Nil means time.Local.
	Location *time.Location
}

// keywordTime maps a tomorrow-phrase to its fixed time of day. Checked in
// order; the first substring hit wins, so "明天上午" outranks "明天下午"
// outranks "明天晚上" when several appear in one message.
var keywordTimes = []struct {
	keyword string
	hour    int
}{
	{"明天上午", 9},
	{"明天下午", 15},
	{"明天晚上", 20},
}

// ResolveDefault produces a future timestamp for a reminder request:
// fixed keyword phrases first, then a general parse of the whole text
// (accepted only when strictly future), then "now + 1 hour" as the fallback.
func (r *Resolver) ResolveDefault(text string, now time.Time) time.Time {
	loc := r.loc()
	now = now.In(loc)

	for _, kt := range keywordTimes {
		if strings.Contains(text, kt.keyword) {
			tomorrow := now.AddDate(0, 0, 1)
			return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), kt.hour, 0, 0, 0, loc)
		}
	}

	if t, ok := r.parse(text, now); ok && t.After(now) {
		return t
	}

	return now.Add(time.Hour)
}

// clockPattern matches an explicit HH:MM anywhere in the text.
var clockPattern = regexp.MustCompile(`(\d{1,2}):(\d{2})`)

// ResolveCorrection interprets a follow-up utterance against a previously
// suggested timestamp. A full parse is tried first (accepted only when
// strictly future); otherwise an explicit HH:MM is combined with the base
// timestamp's date, rolling to the next day when that time has already
// passed. Returns ErrNoCorrection when neither succeeds.
func (r *Resolver) ResolveCorrection(text string, base, now time.Time) (time.Time, error) {
	loc := r.loc()
	now = now.In(loc)

	if t, ok := r.parse(text, now); ok && t.After(now) {
		return t, nil
	}

	m := clockPattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, ErrNoCorrection
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return time.Time{}, ErrNoCorrection
	}

	base = base.In(loc)
	corrected := time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, loc)
	if corrected.Before(now) {
		corrected = corrected.AddDate(0, 0, 1)
	}
	return corrected, nil
}

var (
	// explicitPattern matches "YYYY/MM/DD HH:MM" or "YYYY-MM-DD HH:MM".
	explicitPattern = regexp.MustCompile(`(\d{4})[/-](\d{1,2})[/-](\d{1,2})\s+(\d{1,2}):(\d{2})`)
	// relativePattern matches "N分钟后", "N小时后", "N天后".
	relativePattern = regexp.MustCompile(`(\d+)\s*(分钟|小时|天)后`)
	// timeOfDayPattern matches "H点", "H点半", "H点M分" or "HH:MM".
	timeOfDayPattern = regexp.MustCompile(`(\d{1,2})(?:[:：](\d{2})|点(半|(\d{1,2})分)?)`)
)

// parse attempts a general parse of a free-text time phrase. It covers the
// phrase family the assistant actually receives: explicit date+time strings,
// relative offsets, and day-word plus time-of-day combinations. The result
// is the literal interpretation; callers decide whether a past timestamp is
// acceptable.
func (r *Resolver) parse(text string, now time.Time) (time.Time, bool) {
	loc := r.loc()

	if m := explicitPattern.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		hour, _ := strconv.Atoi(m[4])
		minute, _ := strconv.Atoi(m[5])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 && hour <= 23 && minute <= 59 {
			return time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc), true
		}
		return time.Time{}, false
	}

	if m := relativePattern.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch m[2] {
		case "分钟":
			return now.Add(time.Duration(n) * time.Minute), true
		case "小时":
			return now.Add(time.Duration(n) * time.Hour), true
		case "天":
			return now.AddDate(0, 0, n), true
		}
	}

	dayOffset := 0
	switch {
	case strings.Contains(text, "后天"):
		dayOffset = 2
	case strings.Contains(text, "明天"):
		dayOffset = 1
	}

	m := timeOfDayPattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	switch {
	case m[2] != "": // HH:MM
		minute, _ = strconv.Atoi(m[2])
	case m[3] == "半": // H点半
		minute = 30
	case m[4] != "": // H点M分
		minute, _ = strconv.Atoi(m[4])
	}
	if hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	// Afternoon/evening markers shift a 12-hour clock value.
	if hour < 12 && (strings.Contains(text, "下午") || strings.Contains(text, "晚上")) {
		hour += 12
	}

	day := now.AddDate(0, 0, dayOffset)
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), true
}

func (r *Resolver) loc() *time.Location {
	if r.Location != nil {
		return r.Location
	}
	return time.Local
}
