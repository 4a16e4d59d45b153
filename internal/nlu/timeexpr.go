package nlu

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// H[:MM][am|pm], optionally introduced by at/by/for. Groups: 1 prep,
	// 2 hour, 3 minute, 4 meridiem letter.
	clockRe = regexp.MustCompile(`(?:\b(at|by|for)\s+)?\b(\d{1,2})(?::(\d{2}))?(?:\s*([ap])\.?m\b\.?|\b)`)

	// N hour|minute|second[s], optionally introduced by in/for/after.
	// Groups: 1 amount, 2 unit.
	durationRe = regexp.MustCompile(`(?:\b(?:in|for|after)\s+)?\b(\d+)\s*(hour|minute|second)s?\b`)

	unitAheadRe = regexp.MustCompile(`^\s*(?:hour|minute|second)s?\b`)

	taskStopwordRe = regexp.MustCompile(`\b(?:remind\s+me|reminder|remind|todo|task|create|add|set)\b(?:\s+(?:a|an|the|new)\b)*`)
)

var unitSeconds = map[string]int{
	"hour":   3600,
	"minute": 60,
	"second": 1,
}

type clockMatch struct {
	hour, minute int
	start, end   int
}

// findClock returns the first clock time in text. A bare number only counts
// after at/by (or for, when bareFor is set), and never when a duration unit
// follows.
func findClock(text string, bareFor bool) (clockMatch, bool) {
	for _, loc := range clockRe.FindAllStringSubmatchIndex(text, -1) {
		prep := group(text, loc, 1)
		minStr := group(text, loc, 3)
		meridiem := group(text, loc, 4)

		if minStr == "" && meridiem == "" && (prep == "" || (prep == "for" && !bareFor)) {
			continue
		}
		if unitAheadRe.MatchString(text[loc[1]:]) {
			continue
		}

		hour, err := strconv.Atoi(group(text, loc, 2))
		if err != nil {
			continue
		}
		minute := 0
		if minStr != "" {
			if minute, err = strconv.Atoi(minStr); err != nil {
				continue
			}
		}
		if minute > 59 {
			continue
		}

		switch meridiem {
		case "p":
			if hour < 1 || hour > 12 {
				continue
			}
			if hour != 12 {
				hour += 12
			}
		case "a":
			if hour < 1 || hour > 12 {
				continue
			}
			if hour == 12 {
				hour = 0
			}
		default:
			if hour > 23 {
				continue
			}
		}

		return clockMatch{hour: hour, minute: minute, start: loc[0], end: loc[1]}, true
	}
	return clockMatch{}, false
}

// findDuration returns the first duration phrase in text, in seconds.
func findDuration(text string) (int, bool) {
	m := durationRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	unit := unitSeconds[m[2]]
	if n > math.MaxInt/unit {
		return 0, false
	}
	return n * unit, true
}

// ExtractTime returns hour and minute (24-hour clock) when a clock time is
// named and duration_seconds when a duration is named. Both may be set.
// "for 2" is not a clock time here: "pay for 2 tickets".
func ExtractTime(text string) Entities {
	return extractTime(text, false)
}

// ExtractAlarmTime is ExtractTime that also reads "for 7" as 07:00.
func ExtractAlarmTime(text string) Entities {
	return extractTime(text, true)
}

func extractTime(text string, bareFor bool) Entities {
	text = normalize(text)
	out := Entities{}

	if c, ok := findClock(text, bareFor); ok {
		out[KeyHour] = c.hour
		out[KeyMinute] = c.minute
	}
	if secs, ok := findDuration(text); ok {
		out[KeyDuration] = secs
	}
	return out
}

// ExtractTask returns the task description: command words first, then time
// phrases, are removed from the utterance.
func ExtractTask(text string) string {
	t := taskStopwordRe.ReplaceAllString(normalize(text), " ")

	for {
		c, ok := findClock(t, false)
		if !ok {
			break
		}
		t = t[:c.start] + " " + t[c.end:]
	}
	t = durationRe.ReplaceAllString(t, " ")

	return collapseSpaces(t)
}

func group(s string, loc []int, n int) string {
	if loc[2*n] < 0 {
		return ""
	}
	return strings.TrimSpace(s[loc[2*n]:loc[2*n+1]])
}
