package planner

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// calendar datetimes accept ISO with either a space or a T separator
func parseEventTime(s string) (time.Time, error) {
	s = strings.Replace(strings.TrimSpace(s), " ", "T", 1)
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not a valid ISO datetime")
}

// CalendarLink validates the event fields and builds a Google Calendar
// prefill link the user can open to add the event themselves.
func CalendarLink(summary, startDatetime, endDatetime, location, description string) (string, error) {
	if strings.TrimSpace(summary) == "" {
		return "", fmt.Errorf("event summary is required")
	}
	start, err := parseEventTime(startDatetime)
	if err != nil {
		return "", fmt.Errorf("invalid start_datetime %q: use ISO format like 'YYYY-MM-DD HH:MM:SS'", startDatetime)
	}
	end := start.Add(time.Hour)
	if endDatetime != "" {
		end, err = parseEventTime(endDatetime)
		if err != nil {
			return "", fmt.Errorf("invalid end_datetime %q: use ISO format", endDatetime)
		}
		if end.Before(start) {
			return "", fmt.Errorf("end_datetime %q cannot be before start_datetime %q", endDatetime, startDatetime)
		}
	}

	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", summary)
	q.Set("dates", start.Format("20060102T150405")+"/"+end.Format("20060102T150405"))
	if location != "" {
		q.Set("location", location)
	}
	if description != "" {
		q.Set("details", description)
	}
	link := "https://calendar.google.com/calendar/render?" + q.Encode()

	details := []string{fmt.Sprintf("Event: %s", summary), fmt.Sprintf("Starts: %s", startDatetime)}
	if endDatetime != "" {
		details = append(details, fmt.Sprintf("Ends: %s", endDatetime))
	}
	if location != "" {
		details = append(details, fmt.Sprintf("Location: %s", location))
	}
	return fmt.Sprintf("Calendar event prepared:\n- %s\nAdd it here: %s", strings.Join(details, "\n- "), link), nil
}
