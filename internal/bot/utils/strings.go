package utils

import (
	"fmt"
	"strings"
	"time"
)

// GetTimestampedSubtext formats a message with a Discord timestamp and prefix.
// The timestamp shows relative time (e.g., "2 minutes ago") using Discord's timestamp format.
func GetTimestampedSubtext(message string) string {
	if message != "" {
		return fmt.Sprintf("-# `%s` <t:%d:R>", message, time.Now().Unix())
	}
	return ""
}

// NormalizeString sanitizes text by replacing newlines with spaces and removing backticks
// to prevent Discord markdown formatting issues.
func NormalizeString(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "`", "")
}

// FormatDuration converts a duration to a long human-readable string such as
// "2 days, 3 hours, 1 minute". Durations under a minute are shown in seconds.
func FormatDuration(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 60 {
		return plural(max(seconds, 0), "second")
	}

	units := []struct {
		size int
		name string
	}{
		{size: 86400, name: "day"},
		{size: 3600, name: "hour"},
		{size: 60, name: "minute"},
	}

	parts := make([]string, 0, len(units))

	for _, unit := range units {
		if n := seconds / unit.size; n > 0 {
			parts = append(parts, plural(n, unit.name))
			seconds %= unit.size
		}
	}

	return strings.Join(parts, ", ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
