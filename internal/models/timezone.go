package models

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimezone is returned for names that are neither IANA zones nor offsets
var ErrInvalidTimezone = errors.New("invalid timezone")

var offsetPattern = regexp.MustCompile(`^(?:UTC|GMT)?([+-])(\d{1,2})(?::?(\d{2}))?$`)

// LoadLocation resolves an IANA zone name ("Europe/Berlin") or a fixed UTC
// offset ("+05:30", "-0800", "UTC+2"). An empty name is an error.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	switch strings.ToUpper(name) {
	case "":
		return nil, fmt.Errorf("%w: empty name", ErrInvalidTimezone)
	case "UTC", "Z", "GMT":
		return time.UTC, nil
	case "LOCAL":
		// the server zone says nothing about the user
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, name)
	}

	if m := offsetPattern.FindStringSubmatch(strings.ToUpper(name)); m != nil {
		hours, _ := strconv.Atoi(m[2])
		minutes := 0
		if m[3] != "" {
			minutes, _ = strconv.Atoi(m[3])
		}
		if hours > 14 || minutes > 59 {
			return nil, fmt.Errorf("%w: offset %q out of range", ErrInvalidTimezone, name)
		}
		seconds := hours*3600 + minutes*60
		if m[1] == "-" {
			seconds = -seconds
		}
		return time.FixedZone(formatOffset(seconds), seconds), nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, name)
	}
	return loc, nil
}

func formatOffset(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, seconds/3600, (seconds%3600)/60)
}
