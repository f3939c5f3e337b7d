package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errEmptyArg = errors.New("empty argument")

// ParseChannelArg extracts a single channel id from command arguments.
func ParseChannelArg(args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", errEmptyArg
	}
	return fields[0], nil
}

// ParseTrackArgs splits /track arguments into a channel id and an optional
// title. The title may contain spaces.
func ParseTrackArgs(args string) (id, title string, err error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return "", "", errEmptyArg
	}

	parts := strings.SplitN(args, " ", 2)
	id = parts[0]
	if len(parts) == 2 {
		title = strings.TrimSpace(parts[1])
	}
	return id, title, nil
}

// ParseIntArg parses a numeric argument and checks it against [min, max].
func ParseIntArg(args string, min, max int) (int, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, errEmptyArg
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("parse int: %w", err)
	}
	if n < min || n > max {
		return 0, fmt.Errorf("value %d out of range [%d, %d]", n, min, max)
	}
	return n, nil
}

// ParseToggleArg interprets an on/off argument.
func ParseToggleArg(args string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", args)
	}
}
