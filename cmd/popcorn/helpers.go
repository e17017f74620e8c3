package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"popcorn/internal/fields"
)

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s %q", what, arg)
	}
	return id, nil
}

func parseField(arg string) (fields.Type, error) {
	field, ok := fields.ParseType(arg)
	if !ok {
		return "", fmt.Errorf("unknown field %q (one of: %s)", arg, strings.Join(fieldNames(), ", "))
	}
	return field, nil
}

func fieldNames() []string {
	types := fields.AllTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}

// parseValue decodes one proposed value from its CLI form, a JSON object
// such as {"genre":"drama"} or {"date":"1982-06-25","country":"US"}.
func parseValue(raw string) (fields.Value, error) {
	value, err := fields.DecodeValue(strings.TrimSpace(raw))
	if err != nil {
		return fields.Value{}, fmt.Errorf("invalid value %q: %w", raw, err)
	}
	return value, nil
}

// parseUpdateSpec splits an "id=value" update flag into its target ID and
// replacement value.
func parseUpdateSpec(raw string) (int64, fields.Value, error) {
	id, rest, found := strings.Cut(raw, "=")
	if !found {
		return 0, fields.Value{}, fmt.Errorf("invalid update %q, expected id={...}", raw)
	}
	target, err := parseID(id, "item id")
	if err != nil {
		return 0, fields.Value{}, err
	}
	value, err := parseValue(rest)
	if err != nil {
		return 0, fields.Value{}, err
	}
	return target, value, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
