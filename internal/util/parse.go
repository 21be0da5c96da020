package util

import (
	"strconv"
	"strings"
)

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return val
	}
	return defaultValue
}

// ParseBool parses a query flag such as "1", "true" or "yes"
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Pagination is a clamped limit/offset pair
type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit/offset query values, clamping limit to [1, maxLimit]
// and offset to >= 0.
func ParsePagination(limit, offset string, defaultLimit, maxLimit int) Pagination {
	l := ParseInt(limit, defaultLimit)
	if l < 1 {
		l = defaultLimit
	}
	if l > maxLimit {
		l = maxLimit
	}
	o := ParseInt(offset, 0)
	if o < 0 {
		o = 0
	}
	return Pagination{Limit: l, Offset: o}
}

// SplitList parses a comma-separated list, dropping blanks
func SplitList(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
