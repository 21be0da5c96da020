package models

import (
	"database/sql/driver"
	"strings"
)

// StringArray stores a list of short strings in a single text column as "{a,b,c}".
// The encoding matches PostgreSQL's text[] literal so the column can be migrated to an
// array type later; SQLite stores it as plain text.
type StringArray []string

// Scan implements the sql.Scanner interface for reading from database
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	var str string
	switch v := value.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		*a = nil
		return nil
	}

	str = strings.TrimPrefix(str, "{")
	str = strings.TrimSuffix(str, "}")

	if str == "" {
		*a = []string{}
		return nil
	}

	// Values never contain commas; NormalizeTags strips them on the way in.
	*a = strings.Split(str, ",")
	return nil
}

// Value implements the driver.Valuer interface for writing to database
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	if len(a) == 0 {
		return "{}", nil
	}
	return "{" + strings.Join(a, ",") + "}", nil
}

// NormalizeTags lowercases, trims and de-duplicates tags, dropping empty ones and
// characters that would break the column encoding.
func NormalizeTags(tags []string) StringArray {
	seen := make(map[string]bool, len(tags))
	out := make(StringArray, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		t = strings.NewReplacer(",", "", "{", "", "}", "", "\"", "").Replace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
