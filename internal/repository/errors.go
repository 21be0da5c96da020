package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrProgramNotFound = errors.New("program not found")
	ErrReportNotFound  = errors.New("report not found")
	ErrDraftNotFound   = errors.New("checkout draft not found")
	ErrDuplicate       = errors.New("duplicate value")
	ErrInvalidInput    = errors.New("invalid input")
)

// translate maps driver errors onto the package sentinels. notFound is returned for
// gorm.ErrRecordNotFound.
func translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return ErrDuplicate
	}
	return err
}

// isUniqueViolation catches unique errors from dialects TranslateError does not cover.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// escapeLike escapes LIKE wildcards in user input. Queries use ESCAPE '\'.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
