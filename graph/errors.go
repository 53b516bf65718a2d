package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a requested element, classification,
// tag, or finding does not exist.
var ErrNotFound = errors.New("not found")

// IntegrityError rejects an upsert batch that would leave dangling
// edges in the graph.
type IntegrityError struct {
	FilePath string
	Missing  []string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("upsert %s: edges reference unknown targets: %s",
		e.FilePath, strings.Join(e.Missing, ", "))
}

// IsIntegrity reports whether err is or wraps an IntegrityError.
func IsIntegrity(err error) bool {
	var e *IntegrityError
	return errors.As(err, &e)
}
