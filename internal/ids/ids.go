package ids

import (
	"github.com/oklog/ulid/v2"
)

// New returns a lexicographically sortable identifier used for request ids
// and token ids. ulid.Make draws from a process-wide, goroutine-safe
// monotonic entropy source.
func New() string {
	return ulid.Make().String()
}

// Valid reports whether s parses as a ULID.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
