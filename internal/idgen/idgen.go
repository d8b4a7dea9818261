// Package idgen provides pluggable ID generation. Constructors across the
// builder (tree store, code sync, sessions, pages) accept a Generator so the
// id strategy is a startup-time decision and tests can use sequences.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces time-sortable RFC 9562 UUIDs.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Sequence returns a Generator producing prefix1, prefix2, ... It is safe
// for concurrent use and intended for tests and deterministic fixtures.
func Sequence(prefix string) Generator {
	var n atomic.Int64
	return func() string {
		return prefix + strconv.FormatInt(n.Add(1), 10)
	}
}

// Node is the default generator for component node ids.
var Node = Prefixed("cmp_", UUIDv7())

// Page is the default generator for page ids.
var Page = Prefixed("page_", UUIDv7())

// Session is the default generator for builder session ids.
var Session = Prefixed("sess_", UUIDv7())

// Valid reports whether s carries a parseable UUID after an optional
// "<prefix>_" segment.
func Valid(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			s = s[i+1:]
			break
		}
	}
	_, err := uuid.Parse(s)
	return err == nil
}
