// Package statement turns bank statement files into normalized transaction records.
package statement

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrUnrecognizedFormat = errors.New("unrecognized statement format")

// Record is one transaction as read from a statement file.
type Record struct {
	FITID       string
	Type        string
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	// DateFallback is set when the posted date was missing or unreadable
	// and Date holds the parse-time date instead.
	DateFallback bool
}

// Result is the outcome of parsing one file. Malformed blocks are counted, not returned.
type Result struct {
	Records          []Record
	SkippedMalformed int
}

func (r Result) DateFallbacks() int {
	n := 0
	for _, rec := range r.Records {
		if rec.DateFallback {
			n++
		}
	}
	return n
}

// Parser reads a statement file. Implementations must not touch any store.
type Parser interface {
	Parse(r io.Reader, now time.Time) (Result, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&OFXParser{})
	return r
}
