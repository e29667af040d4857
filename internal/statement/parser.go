// Package statement turns raw bank-export payloads into normalized records.
// Parsers are pure transforms: no store access, no side effects.
package statement

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnsupportedVersion is returned for bank-export payloads whose
	// version marker is outside the supported range.
	ErrUnsupportedVersion = errors.New("statement: unsupported export version")
	// ErrUnknownDialect is returned when no parser recognizes the payload.
	ErrUnknownDialect = errors.New("statement: payload matches no known dialect")
)

// Record is one normalized transaction from a statement. AccountRef may be
// empty for sources that do not embed an account identifier; callers supply
// a fallback. Amount is positive for inflow, negative for outflow.
type Record struct {
	AccountRef  string
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	ExternalRef string
}

// Statement is the result of parsing one payload. Malformed individual rows
// are skipped, not fatal; their errors are collected in Skipped.
type Statement struct {
	Records []Record
	Skipped []error
}

// Parser is the strategy interface for statement formats.
type Parser interface {
	// Name returns the parser identifier (e.g. "ofx", "delimited:anz").
	Name() string
	// CanParse sniffs the payload header and the caller-supplied source
	// hint. Dialect selection never relies on file extension alone.
	CanParse(sourceHint string, header []byte) bool
	// Parse decodes the payload. Row-level problems are reported in
	// Statement.Skipped; structural problems fail the whole payload.
	Parse(ctx context.Context, r io.Reader) (*Statement, error)
}

// Registry dispatches payloads to the first parser that claims them.
type Registry struct {
	parsers []Parser
}

// NewRegistry returns a registry with all built-in parsers.
func NewRegistry() (*Registry, error) {
	delimited, err := loadDialects()
	if err != nil {
		return nil, err
	}
	parsers := []Parser{NewOFXParser()}
	parsers = append(parsers, delimited...)
	return &Registry{parsers: parsers}, nil
}

// Register adds a custom parser.
func (g *Registry) Register(p Parser) {
	g.parsers = append(g.parsers, p)
}

const sniffLen = 512

// Find returns the parser for a payload, sniffing its first bytes.
func (g *Registry) Find(sourceHint string, header []byte) (Parser, error) {
	if len(header) > sniffLen {
		header = header[:sniffLen]
	}
	for _, p := range g.parsers {
		if p.CanParse(sourceHint, header) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w (hint %q)", ErrUnknownDialect, sourceHint)
}

// Parse sniffs and decodes in one step for callers holding the whole payload.
func (g *Registry) Parse(ctx context.Context, sourceHint string, payload []byte) (*Statement, error) {
	p, err := g.Find(sourceHint, payload)
	if err != nil {
		return nil, err
	}
	return p.Parse(ctx, bytes.NewReader(payload))
}
