// Package apperr defines the migration error taxonomy shared across layers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnterminatedSection marks a delimited section with no closing tag.
	// Recoverable: the tokenizer degrades the span to plain text, but the
	// condition is always surfaced as a warning, never silent.
	ErrUnterminatedSection = errors.New("unterminated section")

	// ErrAmbiguousClassification marks a block matching two marker rules with
	// different categories. Classification must be deterministic, so this is
	// fatal and aborts before any writes.
	ErrAmbiguousClassification = errors.New("ambiguous classification")

	// ErrContentLoss marks a verification byte-accounting mismatch beyond the
	// configured tolerance. Fatal; no unflagged partial output may remain.
	ErrContentLoss = errors.New("content loss suspected")

	// ErrUnresolvedRole marks a declared role with no decision-table entry.
	// Fatal; no default configuration is guessed.
	ErrUnresolvedRole = errors.New("unresolved role")
)

// AmbiguityError reports the conflicting rules for one block.
type AmbiguityError struct {
	BlockOrder int
	Rules      []string
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("block %d matches conflicting rules %v", e.BlockOrder, e.Rules)
}

func (e *AmbiguityError) Unwrap() error { return ErrAmbiguousClassification }

// ContentLossError reports the categories and block order ranges implicated
// in a verification shortfall.
type ContentLossError struct {
	Category    string
	FirstBlock  int
	LastBlock   int
	MissingByte int
}

func (e *ContentLossError) Error() string {
	return fmt.Sprintf("category %s (blocks %d-%d) is short %d bytes",
		e.Category, e.FirstBlock, e.LastBlock, e.MissingByte)
}

func (e *ContentLossError) Unwrap() error { return ErrContentLoss }

// RoleError reports a role the decision table cannot map.
type RoleError struct {
	Role string
}

func (e *RoleError) Error() string {
	return fmt.Sprintf("role %q has no decision-table entry", e.Role)
}

func (e *RoleError) Unwrap() error { return ErrUnresolvedRole }
