// Package pseudonym maps student emails to stable pseudonymous identities.
//
// The digest is an unsalted sha256 so the same email resolves to the same
// id in every dataset and every run; the goal is consistent joins across
// staged tables, not secrecy against a determined attacker.
package pseudonym

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// UnknownIdentity is assigned to records with no usable email. It never
// receives a sequential label.
const UnknownIdentity = "anon_unknown"

type Identity struct {
	// ID is the sha256 hex digest of the normalized email, or the
	// normalized email itself when anonymization is off.
	ID string
	// Label is the masked display name ("Aluno 01", ...), assigned in
	// first-occurrence order. Empty when anonymization is off.
	Label string
}

// Resolver assigns identities for one transformation run. Label state is
// shared across every table built during the run, so a student keeps one
// label no matter how many datasets they appear in.
type Resolver struct {
	anonymize bool
	labels    map[string]string
	counter   int
}

func NewResolver(anonymize bool) *Resolver {
	return &Resolver{
		anonymize: anonymize,
		labels:    map[string]string{},
	}
}

// Resolve is deterministic and idempotent: equivalent raw inputs (modulo
// case and surrounding whitespace) always return identical identities
// within a run.
func (r *Resolver) Resolve(raw string) Identity {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return Identity{ID: UnknownIdentity}
	}

	if !r.anonymize {
		return Identity{ID: email}
	}

	sum := sha256.Sum256([]byte(email))
	id := hex.EncodeToString(sum[:])

	label, ok := r.labels[id]
	if !ok {
		r.counter++
		label = fmt.Sprintf("Aluno %02d", r.counter)
		r.labels[id] = label
	}
	return Identity{ID: id, Label: label}
}
