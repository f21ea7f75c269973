// Package auth gates RegisterGraph admission: a graph name cannot be
// wired into a membrane until its presented token satisfies a Validator.
//
// It intentionally avoids policy decisions and storage concerns beyond the
// comparison itself.
package auth

import (
	"crypto/subtle"
	"errors"
)

var ErrGraphAdmissionDenied = errors.New("auth: graph admission denied")

// Validator validates a token presented when admitting graph into a
// membrane (membrane.Options.GraphAdmission, membrane.RegisterGraph).
type Validator interface {
	ValidateGraphAdmission(graph string, token string) error
}

// StaticToken admits every graph with the same shared token. Intended only
// for development and proofs of concept; real deployments should prefer
// GraphTokens so a leaked token cannot admit graphs it was never scoped to.
type StaticToken struct {
	Token string
}

func (s StaticToken) ValidateGraphAdmission(_ string, token string) error {
	if s.Token == "" {
		return ErrGraphAdmissionDenied
	}
	if subtle.ConstantTimeCompare([]byte(s.Token), []byte(token)) != 1 {
		return ErrGraphAdmissionDenied
	}
	return nil
}

// GraphTokens validates each graph against its own token: a graph whose
// name has no entry (or whose entry is empty) is denied, so a token issued
// for one graph never admits another.
type GraphTokens map[string]string

func (g GraphTokens) ValidateGraphAdmission(graph string, token string) error {
	want, ok := g[graph]
	if !ok || want == "" {
		return ErrGraphAdmissionDenied
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(token)) != 1 {
		return ErrGraphAdmissionDenied
	}
	return nil
}

// FuncValidator adapts a function into a Validator.
type FuncValidator func(graph string, token string) error

func (f FuncValidator) ValidateGraphAdmission(graph string, token string) error {
	return f(graph, token)
}
