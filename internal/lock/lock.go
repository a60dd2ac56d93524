// Package lock defines the permission seam for prototype access control.
//
// A lock string is a semicolon-separated list of clauses, each pairing an
// access type with one or more lock-function calls:
//
//	spawn:all();edit:perm(Admin)
//
// Full lock evaluation belongs to an external engine. This package validates
// lock-string syntax, declares the Checker interface consumed by the CRUD
// gateway, and ships a small built-in checker covering the stock functions
// (all, true, false, none, perm) so the CLI and tests work without a real
// engine behind them.
package lock

import (
	"fmt"
	"regexp"
	"strings"
)

// Subject is the actor a lock is checked against.
type Subject interface {
	// HasPerm reports whether the subject holds the named permission.
	HasPerm(perm string) bool
}

// Checker evaluates a lock string for a subject and access type. fallback is
// returned when the lock string has no clause for the access type.
type Checker interface {
	Check(subject Subject, lockstring, access string, fallback bool) bool
}

var funcCallPattern = regexp.MustCompile(`^!?\s*\w+\(\s*[^()]*\s*\)$`)

// Validate checks lock-string syntax without evaluating anything. An empty
// string is valid (no locks).
func Validate(lockstring string) error {
	lockstring = strings.TrimSpace(lockstring)
	if lockstring == "" {
		return nil
	}
	for _, clause := range strings.Split(lockstring, ";") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		access, definition, ok := strings.Cut(clause, ":")
		if !ok {
			return fmt.Errorf("lock clause %q lacks an access type", clause)
		}
		access = strings.TrimSpace(access)
		if access == "" || strings.ContainsAny(access, "() ") {
			return fmt.Errorf("lock clause %q has an invalid access type", clause)
		}
		if err := validateDefinition(definition); err != nil {
			return fmt.Errorf("lock clause %q: %w", clause, err)
		}
	}
	return nil
}

func validateDefinition(definition string) error {
	definition = strings.TrimSpace(definition)
	if definition == "" {
		return fmt.Errorf("empty lock definition")
	}
	// split on boolean connectors, validate each function call
	parts := splitConnectors(definition)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if !funcCallPattern.MatchString(part) {
			return fmt.Errorf("malformed lock function %q", part)
		}
	}
	return nil
}

func splitConnectors(definition string) []string {
	fields := strings.Fields(definition)
	var parts []string
	var current []string
	for _, field := range fields {
		switch strings.ToLower(field) {
		case "and", "or":
			if len(current) > 0 {
				parts = append(parts, strings.Join(current, " "))
				current = nil
			}
		default:
			current = append(current, field)
		}
	}
	if len(current) > 0 {
		parts = append(parts, strings.Join(current, " "))
	}
	return parts
}

// BasicChecker evaluates the stock lock functions. Clauses with several
// functions joined by "and"/"or" are combined accordingly; unknown functions
// evaluate to false.
type BasicChecker struct{}

// Check implements Checker.
func (BasicChecker) Check(subject Subject, lockstring, access string, fallback bool) bool {
	lockstring = strings.TrimSpace(lockstring)
	if lockstring == "" {
		return fallback
	}
	for _, clause := range strings.Split(lockstring, ";") {
		clauseAccess, definition, ok := strings.Cut(clause, ":")
		if !ok {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(clauseAccess), access) {
			continue
		}
		return evalDefinition(subject, definition)
	}
	return fallback
}

func evalDefinition(subject Subject, definition string) bool {
	result := false
	connector := "or"
	for _, field := range strings.Fields(strings.TrimSpace(definition)) {
		lower := strings.ToLower(field)
		if lower == "and" || lower == "or" {
			connector = lower
			continue
		}
		value := evalFunc(subject, field)
		switch connector {
		case "and":
			result = result && value
		default:
			result = result || value
		}
	}
	return result
}

func evalFunc(subject Subject, call string) bool {
	negate := false
	call = strings.TrimSpace(call)
	if strings.HasPrefix(call, "!") {
		negate = true
		call = strings.TrimSpace(call[1:])
	}
	name, rest, ok := strings.Cut(call, "(")
	if !ok {
		return false
	}
	arg := strings.TrimSpace(strings.TrimSuffix(rest, ")"))
	var value bool
	switch strings.ToLower(name) {
	case "all", "true":
		value = true
	case "false", "none":
		value = false
	case "perm":
		value = subject != nil && subject.HasPerm(arg)
	default:
		value = false
	}
	if negate {
		return !value
	}
	return value
}

// Perms is a Subject backed by a flat permission list. Matching is
// case-insensitive.
type Perms []string

// HasPerm implements Subject.
func (p Perms) HasPerm(perm string) bool {
	for _, held := range p {
		if strings.EqualFold(held, perm) {
			return true
		}
	}
	return false
}
