package sqlgate

import (
	"strconv"
	"strings"
)

// DangerMessage is reported when a statement contains a deny-listed keyword.
const DangerMessage = "Dangerous operations not allowed"

// deniedKeywords are rejected anywhere in the uppercased statement text.
// The match is a plain substring test, so it also fires inside identifiers
// and string literals (CREATED_AT, 'EXECUTIVE').
var deniedKeywords = []string{"DROP", "CREATE", "ALTER", "TRUNCATE", "EXEC", "EXECUTE"}

// Policy selects which statement kinds the gate admits.
type Policy struct {
	name    string
	allowed []string
}

var (
	// Permissive admits SELECT, INSERT, UPDATE and DELETE.
	Permissive = Policy{name: "permissive", allowed: []string{"SELECT", "INSERT", "UPDATE", "DELETE"}}
	// ReadOnly admits SELECT only.
	ReadOnly = Policy{name: "readonly", allowed: []string{"SELECT"}}
)

// PolicyFor returns ReadOnly when readOnly is set, Permissive otherwise.
func PolicyFor(readOnly bool) Policy {
	if readOnly {
		return ReadOnly
	}
	return Permissive
}

// String returns the policy name.
func (p Policy) String() string {
	return p.name
}

// Allows reports whether statements of the given kind (e.g. "INSERT") pass
// the allow-list.
func (p Policy) Allows(kind string) bool {
	kind = strings.ToUpper(kind)
	for _, k := range p.allowed {
		if k == kind {
			return true
		}
	}
	return false
}

// RejectionError is returned by Validate for statements the policy refuses.
type RejectionError struct {
	Message string
}

func (e *RejectionError) Error() string {
	return e.Message
}

// Validate runs the allow-list and deny-list checks against query.
func (p Policy) Validate(query string) error {
	upper := normalize(query)

	allowed := false
	for _, kind := range p.allowed {
		if strings.HasPrefix(upper, kind) {
			allowed = true
			break
		}
	}
	if !allowed {
		return &RejectionError{Message: "Only " + strings.Join(p.allowed, ", ") + " queries are allowed"}
	}

	for _, kw := range deniedKeywords {
		if strings.Contains(upper, kw) {
			return &RejectionError{Message: DangerMessage}
		}
	}
	return nil
}

// IsSelect reports whether query starts with SELECT.
func IsSelect(query string) bool {
	return strings.HasPrefix(normalize(query), "SELECT")
}

// ApplyLimit appends " LIMIT n" to a SELECT that has no LIMIT yet.
// Trailing whitespace and statement terminators are stripped first.
// Other statements, statements already mentioning LIMIT, and limit <= 0
// return query unchanged.
func ApplyLimit(query string, limit int) string {
	if limit <= 0 || !IsSelect(query) || strings.Contains(normalize(query), "LIMIT") {
		return query
	}
	return strings.TrimRight(query, "; \t\r\n") + " LIMIT " + strconv.Itoa(limit)
}

func normalize(query string) string {
	return strings.ToUpper(strings.TrimSpace(query))
}
