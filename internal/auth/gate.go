package auth

import (
	"context"
	"fmt"
	"strings"
)

// Requirement is the access level a route demands.
type Requirement int

const (
	Public Requirement = iota
	Protected
)

func (r Requirement) String() string {
	if r == Public {
		return "public"
	}
	return "protected"
}

// ParseRequirement accepts "public" or "protected".
func ParseRequirement(s string) (Requirement, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public":
		return Public, nil
	case "protected", "":
		return Protected, nil
	}
	return Protected, fmt.Errorf("%w: unknown requirement %q", ErrInvalidInput, s)
}

// Rule maps a method and path pattern to a requirement. An empty Method
// matches every method. In Pattern, "*" matches exactly one segment and a
// trailing "**" matches any remainder, including nothing.
type Rule struct {
	Method      string
	Pattern     string
	Requirement Requirement
}

// Gate decides, per route, whether an identity is required. The first
// matching rule wins; unmatched routes get the default requirement.
type Gate struct {
	rules []Rule
	def   Requirement
}

// NewGate builds a gate evaluated in rule order.
func NewGate(def Requirement, rules ...Rule) *Gate {
	return &Gate{rules: append([]Rule(nil), rules...), def: def}
}

// Requirement returns the requirement for method and path.
func (g *Gate) Requirement(method, path string) Requirement {
	for _, rule := range g.rules {
		if rule.Method != "" && !strings.EqualFold(rule.Method, method) {
			continue
		}
		if matchPattern(rule.Pattern, path) {
			return rule.Requirement
		}
	}
	return g.def
}

// Check returns ErrNotAuthenticated when the route is protected and ctx
// carries no identity.
func (g *Gate) Check(ctx context.Context, method, path string) error {
	if g.Requirement(method, path) == Public {
		return nil
	}
	if _, ok := IdentityFromContext(ctx); !ok {
		return ErrNotAuthenticated
	}
	return nil
}

func matchPattern(pattern, path string) bool {
	pat := splitPath(pattern)
	segs := splitPath(path)
	for i, p := range pat {
		if p == "**" && i == len(pat)-1 {
			return true
		}
		if i >= len(segs) {
			return false
		}
		if p != "*" && p != segs[i] {
			return false
		}
	}
	return len(pat) == len(segs)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
