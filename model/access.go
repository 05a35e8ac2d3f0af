// model/access.go
package model

import "strings"

// Wildcard matches every service or tool in an allow-list.
const Wildcard = "*"

// RuleMatch selects callers. All listed conditions must hold.
type RuleMatch struct {
	Identity string            `json:"identity,omitempty" mapstructure:"identity"`
	Claims   map[string]string `json:"claims,omitempty" mapstructure:"claims"`
}

// AccessRule grants a caller access to services and tools. Rules are additive.
type AccessRule struct {
	ID              string    `json:"id" mapstructure:"id"`
	Match           RuleMatch `json:"match" mapstructure:"match"`
	AllowedServices []string  `json:"allowed_services" mapstructure:"allowedServices"`
	AllowedTools    []string  `json:"allowed_tools" mapstructure:"allowedTools"`
}

// Clone returns a deep copy of the rule.
func (r AccessRule) Clone() AccessRule {
	out := AccessRule{
		ID:              r.ID,
		Match:           RuleMatch{Identity: r.Match.Identity},
		AllowedServices: append([]string(nil), r.AllowedServices...),
		AllowedTools:    append([]string(nil), r.AllowedTools...),
	}
	if len(r.Match.Claims) > 0 {
		out.Match.Claims = make(map[string]string, len(r.Match.Claims))
		for k, v := range r.Match.Claims {
			out.Match.Claims[k] = v
		}
	}
	return out
}

// Covers reports whether the rule's allow-lists include service/tool.
// AllowedTools entries may be bare tool names or qualified "service.tool".
func (r AccessRule) Covers(service, tool string) bool {
	if !containsOrWildcard(r.AllowedServices, service) {
		return false
	}
	for _, t := range r.AllowedTools {
		if t == Wildcard || t == tool || t == service+"."+tool {
			return true
		}
		if svc, rest, ok := strings.Cut(t, "."); ok && svc == service && rest == Wildcard {
			return true
		}
	}
	return false
}

func containsOrWildcard(list []string, v string) bool {
	for _, s := range list {
		if s == Wildcard || s == v {
			return true
		}
	}
	return false
}
