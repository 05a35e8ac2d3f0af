package engine

import (
	"fmt"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
)

// matchingRules returns the IDs of every rule that matches the caller and
// covers service/tool. Rules are a union: one match is enough.
func matchingRules(rules []model.AccessRule, identity string, claims map[string]any, service, tool string) []string {
	var ids []string
	for _, rule := range rules {
		if !matchCaller(rule.Match, identity, claims) {
			continue
		}
		if !rule.Covers(service, tool) {
			continue
		}
		ids = append(ids, rule.ID)
	}
	return ids
}

// matchCaller ANDs the identity and every claim condition of a rule.
func matchCaller(m model.RuleMatch, identity string, claims map[string]any) bool {
	if m.Identity != "" && m.Identity != model.Wildcard && m.Identity != identity {
		return false
	}
	for key, want := range m.Claims {
		got, ok := claims[key]
		if !ok || !claimHas(got, want) {
			return false
		}
	}
	return true
}

// claimHas matches a scalar claim by equality and a list claim by membership.
func claimHas(got any, want string) bool {
	switch v := got.(type) {
	case string:
		return v == want
	case []string:
		for _, s := range v {
			if s == want {
				return true
			}
		}
		return false
	case []any:
		for _, s := range v {
			if fmt.Sprint(s) == want {
				return true
			}
		}
		return false
	case nil:
		return false
	default:
		return fmt.Sprint(v) == want
	}
}
