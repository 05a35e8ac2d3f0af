// model/snapshot.go
package model

import "time"

// PolicyState is the mutable content of the policy store at one instant.
type PolicyState struct {
	Catalog     map[string]CatalogEntry `json:"catalog"`
	AccessRules []AccessRule            `json:"access_rules"`
	Revocations []string                `json:"revocations"`
}

// PolicySnapshot is an immutable, versioned materialization of PolicyState.
// Values are never mutated after publication; readers may share them freely.
type PolicySnapshot struct {
	Catalog       map[string]CatalogEntry `json:"catalog"`
	AccessRules   []AccessRule            `json:"access_rules"`
	RevocationSet map[string]struct{}     `json:"-"`
	Revocations   []string                `json:"revocations"`
	Revision      string                  `json:"revision"`
	BuiltAt       time.Time               `json:"built_at"`
}

// Revoked reports whether subject is in the revocation set.
func (s *PolicySnapshot) Revoked(subject string) bool {
	if s == nil || subject == "" {
		return false
	}
	_, ok := s.RevocationSet[subject]
	return ok
}

// Service looks up a catalog entry.
func (s *PolicySnapshot) Service(name string) (CatalogEntry, bool) {
	entry, ok := s.Catalog[name]
	return entry, ok
}
