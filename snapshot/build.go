package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
)

// Build materializes state into a fresh immutable snapshot. The revision is a
// content hash and ignores BuiltAt, so identical content yields the same revision.
func Build(state model.PolicyState, now time.Time) (*model.PolicySnapshot, error) {
	snap := &model.PolicySnapshot{
		Catalog:       make(map[string]model.CatalogEntry, len(state.Catalog)),
		AccessRules:   make([]model.AccessRule, 0, len(state.AccessRules)),
		RevocationSet: make(map[string]struct{}, len(state.Revocations)),
		BuiltAt:       now.UTC(),
	}
	for name, entry := range state.Catalog {
		snap.Catalog[name] = entry.Clone()
	}
	for _, rule := range state.AccessRules {
		snap.AccessRules = append(snap.AccessRules, rule.Clone())
	}
	sort.Slice(snap.AccessRules, func(i, j int) bool { return snap.AccessRules[i].ID < snap.AccessRules[j].ID })

	for _, subject := range state.Revocations {
		if subject == "" {
			continue
		}
		snap.RevocationSet[subject] = struct{}{}
	}
	snap.Revocations = make([]string, 0, len(snap.RevocationSet))
	for subject := range snap.RevocationSet {
		snap.Revocations = append(snap.Revocations, subject)
	}
	sort.Strings(snap.Revocations)

	revision, err := Revision(snap)
	if err != nil {
		return nil, err
	}
	snap.Revision = revision
	return snap, nil
}

// Revision hashes the snapshot content.
func Revision(snap *model.PolicySnapshot) (string, error) {
	content, err := json.Marshal(struct {
		Catalog     map[string]model.CatalogEntry `json:"catalog"`
		AccessRules []model.AccessRule            `json:"access_rules"`
		Revocations []string                      `json:"revocations"`
	}{snap.Catalog, snap.AccessRules, snap.Revocations})
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot content: %w", err)
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]), nil
}

// Restore rebuilds the derived fields of a snapshot received over the wire.
func Restore(snap *model.PolicySnapshot) *model.PolicySnapshot {
	snap.RevocationSet = make(map[string]struct{}, len(snap.Revocations))
	for _, subject := range snap.Revocations {
		snap.RevocationSet[subject] = struct{}{}
	}
	if snap.Catalog == nil {
		snap.Catalog = map[string]model.CatalogEntry{}
	}
	return snap
}
