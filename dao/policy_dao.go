// dao/policy_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/db"
	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	logger "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/logging"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
	pdp_neo4j "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model/neo4j"
)

// PolicyDAO persists catalog entries, access rules and revocations in Neo4j.
type PolicyDAO struct {
	Driver neo4j.DriverWithContext
}

func NewPolicyDAO(ctx context.Context, driver neo4j.DriverWithContext) (*PolicyDAO, error) {
	dao := &PolicyDAO{Driver: driver}
	if err := dao.EnsureUniqueConstraints(ctx); err != nil {
		return nil, err
	}
	return dao, nil
}

// EnsureUniqueConstraints creates the key constraints of every policy label.
func (dao *PolicyDAO) EnsureUniqueConstraints(ctx context.Context) error {
	logger.Info("Ensuring unique constraints on policy nodes")
	constraints := []string{
		`CREATE CONSTRAINT unique_service_name IF NOT EXISTS
		 FOR (s:` + pdp_neo4j.LabelService + `) REQUIRE s.` + pdp_neo4j.AttrName + ` IS UNIQUE`,
		`CREATE CONSTRAINT unique_access_rule_id IF NOT EXISTS
		 FOR (r:` + pdp_neo4j.LabelAccessRule + `) REQUIRE r.` + pdp_neo4j.AttrID + ` IS UNIQUE`,
		`CREATE CONSTRAINT unique_revocation_subject IF NOT EXISTS
		 FOR (v:` + pdp_neo4j.LabelRevocation + `) REQUIRE v.` + pdp_neo4j.AttrSubject + ` IS UNIQUE`,
	}
	_, err := db.ExecuteWrite(ctx, dao.Driver, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, q := range constraints {
			if _, err := tx.Run(ctx, q, nil); err != nil {
				return nil, fmt.Errorf("failed to create unique constraint: %w", err)
			}
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to ensure unique constraints", zap.Error(err))
		return err
	}
	return nil
}

// Load reads the complete policy state.
func (dao *PolicyDAO) Load(ctx context.Context) (model.PolicyState, error) {
	start := time.Now()
	result, err := db.ExecuteRead(ctx, dao.Driver, func(tx neo4j.ManagedTransaction) (any, error) {
		state := model.PolicyState{Catalog: make(map[string]model.CatalogEntry)}

		services, err := collectNodes(ctx, tx, `MATCH (s:`+pdp_neo4j.LabelService+`) RETURN s`)
		if err != nil {
			return nil, err
		}
		for _, node := range services {
			entry, err := mapNodeToService(node.Props)
			if err != nil {
				return nil, err
			}
			state.Catalog[entry.ServiceName] = entry
		}

		rules, err := collectNodes(ctx, tx, `MATCH (r:`+pdp_neo4j.LabelAccessRule+`) RETURN r`)
		if err != nil {
			return nil, err
		}
		for _, node := range rules {
			rule, err := mapNodeToRule(node.Props)
			if err != nil {
				return nil, err
			}
			state.AccessRules = append(state.AccessRules, rule)
		}

		revoked, err := collectNodes(ctx, tx, `MATCH (v:`+pdp_neo4j.LabelRevocation+`) RETURN v`)
		if err != nil {
			return nil, err
		}
		for _, node := range revoked {
			if subject, ok := node.Props[pdp_neo4j.AttrSubject].(string); ok {
				state.Revocations = append(state.Revocations, subject)
			}
		}
		return state, nil
	})
	if err != nil {
		logger.Error("Failed to load policy state",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return model.PolicyState{}, fmt.Errorf("%w: %v", gw_errors.ErrDatabaseOperation, err)
	}

	state := result.(model.PolicyState)
	logger.Debug("Policy state loaded",
		zap.Int("services", len(state.Catalog)),
		zap.Int("rules", len(state.AccessRules)),
		zap.Int("revocations", len(state.Revocations)),
		zap.Duration("duration", time.Since(start)))
	return state, nil
}

func collectNodes(ctx context.Context, tx neo4j.ManagedTransaction, query string) ([]neo4j.Node, error) {
	res, err := tx.Run(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, err
	}
	nodes := make([]neo4j.Node, 0, len(records))
	for _, record := range records {
		node, ok := record.Values[0].(neo4j.Node)
		if !ok {
			return nil, fmt.Errorf("unexpected record value %T", record.Values[0])
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// PutService creates or replaces a catalog entry.
func (dao *PolicyDAO) PutService(ctx context.Context, entry model.CatalogEntry) error {
	props, err := serviceProps(entry)
	if err != nil {
		return fmt.Errorf("%w: %v", gw_errors.ErrInvalidPolicyData, err)
	}
	query := `
		MERGE (s:` + pdp_neo4j.LabelService + ` {` + pdp_neo4j.AttrName + `: $name})
		SET s = $props
	`
	err = dao.write(ctx, query, map[string]any{"name": entry.ServiceName, "props": props})
	if err != nil {
		logger.Error("Failed to save service", zap.String("service", entry.ServiceName), zap.Error(err))
		return err
	}
	logger.Info("Service saved", zap.String("service", entry.ServiceName))
	return nil
}

func (dao *PolicyDAO) DeleteService(ctx context.Context, name string) error {
	query := `
		MATCH (s:` + pdp_neo4j.LabelService + ` {` + pdp_neo4j.AttrName + `: $name})
		DETACH DELETE s
		RETURN count(s) AS deleted
	`
	return dao.delete(ctx, query, map[string]any{"name": name}, gw_errors.ErrServiceNotFound)
}

// PutRule creates or replaces an access rule.
func (dao *PolicyDAO) PutRule(ctx context.Context, rule model.AccessRule) error {
	props, err := ruleProps(rule)
	if err != nil {
		return fmt.Errorf("%w: %v", gw_errors.ErrInvalidPolicyData, err)
	}
	query := `
		MERGE (r:` + pdp_neo4j.LabelAccessRule + ` {` + pdp_neo4j.AttrID + `: $id})
		SET r = $props
	`
	if err := dao.write(ctx, query, map[string]any{"id": rule.ID, "props": props}); err != nil {
		logger.Error("Failed to save access rule", zap.String("ruleID", rule.ID), zap.Error(err))
		return err
	}
	logger.Info("Access rule saved", zap.String("ruleID", rule.ID))
	return nil
}

func (dao *PolicyDAO) DeleteRule(ctx context.Context, id string) error {
	query := `
		MATCH (r:` + pdp_neo4j.LabelAccessRule + ` {` + pdp_neo4j.AttrID + `: $id})
		DETACH DELETE r
		RETURN count(r) AS deleted
	`
	return dao.delete(ctx, query, map[string]any{"id": id}, gw_errors.ErrRuleNotFound)
}

func (dao *PolicyDAO) AddRevocation(ctx context.Context, subject string) error {
	query := `
		MERGE (v:` + pdp_neo4j.LabelRevocation + ` {` + pdp_neo4j.AttrSubject + `: $subject})
		SET v.` + pdp_neo4j.AttrUpdatedAt + ` = $now
	`
	return dao.write(ctx, query, map[string]any{"subject": subject, "now": time.Now().UTC().Format(time.RFC3339)})
}

func (dao *PolicyDAO) RemoveRevocation(ctx context.Context, subject string) error {
	query := `
		MATCH (v:` + pdp_neo4j.LabelRevocation + ` {` + pdp_neo4j.AttrSubject + `: $subject})
		DELETE v
	`
	return dao.write(ctx, query, map[string]any{"subject": subject})
}

func (dao *PolicyDAO) write(ctx context.Context, query string, params map[string]any) error {
	_, err := db.ExecuteWrite(ctx, dao.Driver, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", gw_errors.ErrDatabaseOperation, err)
	}
	return nil
}

func (dao *PolicyDAO) delete(ctx context.Context, query string, params map[string]any, notFound error) error {
	result, err := db.ExecuteWrite(ctx, dao.Driver, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		deleted, _ := record.Get("deleted")
		return deleted, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", gw_errors.ErrDatabaseOperation, err)
	}
	if n, _ := result.(int64); n == 0 {
		return notFound
	}
	logger.Info("Policy node deleted", zap.Any("key", params))
	return nil
}

// Nested maps are stored as JSON strings since Neo4j properties are flat.
func serviceProps(entry model.CatalogEntry) (map[string]any, error) {
	tools, err := json.Marshal(entry.Tools)
	if err != nil {
		return nil, err
	}
	approvers, err := json.Marshal(entry.Approvers)
	if err != nil {
		return nil, err
	}
	classification, err := json.Marshal(entry.Classification)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		pdp_neo4j.AttrName:           entry.ServiceName,
		pdp_neo4j.AttrEnabled:        entry.Enabled,
		pdp_neo4j.AttrSuspended:      entry.Suspended,
		pdp_neo4j.AttrTools:          string(tools),
		pdp_neo4j.AttrApprovers:      string(approvers),
		pdp_neo4j.AttrClassification: string(classification),
		pdp_neo4j.AttrUpdatedAt:      time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func mapNodeToService(props map[string]any) (model.CatalogEntry, error) {
	var entry model.CatalogEntry
	name, ok := props[pdp_neo4j.AttrName].(string)
	if !ok || name == "" {
		return entry, fmt.Errorf("failed to assert type for service name: %v", props[pdp_neo4j.AttrName])
	}
	entry.ServiceName = name
	entry.Enabled, _ = props[pdp_neo4j.AttrEnabled].(bool)
	entry.Suspended, _ = props[pdp_neo4j.AttrSuspended].(bool)

	if err := unmarshalProp(props, pdp_neo4j.AttrTools, &entry.Tools); err != nil {
		return entry, err
	}
	if err := unmarshalProp(props, pdp_neo4j.AttrApprovers, &entry.Approvers); err != nil {
		return entry, err
	}
	if err := unmarshalProp(props, pdp_neo4j.AttrClassification, &entry.Classification); err != nil {
		return entry, err
	}
	if entry.Tools == nil {
		entry.Tools = map[string]model.Tag{}
	}
	return entry, nil
}

func ruleProps(rule model.AccessRule) (map[string]any, error) {
	claims, err := json.Marshal(rule.Match.Claims)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		pdp_neo4j.AttrID:            rule.ID,
		pdp_neo4j.AttrMatchIdentity: rule.Match.Identity,
		pdp_neo4j.AttrMatchClaims:   string(claims),
		pdp_neo4j.AttrServices:      rule.AllowedServices,
		pdp_neo4j.AttrAllowedTools:  rule.AllowedTools,
		pdp_neo4j.AttrUpdatedAt:     time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func mapNodeToRule(props map[string]any) (model.AccessRule, error) {
	var rule model.AccessRule
	id, ok := props[pdp_neo4j.AttrID].(string)
	if !ok || id == "" {
		return rule, fmt.Errorf("failed to assert type for rule ID: %v", props[pdp_neo4j.AttrID])
	}
	rule.ID = id
	rule.Match.Identity, _ = props[pdp_neo4j.AttrMatchIdentity].(string)
	if err := unmarshalProp(props, pdp_neo4j.AttrMatchClaims, &rule.Match.Claims); err != nil {
		return rule, err
	}
	rule.AllowedServices = stringList(props[pdp_neo4j.AttrServices])
	rule.AllowedTools = stringList(props[pdp_neo4j.AttrAllowedTools])
	return rule, nil
}

func unmarshalProp(props map[string]any, key string, dst any) error {
	raw, ok := props[key].(string)
	if !ok || raw == "" || raw == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// Lists come back from the driver as []any.
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
