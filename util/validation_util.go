// util/validation_util.go

package util

import (
	"fmt"
	"strings"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
)

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

func (v *ValidationUtil) ValidateCatalogEntry(entry model.CatalogEntry) error {
	if entry.ServiceName == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if strings.Contains(entry.ServiceName, ".") {
		return fmt.Errorf("service name %q must not contain '.'", entry.ServiceName)
	}
	for tool, tag := range entry.Tools {
		if tool == "" {
			return fmt.Errorf("tool name cannot be empty")
		}
		if !tag.Valid() {
			return fmt.Errorf("tool %q has unknown tag %q", tool, tag)
		}
	}
	for tool := range entry.Approvers {
		if _, ok := entry.Tools[tool]; !ok {
			return fmt.Errorf("approvers listed for unknown tool %q", tool)
		}
	}
	return nil
}

func (v *ValidationUtil) ValidateAccessRule(rule model.AccessRule) error {
	if rule.ID == "" {
		return fmt.Errorf("rule ID cannot be empty")
	}
	if rule.Match.Identity == "" && len(rule.Match.Claims) == 0 {
		return fmt.Errorf("rule must match an identity or at least one claim")
	}
	if len(rule.AllowedServices) == 0 {
		return fmt.Errorf("rule must allow at least one service")
	}
	if len(rule.AllowedTools) == 0 {
		return fmt.Errorf("rule must allow at least one tool")
	}
	return nil
}

func (v *ValidationUtil) ValidateCredentialDefinition(def model.CredentialDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("credential name cannot be empty")
	}
	if def.PathTemplate == "" {
		return fmt.Errorf("credential %s has no path template", def.Name)
	}
	if def.InjectionKind != model.InjectEnvironment && def.InjectionKind != model.InjectHeader {
		return fmt.Errorf("credential %s has unknown injection kind %q", def.Name, def.InjectionKind)
	}
	if len(def.FieldMapping) == 0 {
		return fmt.Errorf("credential %s has no field mapping", def.Name)
	}
	if def.OAuth != nil && def.OAuth.TokenURL == "" {
		return fmt.Errorf("credential %s is OAuth-backed but has no token URL", def.Name)
	}
	return nil
}
