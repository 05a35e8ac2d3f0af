// model/credential.go
package model

import "time"

// InjectionKind selects how resolved values reach the backend.
type InjectionKind string

const (
	InjectEnvironment InjectionKind = "environment"
	InjectHeader      InjectionKind = "header"
)

// OAuthSettings marks a credential whose secret payload is an OAuthCredentialRecord.
type OAuthSettings struct {
	TokenURL            string   `json:"token_url" mapstructure:"tokenURL"`
	Scopes              []string `json:"scopes,omitempty" mapstructure:"scopes"`
	RotatesRefreshToken bool     `json:"rotates_refresh_token" mapstructure:"rotatesRefreshToken"`
}

// CredentialDefinition maps a secret-store entry to injected keys.
// PathTemplate supports {tenant} and {user} placeholders.
type CredentialDefinition struct {
	Name          string            `json:"name" mapstructure:"name"`
	PathTemplate  string            `json:"path_template" mapstructure:"pathTemplate"`
	InjectionKind InjectionKind     `json:"injection_kind" mapstructure:"injectionKind"`
	FieldMapping  map[string]string `json:"field_mapping" mapstructure:"fieldMapping"`
	Required      bool              `json:"required" mapstructure:"required"`
	OAuth         *OAuthSettings    `json:"oauth,omitempty" mapstructure:"oauth"`
}

// ResolvedCredential lives only in memory and is never persisted.
type ResolvedCredential struct {
	DefinitionName string            `json:"definition_name"`
	Kind           InjectionKind     `json:"kind"`
	Values         map[string]string `json:"values"`
	FetchedAt      time.Time         `json:"fetched_at"`
	TTL            time.Duration     `json:"ttl"`
}

// Fields of an OAuth secret payload in the secret store.
const (
	OAuthFieldAccessToken       = "access_token"
	OAuthFieldAccessTokenExpiry = "access_token_expiry"
	OAuthFieldRefreshToken      = "refresh_token"
	OAuthFieldClientID          = "app_client_id"
	OAuthFieldClientSecret      = "app_client_secret"
)

// OAuthCredentialRecord is the secret payload of an OAuth-backed credential.
type OAuthCredentialRecord struct {
	AccessToken       string
	AccessTokenExpiry time.Time
	RefreshToken      string
	AppClientID       string
	AppClientSecret   string
}
