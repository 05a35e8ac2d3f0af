// config/config.go
package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
)

// Configuration stores all the configurations
type Configuration struct {
	Server        ServerConfiguration
	Auth          AuthConfiguration
	Neo4j         DatabaseConfiguration
	Redis         RedisConfiguration
	Elasticsearch ElasticsearchConfiguration
	Kafka         KafkaConfiguration
	Snapshot      SnapshotConfiguration
	PDP           PDPConfiguration
	Approval      ApprovalConfiguration
	Credentials   CredentialsConfiguration
	Vault         VaultConfiguration
	Policy        PolicyConfiguration
	Log           LogConfiguration
}

// ServerConfiguration stores the port and other web server settings
type ServerConfiguration struct {
	Port              string
	RateLimitRequests int
	RateLimitDuration time.Duration
}

// AuthConfiguration controls bearer-token validation on the management API.
type AuthConfiguration struct {
	Enabled       bool
	HMACSecret    string
	AdminGroup    string
	ApproverGroup string
	GatewayGroup  string
}

// DatabaseConfiguration stores data for database connection
type DatabaseConfiguration struct {
	Enabled  bool
	URI      string
	Username string
	Password string
}

// RedisConfiguration stores data for Redis connection
type RedisConfiguration struct {
	Enabled bool
	Addr    string
}

// ElasticsearchConfiguration stores data for Elasticsearch connection
type ElasticsearchConfiguration struct {
	Enabled bool
	URL     string
}

// KafkaConfiguration enables cross-process policy change notifications.
type KafkaConfiguration struct {
	Brokers []string
	Topic   string
	GroupID string
}

// SnapshotConfiguration drives the distributor, or the remote poller when RemoteURL is set.
type SnapshotConfiguration struct {
	Debounce          time.Duration
	ReconcileInterval time.Duration
	RemoteURL         string
	RemoteToken       string
	PollInterval      time.Duration
	MaxStaleness      time.Duration
}

// PDPConfiguration holds decision-time settings.
type PDPConfiguration struct {
	EvaluatorTimeout time.Duration
	AuditOpenCalls   bool
	Evaluators       []EvaluatorBinding
	RateLimit        int
	RateWindow       time.Duration
}

// EvaluatorBinding routes gated calls for Target ("service" or "service.tool")
// to a named evaluator: approval, audit, ratelimit or an http(s) URL of a
// remote decision service.
type EvaluatorBinding struct {
	Target    string
	Evaluator string
}

// ApprovalConfiguration holds approval workflow and replay settings.
type ApprovalConfiguration struct {
	Store         string // memory or redis
	ReplayEnabled bool
	PollInterval  time.Duration
	ReplayTimeout time.Duration
	PendingTTL    time.Duration
	LockTTL       time.Duration
	Backends      map[string]string
}

// CredentialsConfiguration holds credential definitions and the selection strategy.
type CredentialsConfiguration struct {
	Selector     string // static or rego
	RegoPolicy   string
	Static       map[string]string
	Default      string
	CacheTTL     time.Duration
	FetchTimeout time.Duration
	SecretStore  string // memory or vault
	Definitions  []model.CredentialDefinition
}

// VaultConfiguration addresses the KV v2 secret store.
type VaultConfiguration struct {
	Address string
	Token   string
	Mount   string
}

// PolicyConfiguration is the initial policy state written to the store at
// startup. Against a Neo4j store it is applied only when Seed is set.
type PolicyConfiguration struct {
	Seed        bool
	Catalog     []model.CatalogEntry
	AccessRules []model.AccessRule
	Revocations []string
}

type LogConfiguration struct {
	Dir string
}

// State converts the bootstrap section into policy state.
func (p PolicyConfiguration) State() model.PolicyState {
	state := model.PolicyState{
		Catalog:     make(map[string]model.CatalogEntry, len(p.Catalog)),
		AccessRules: p.AccessRules,
		Revocations: p.Revocations,
	}
	for _, entry := range p.Catalog {
		state.Catalog[entry.ServiceName] = entry
	}
	return state
}

var config *Configuration

func InitConfig() error {
	viper.AddConfigPath("config") // path to look for the config file in
	viper.SetConfigName("config") // name of the config file (without extension)
	viper.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	setDefaults()

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	// Unmarshal the configuration into the Configuration struct
	err := viper.Unmarshal(&config)
	if err != nil {
		return err
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.rateLimitRequests", 600)
	viper.SetDefault("server.rateLimitDuration", "1m")
	viper.SetDefault("auth.enabled", true)
	viper.SetDefault("auth.adminGroup", "pdp-admin")
	viper.SetDefault("auth.approverGroup", "pdp-approver")
	viper.SetDefault("auth.gatewayGroup", "pdp-gateway")
	viper.SetDefault("neo4j.enabled", false)
	viper.SetDefault("neo4j.uri", "bolt://localhost:7687")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("elasticsearch.enabled", false)
	viper.SetDefault("elasticsearch.url", "http://localhost:9200")
	viper.SetDefault("kafka.topic", "policy-changes")
	viper.SetDefault("kafka.groupID", "pdp-snapshot")
	viper.SetDefault("snapshot.debounce", "250ms")
	viper.SetDefault("snapshot.reconcileInterval", "30s")
	viper.SetDefault("snapshot.pollInterval", "5s")
	viper.SetDefault("snapshot.maxStaleness", "5m")
	viper.SetDefault("pdp.evaluatorTimeout", "2s")
	viper.SetDefault("pdp.auditOpenCalls", false)
	viper.SetDefault("pdp.rateLimit", 60)
	viper.SetDefault("pdp.rateWindow", "1m")
	viper.SetDefault("approval.store", "memory")
	viper.SetDefault("approval.replayEnabled", true)
	viper.SetDefault("approval.pollInterval", "2s")
	viper.SetDefault("approval.replayTimeout", "30s")
	viper.SetDefault("approval.pendingTTL", "0s")
	viper.SetDefault("approval.lockTTL", "5s")
	viper.SetDefault("credentials.selector", "static")
	viper.SetDefault("credentials.cacheTTL", "5m")
	viper.SetDefault("credentials.fetchTimeout", "5s")
	viper.SetDefault("credentials.secretStore", "memory")
	viper.SetDefault("vault.address", "http://localhost:8200")
	viper.SetDefault("vault.mount", "secret")
	viper.SetDefault("policy.seed", false)
	viper.SetDefault("log.dir", "")
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt retrieves an integer value from the configuration
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool retrieves a boolean value from the configuration
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration retrieves a duration value from the configuration
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
