// model/neo4j/nodes.go
package pdp_neo4j

// Node labels of the policy graph.
const (
	// LabelService is a catalog entry: one backend service and its tools.
	LabelService = "Service"

	// LabelAccessRule grants matching callers access to services and tools.
	LabelAccessRule = "AccessRule"

	// LabelRevocation is a revoked caller identity or token id.
	LabelRevocation = "Revocation"
)

// Node properties.
const (
	AttrName           = "name"
	AttrID             = "id"
	AttrSubject        = "subject"
	AttrEnabled        = "enabled"
	AttrSuspended      = "suspended"
	AttrTools          = "tools"
	AttrApprovers      = "approvers"
	AttrClassification = "classification"
	AttrMatchIdentity  = "matchIdentity"
	AttrMatchClaims    = "matchClaims"
	AttrServices       = "allowedServices"
	AttrAllowedTools   = "allowedTools"
	AttrUpdatedAt      = "updatedAt"
)
