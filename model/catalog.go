// model/catalog.go
package model

// Tag classifies a tool in the catalog.
type Tag string

const (
	TagOpen  Tag = "open"
	TagGated Tag = "gated"
)

// Valid reports whether t is a known tag.
func (t Tag) Valid() bool {
	return t == TagOpen || t == TagGated
}

// CatalogEntry describes one backend service and the tools it exposes.
// Suspended overrides Enabled: a suspended service denies every call.
type CatalogEntry struct {
	ServiceName    string                       `json:"service_name" mapstructure:"serviceName"`
	Enabled        bool                         `json:"enabled" mapstructure:"enabled"`
	Suspended      bool                         `json:"suspended" mapstructure:"suspended"`
	Tools          map[string]Tag               `json:"tools" mapstructure:"tools"`
	Approvers      map[string][]string          `json:"approvers,omitempty" mapstructure:"approvers"`
	Classification map[string]map[string]string `json:"classification,omitempty" mapstructure:"classification"`
}

// Active reports whether calls to the service may proceed at all.
func (c CatalogEntry) Active() bool {
	return c.Enabled && !c.Suspended
}

// Clone returns a deep copy so snapshots never share maps with the mutable store.
func (c CatalogEntry) Clone() CatalogEntry {
	out := CatalogEntry{
		ServiceName: c.ServiceName,
		Enabled:     c.Enabled,
		Suspended:   c.Suspended,
		Tools:       make(map[string]Tag, len(c.Tools)),
	}
	for k, v := range c.Tools {
		out.Tools[k] = v
	}
	if len(c.Approvers) > 0 {
		out.Approvers = make(map[string][]string, len(c.Approvers))
		for k, v := range c.Approvers {
			out.Approvers[k] = append([]string(nil), v...)
		}
	}
	if len(c.Classification) > 0 {
		out.Classification = make(map[string]map[string]string, len(c.Classification))
		for k, v := range c.Classification {
			m := make(map[string]string, len(v))
			for mk, mv := range v {
				m[mk] = mv
			}
			out.Classification[k] = m
		}
	}
	return out
}
