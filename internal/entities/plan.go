package entities

import "time"

// Plan represents a subscription tier: a named bundle of API capabilities
// plus a usage ceiling
type Plan struct {
	ID           int64
	Name         string   // Unique plan name
	Description  string   // Optional human-readable description
	Capabilities []string // Capability names granted by this plan
	UsageLimit   int      // Maximum number of granted accesses (ceiling N permits exactly N grants)
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Permits reports whether the plan grants the named capability.
// Matching is exact string equality, case-sensitive.
func (p *Plan) Permits(capability string) bool {
	for _, c := range p.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}
