package entities

import "time"

// Permission is a named, addressable API capability bound to a concrete
// endpoint path. The registry is administrative vocabulary only: access
// decisions match capability names against the plan's stored capability set,
// never against this table.
type Permission struct {
	ID          int64
	Name        string // Unique capability name (e.g. "service1")
	Description string
	APIEndpoint string // Unique endpoint path (e.g. "/api/service1")
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
