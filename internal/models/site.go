package models

// SiteStatus enumerates site lifecycle states
type SiteStatus string

const (
	SiteActive   SiteStatus = "active"
	SiteInactive SiteStatus = "inactive"
)

// Site represents a physical location belonging to a tenant
type Site struct {
	TenantModel

	Name     string     `json:"name" db:"name"`
	Location string     `json:"location" db:"location"`
	Status   SiteStatus `json:"status" db:"status"`
}

// SiteCounts carries per-site aggregate counts for list views
type SiteCounts struct {
	Environments int64 `json:"environments"`
	Sensors      int64 `json:"sensors"`
	OpenAlerts   int64 `json:"openAlerts"`
}
