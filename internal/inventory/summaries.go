package inventory

// Summaries are the flat records handed to callers. Relationship fields hold
// display names only.

// DeviceSummary is a flattened device.
type DeviceSummary struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	Site         string   `json:"site"`
	Role         string   `json:"role"`
	Status       string   `json:"status"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Platform     string   `json:"platform,omitempty"`
	Tenant       string   `json:"tenant,omitempty"`
	Rack         string   `json:"rack,omitempty"`
	IPAddress    string   `json:"ip_address,omitempty"`
	Serial       string   `json:"serial,omitempty"`
	Description  string   `json:"description,omitempty"`
	Tags         []string `json:"tags"`
}

// SiteSummary is a flattened site. The counts are only filled by a
// single-site lookup.
type SiteSummary struct {
	ID              int      `json:"id"`
	Name            string   `json:"name"`
	Slug            string   `json:"slug,omitempty"`
	Status          string   `json:"status"`
	Region          string   `json:"region,omitempty"`
	Tenant          string   `json:"tenant,omitempty"`
	Facility        string   `json:"facility,omitempty"`
	ASN             *int     `json:"asn,omitempty"`
	TimeZone        string   `json:"time_zone,omitempty"`
	Description     string   `json:"description,omitempty"`
	PhysicalAddress string   `json:"physical_address,omitempty"`
	ShippingAddress string   `json:"shipping_address,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	Tags            []string `json:"tags"`
	DeviceCount     *int     `json:"device_count,omitempty"`
	RackCount       *int     `json:"rack_count,omitempty"`
}

// CircuitSummary is a flattened circuit with the site at each termination.
type CircuitSummary struct {
	ID           int      `json:"id"`
	CID          string   `json:"cid"`
	Provider     string   `json:"provider"`
	Type         string   `json:"type"`
	Status       string   `json:"status"`
	Description  string   `json:"description,omitempty"`
	InstallDate  string   `json:"install_date,omitempty"`
	CommitRate   *int     `json:"commit_rate,omitempty"`
	Tenant       string   `json:"tenant,omitempty"`
	TerminationA string   `json:"termination_a,omitempty"`
	TerminationZ string   `json:"termination_z,omitempty"`
	Tags         []string `json:"tags"`
}

// PrefixSummary is a flattened IP prefix.
type PrefixSummary struct {
	ID           int      `json:"id"`
	Prefix       string   `json:"prefix"`
	Site         string   `json:"site,omitempty"`
	VRF          string   `json:"vrf,omitempty"`
	Tenant       string   `json:"tenant,omitempty"`
	VLAN         string   `json:"vlan,omitempty"`
	Status       string   `json:"status"`
	Role         string   `json:"role,omitempty"`
	Family       string   `json:"family"`
	IsPool       bool     `json:"is_pool"`
	Description  string   `json:"description,omitempty"`
	Tags         []string `json:"tags"`
	Utilization  *float64 `json:"utilization,omitempty"`
	AvailableIPs *int     `json:"available_ips,omitempty"`
	Created      string   `json:"created,omitempty"`
	LastUpdated  string   `json:"last_updated,omitempty"`
}

// VLANSummary is a flattened VLAN.
type VLANSummary struct {
	ID          int      `json:"id"`
	VID         int      `json:"vid"`
	Name        string   `json:"name"`
	Site        string   `json:"site,omitempty"`
	Group       string   `json:"group,omitempty"`
	Tenant      string   `json:"tenant,omitempty"`
	Role        string   `json:"role,omitempty"`
	Status      string   `json:"status"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags"`
	Created     string   `json:"created,omitempty"`
	LastUpdated string   `json:"last_updated,omitempty"`
}

// RackSummary is a flattened rack.
type RackSummary struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Site        string   `json:"site"`
	Location    string   `json:"location,omitempty"`
	Tenant      string   `json:"tenant,omitempty"`
	Status      string   `json:"status"`
	Role        string   `json:"role,omitempty"`
	Serial      string   `json:"serial,omitempty"`
	AssetTag    string   `json:"asset_tag,omitempty"`
	UHeight     *int     `json:"u_height,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags"`
}

// hintName marks the synthetic row returned in place of an upstream
// rejection.
const hintName = "Error"
