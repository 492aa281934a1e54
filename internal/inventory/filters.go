package inventory

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultLimit applies when a filter leaves Limit at zero.
	DefaultLimit = 50
	// MaxLimit is the largest page any filter may request.
	MaxLimit = 1000
	// MinQueryLength is the shortest natural-language query accepted.
	MinQueryLength = 3
	// MaxVID is the highest usable 802.1Q VLAN id.
	MaxVID = 4094
)

// DeviceFilter selects devices.
type DeviceFilter struct {
	Name         string `json:"name,omitempty" jsonschema:"description=Exact device name"`
	NameContains string `json:"name_contains,omitempty" jsonschema:"description=Case-insensitive substring of the device name"`
	Site         string `json:"site,omitempty" jsonschema:"description=Site name or numeric ID"`
	Role         string `json:"role,omitempty" jsonschema:"description=Device role name or numeric ID (e.g. net-firewall)"`
	Status       string `json:"status,omitempty" jsonschema:"description=Device status: active/planned/staged/failed/offline"`
	Manufacturer string `json:"manufacturer,omitempty" jsonschema:"description=Manufacturer slug"`
	Model        string `json:"model,omitempty" jsonschema:"description=Device type model name or numeric ID"`
	Tag          string `json:"tag,omitempty" jsonschema:"description=Tag slug"`
	Search       string `json:"search,omitempty" jsonschema:"description=Free-text search across device fields"`
	Limit        int    `json:"limit,omitempty" jsonschema:"description=Maximum results (1-1000; default 50)"`
}

// SiteFilter selects sites.
type SiteFilter struct {
	Name         string `json:"name,omitempty" jsonschema:"description=Exact site name"`
	NameContains string `json:"name_contains,omitempty" jsonschema:"description=Case-insensitive substring of the site name"`
	Status       string `json:"status,omitempty" jsonschema:"description=Site status: active/planned/staging/decommissioning/retired"`
	Region       string `json:"region,omitempty" jsonschema:"description=Region name or numeric ID"`
	Tenant       string `json:"tenant,omitempty" jsonschema:"description=Tenant name or numeric ID"`
	Tag          string `json:"tag,omitempty" jsonschema:"description=Tag slug"`
	Search       string `json:"search,omitempty" jsonschema:"description=Free-text search across site fields"`
	Limit        int    `json:"limit,omitempty" jsonschema:"description=Maximum results (1-1000; default 50)"`
}

// CircuitFilter selects circuits. Site matches either termination.
type CircuitFilter struct {
	CID         string `json:"cid,omitempty" jsonschema:"description=Exact circuit ID"`
	CIDContains string `json:"cid_contains,omitempty" jsonschema:"description=Case-insensitive substring of the circuit ID"`
	Provider    string `json:"provider,omitempty" jsonschema:"description=Provider name or numeric ID"`
	Type        string `json:"type,omitempty" jsonschema:"description=Circuit type name or numeric ID (e.g. Internet or MPLS)"`
	Status      string `json:"status,omitempty" jsonschema:"description=Circuit status: active/planned/provisioning/deprovisioning/offline"`
	Site        string `json:"site,omitempty" jsonschema:"description=Site name at either circuit termination"`
	Tenant      string `json:"tenant,omitempty" jsonschema:"description=Tenant name or numeric ID"`
	Description string `json:"description,omitempty" jsonschema:"description=Case-insensitive substring of the description"`
	Tag         string `json:"tag,omitempty" jsonschema:"description=Tag slug"`
	Search      string `json:"search,omitempty" jsonschema:"description=Free-text search across circuit fields"`
	Limit       int    `json:"limit,omitempty" jsonschema:"description=Maximum results (1-1000; default 50)"`
}

// PrefixFilter selects IP prefixes.
type PrefixFilter struct {
	Prefix     string `json:"prefix,omitempty" jsonschema:"description=Exact prefix in CIDR notation"`
	Site       string `json:"site,omitempty" jsonschema:"description=Site name or numeric ID"`
	VRF        string `json:"vrf,omitempty" jsonschema:"description=VRF name or numeric ID"`
	Tenant     string `json:"tenant,omitempty" jsonschema:"description=Tenant name or numeric ID"`
	VLAN       string `json:"vlan,omitempty" jsonschema:"description=VLAN name or numeric ID"`
	VLANVID    int    `json:"vlan_vid,omitempty" jsonschema:"description=VLAN number (1-4094) the prefix is assigned to"`
	Status     string `json:"status,omitempty" jsonschema:"description=Prefix status: active/reserved/deprecated/container"`
	Role       string `json:"role,omitempty" jsonschema:"description=IPAM role name or numeric ID"`
	Family     int    `json:"family,omitempty" jsonschema:"description=Address family: 4 or 6"`
	MaskLength int    `json:"mask_length,omitempty" jsonschema:"description=Prefix length (e.g. 24)"`
	IsPool     *bool  `json:"is_pool,omitempty" jsonschema:"description=Only pools (true) or only non-pools (false)"`
	Tag        string `json:"tag,omitempty" jsonschema:"description=Tag slug"`
	Search     string `json:"search,omitempty" jsonschema:"description=Free-text search across prefix fields"`
	Limit      int    `json:"limit,omitempty" jsonschema:"description=Maximum results (1-1000; default 50)"`
}

// VLANFilter selects VLANs.
type VLANFilter struct {
	VID                 int    `json:"vid,omitempty" jsonschema:"description=VLAN number (1-4094)"`
	Name                string `json:"name,omitempty" jsonschema:"description=Exact VLAN name"`
	NameContains        string `json:"name_contains,omitempty" jsonschema:"description=Case-insensitive substring of the VLAN name"`
	Site                string `json:"site,omitempty" jsonschema:"description=Site name or numeric ID"`
	Group               string `json:"group,omitempty" jsonschema:"description=VLAN group name or numeric ID"`
	Tenant              string `json:"tenant,omitempty" jsonschema:"description=Tenant name or numeric ID"`
	Role                string `json:"role,omitempty" jsonschema:"description=IPAM role name or numeric ID"`
	Status              string `json:"status,omitempty" jsonschema:"description=VLAN status: active/reserved/deprecated"`
	DescriptionContains string `json:"description_contains,omitempty" jsonschema:"description=Case-insensitive substring of the description"`
	Tag                 string `json:"tag,omitempty" jsonschema:"description=Tag slug"`
	Search              string `json:"search,omitempty" jsonschema:"description=Free-text search across VLAN fields"`
	Limit               int    `json:"limit,omitempty" jsonschema:"description=Maximum results (1-1000; default 50)"`
}

// RackFilter selects racks.
type RackFilter struct {
	Name   string `json:"name,omitempty" jsonschema:"description=Exact rack name"`
	Site   string `json:"site,omitempty" jsonschema:"description=Site name or numeric ID"`
	Status string `json:"status,omitempty" jsonschema:"description=Rack status: active/planned/reserved/available/deprecated"`
	Role   string `json:"role,omitempty" jsonschema:"description=Rack role name or numeric ID"`
	Tenant string `json:"tenant,omitempty" jsonschema:"description=Tenant name or numeric ID"`
	Tag    string `json:"tag,omitempty" jsonschema:"description=Tag slug"`
	Search string `json:"search,omitempty" jsonschema:"description=Free-text search across rack fields"`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Maximum results (1-1000; default 50)"`
}

// Query is a natural-language question about one entity type.
type Query struct {
	Query string `json:"query" jsonschema:"required,description=Natural-language question (at least 3 characters)"`
}

// Validate rejects queries shorter than MinQueryLength.
func (q Query) Validate() error {
	if len(strings.TrimSpace(q.Query)) < MinQueryLength {
		return fmt.Errorf("query must be at least %d characters", MinQueryLength)
	}
	return nil
}

// effectiveLimit maps 0 to DefaultLimit and rejects anything outside 1..MaxLimit.
func effectiveLimit(limit int) (int, error) {
	if limit == 0 {
		return DefaultLimit, nil
	}
	if limit < 1 || limit > MaxLimit {
		return 0, fmt.Errorf("limit must be between 1 and %d, got %d", MaxLimit, limit)
	}
	return limit, nil
}

// Interpretation lists the constraints a filter applies, in field order, as
// "field: value" pairs. It is shown to callers of natural-language queries.
type Interpretation []string

func (in Interpretation) String() string {
	if len(in) == 0 {
		return "no constraints"
	}
	return strings.Join(in, ", ")
}

type describer struct {
	parts Interpretation
}

func (d *describer) str(label, v string) {
	if v != "" {
		d.parts = append(d.parts, label+": "+v)
	}
}

func (d *describer) num(label string, v int) {
	if v != 0 {
		d.parts = append(d.parts, label+": "+strconv.Itoa(v))
	}
}

// Describe renders the filter's constraints.
func (f DeviceFilter) Describe() Interpretation {
	d := &describer{}
	d.str("name", f.Name)
	d.str("name contains", f.NameContains)
	d.str("site", f.Site)
	d.str("role", f.Role)
	d.str("status", f.Status)
	d.str("manufacturer", f.Manufacturer)
	d.str("model", f.Model)
	d.str("tag", f.Tag)
	d.str("search", f.Search)
	d.num("limit", f.Limit)
	return d.parts
}

// Describe renders the filter's constraints.
func (f SiteFilter) Describe() Interpretation {
	d := &describer{}
	d.str("name", f.Name)
	d.str("name contains", f.NameContains)
	d.str("status", f.Status)
	d.str("region", f.Region)
	d.str("tenant", f.Tenant)
	d.str("tag", f.Tag)
	d.str("search", f.Search)
	d.num("limit", f.Limit)
	return d.parts
}

// Describe renders the filter's constraints.
func (f CircuitFilter) Describe() Interpretation {
	d := &describer{}
	d.str("cid", f.CID)
	d.str("cid contains", f.CIDContains)
	d.str("provider", f.Provider)
	d.str("type", f.Type)
	d.str("status", f.Status)
	d.str("site", f.Site)
	d.str("tenant", f.Tenant)
	d.str("description", f.Description)
	d.str("tag", f.Tag)
	d.str("search", f.Search)
	d.num("limit", f.Limit)
	return d.parts
}

// Describe renders the filter's constraints.
func (f PrefixFilter) Describe() Interpretation {
	d := &describer{}
	d.str("prefix", f.Prefix)
	d.str("site", f.Site)
	d.str("vrf", f.VRF)
	d.str("tenant", f.Tenant)
	d.str("vlan", f.VLAN)
	d.num("vlan vid", f.VLANVID)
	d.str("status", f.Status)
	d.str("role", f.Role)
	if f.Family != 0 {
		d.str("family", familyLabel(f.Family))
	}
	d.num("mask length", f.MaskLength)
	if f.IsPool != nil {
		d.str("is pool", strconv.FormatBool(*f.IsPool))
	}
	d.str("tag", f.Tag)
	d.str("search", f.Search)
	d.num("limit", f.Limit)
	return d.parts
}

// Describe renders the filter's constraints.
func (f VLANFilter) Describe() Interpretation {
	d := &describer{}
	d.num("vid", f.VID)
	d.str("name", f.Name)
	d.str("name contains", f.NameContains)
	d.str("site", f.Site)
	d.str("group", f.Group)
	d.str("tenant", f.Tenant)
	d.str("role", f.Role)
	d.str("status", f.Status)
	d.str("description contains", f.DescriptionContains)
	d.str("tag", f.Tag)
	d.str("search", f.Search)
	d.num("limit", f.Limit)
	return d.parts
}

// Describe renders the filter's constraints.
func (f RackFilter) Describe() Interpretation {
	d := &describer{}
	d.str("name", f.Name)
	d.str("site", f.Site)
	d.str("status", f.Status)
	d.str("role", f.Role)
	d.str("tenant", f.Tenant)
	d.str("tag", f.Tag)
	d.str("search", f.Search)
	d.num("limit", f.Limit)
	return d.parts
}
