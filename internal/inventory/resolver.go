package inventory

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/netbox-mcp/internal/logger"
	"github.com/netbox-mcp/internal/netbox"
)

// Kind describes how one relationship field is resolved and filtered on.
type Kind struct {
	Name        string
	Endpoint    netbox.Endpoint
	LookupField string // attribute matched against the human value
	IDParam     string // filter used for a resolved id
	RawParam    string // filter used when the value passes through
}

var (
	KindSite        = Kind{"site", netbox.Sites, "name", "site_id", "site"}
	KindDeviceRole  = Kind{"device_role", netbox.DeviceRoles, "name", "role_id", "role"}
	KindDeviceType  = Kind{"device_type", netbox.DeviceTypes, "model", "device_type_id", "device_type"}
	KindProvider    = Kind{"provider", netbox.Providers, "name", "provider_id", "provider"}
	KindCircuitType = Kind{"circuit_type", netbox.CircuitTypes, "name", "type_id", "type"}
	KindTenant      = Kind{"tenant", netbox.Tenants, "name", "tenant_id", "tenant"}
	KindRegion      = Kind{"region", netbox.Regions, "name", "region_id", "region"}
	KindVLANGroup   = Kind{"vlan_group", netbox.VLANGroups, "name", "group_id", "group"}
	KindIPAMRole    = Kind{"ipam_role", netbox.IPAMRoles, "name", "role_id", "role"}
	KindVRF         = Kind{"vrf", netbox.VRFs, "name", "vrf_id", "vrf"}
	KindVLAN        = Kind{"vlan", netbox.VLANs, "name", "vlan_id", "vlan"}
	KindRackRole    = Kind{"rack_role", netbox.RackRoles, "name", "role_id", "role"}
)

// Resolution outcomes, also used as metric label values.
const (
	OutcomeID          = "id"
	OutcomeExact       = "exact"
	OutcomeContains    = "contains"
	OutcomePassthrough = "passthrough"
)

// ResolvedRef is either a numeric id (ID > 0) or the raw value to pass
// through unresolved.
type ResolvedRef struct {
	ID  int
	Raw string
}

// Apply adds the filter parameter for r to params.
func (r ResolvedRef) Apply(params url.Values, kind Kind) {
	if r.ID > 0 {
		params.Set(kind.IDParam, strconv.Itoa(r.ID))
		return
	}
	params.Set(kind.RawParam, r.Raw)
}

// Resolver maps human-given names of related objects to ids. It never
// fails: any miss, including a failed lookup, passes the raw value through
// and leaves the API to reject it.
type Resolver struct {
	api    API
	logger *logger.Logger

	// OnResolve, when set, is called with the kind and outcome of every
	// resolution.
	OnResolve func(kind, outcome string)
}

// NewResolver creates a resolver over api.
func NewResolver(api API, log *logger.Logger) *Resolver {
	return &Resolver{api: api, logger: log}
}

// Resolve looks raw up as kind.
func (r *Resolver) Resolve(ctx context.Context, kind Kind, raw string) ResolvedRef {
	ref, outcome := r.resolve(ctx, kind, raw)
	if r.OnResolve != nil {
		r.OnResolve(kind.Name, outcome)
	}
	if r.logger != nil {
		r.logger.Debug("Resolved %s '%s' via %s (id=%d)", kind.Name, raw, outcome, ref.ID)
	}
	return ref
}

func (r *Resolver) resolve(ctx context.Context, kind Kind, raw string) (ResolvedRef, string) {
	value := strings.TrimSpace(raw)
	if id, err := strconv.Atoi(value); err == nil && id > 0 {
		return ResolvedRef{ID: id}, OutcomeID
	}

	exact := url.Values{}
	exact.Set(kind.LookupField, value)
	if records, err := r.api.List(ctx, kind.Endpoint, withLimit(exact, 2)); err == nil && len(records) == 1 {
		if id := idOf(records[0]); id > 0 {
			return ResolvedRef{ID: id}, OutcomeExact
		}
	} else if err != nil {
		r.debug("exact lookup of %s '%s' failed: %v", kind.Name, value, err)
	}

	contains := url.Values{}
	contains.Set(kind.LookupField+"__ic", value)
	if records, err := r.api.List(ctx, kind.Endpoint, withLimit(contains, 1)); err == nil && len(records) > 0 {
		if id := idOf(records[0]); id > 0 {
			return ResolvedRef{ID: id}, OutcomeContains
		}
	} else if err != nil {
		r.debug("contains lookup of %s '%s' failed: %v", kind.Name, value, err)
	}

	return ResolvedRef{Raw: raw}, OutcomePassthrough
}

func (r *Resolver) debug(format string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Debug(format, args...)
	}
}

func withLimit(params url.Values, limit int) url.Values {
	params.Set("limit", strconv.Itoa(limit))
	return params
}
