package inventory

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// Adapted is a filter translated into API query parameters. Params always
// carries "limit", which is the fetch size; Limit is the number of rows the
// caller asked for. They differ only when a residual filter runs after the
// fetch.
type Adapted struct {
	Params url.Values
	Limit  int

	// TerminationSite is the circuit site filter, applied after the fetch
	// because termination site is not a filterable circuit field.
	TerminationSite string
}

// Adapter turns typed filters into API parameters, resolving relationship
// names through a Resolver.
type Adapter struct {
	resolver  *Resolver
	overfetch int
}

// NewAdapter creates an adapter. overfetch is the fetch multiplier used when
// a residual filter will discard rows; values below 1 mean 1.
func NewAdapter(r *Resolver, overfetch int) *Adapter {
	if overfetch < 1 {
		overfetch = 1
	}
	return &Adapter{resolver: r, overfetch: overfetch}
}

type paramBuilder struct {
	ctx      context.Context
	resolver *Resolver
	params   url.Values
}

func (a *Adapter) builder(ctx context.Context) *paramBuilder {
	return &paramBuilder{ctx: ctx, resolver: a.resolver, params: url.Values{}}
}

func (b *paramBuilder) set(key, v string) {
	if v = strings.TrimSpace(v); v != "" {
		b.params.Set(key, v)
	}
}

func (b *paramBuilder) num(key string, v int) {
	if v != 0 {
		b.params.Set(key, strconv.Itoa(v))
	}
}

func (b *paramBuilder) ref(kind Kind, v string) {
	if strings.TrimSpace(v) == "" {
		return
	}
	b.resolver.Resolve(b.ctx, kind, v).Apply(b.params, kind)
}

func (b *paramBuilder) done(limit, fetch int) Adapted {
	b.params.Set("limit", strconv.Itoa(fetch))
	return Adapted{Params: b.params, Limit: limit}
}

// Devices adapts a device filter.
func (a *Adapter) Devices(ctx context.Context, f DeviceFilter) (Adapted, error) {
	limit, err := effectiveLimit(f.Limit)
	if err != nil {
		return Adapted{}, err
	}
	b := a.builder(ctx)
	b.set("name", f.Name)
	b.set("name__ic", f.NameContains)
	b.ref(KindSite, f.Site)
	b.ref(KindDeviceRole, f.Role)
	b.set("status", f.Status)
	b.set("manufacturer", f.Manufacturer)
	b.ref(KindDeviceType, f.Model)
	b.set("tag", f.Tag)
	b.set("q", f.Search)
	return b.done(limit, limit), nil
}

// Sites adapts a site filter.
func (a *Adapter) Sites(ctx context.Context, f SiteFilter) (Adapted, error) {
	limit, err := effectiveLimit(f.Limit)
	if err != nil {
		return Adapted{}, err
	}
	b := a.builder(ctx)
	b.set("name", f.Name)
	b.set("name__ic", f.NameContains)
	b.set("status", f.Status)
	b.ref(KindRegion, f.Region)
	b.ref(KindTenant, f.Tenant)
	b.set("tag", f.Tag)
	b.set("q", f.Search)
	return b.done(limit, limit), nil
}

// Circuits adapts a circuit filter. A site becomes a residual filter and
// widens the fetch by the overfetch factor.
func (a *Adapter) Circuits(ctx context.Context, f CircuitFilter) (Adapted, error) {
	limit, err := effectiveLimit(f.Limit)
	if err != nil {
		return Adapted{}, err
	}
	b := a.builder(ctx)
	b.set("cid", f.CID)
	b.set("cid__ic", f.CIDContains)
	b.ref(KindProvider, f.Provider)
	b.ref(KindCircuitType, f.Type)
	b.set("status", f.Status)
	b.ref(KindTenant, f.Tenant)
	b.set("description__ic", f.Description)
	b.set("tag", f.Tag)
	b.set("q", f.Search)

	site := strings.TrimSpace(f.Site)
	if site == "" {
		return b.done(limit, limit), nil
	}
	ad := b.done(limit, limit*a.overfetch)
	ad.TerminationSite = site
	return ad, nil
}

// Prefixes adapts a prefix filter.
func (a *Adapter) Prefixes(ctx context.Context, f PrefixFilter) (Adapted, error) {
	limit, err := effectiveLimit(f.Limit)
	if err != nil {
		return Adapted{}, err
	}
	b := a.builder(ctx)
	b.set("prefix", f.Prefix)
	b.ref(KindSite, f.Site)
	b.ref(KindVRF, f.VRF)
	b.ref(KindTenant, f.Tenant)
	b.ref(KindVLAN, f.VLAN)
	b.num("vlan_vid", f.VLANVID)
	b.set("status", f.Status)
	b.ref(KindIPAMRole, f.Role)
	b.num("family", f.Family)
	b.num("mask_length", f.MaskLength)
	if f.IsPool != nil {
		b.set("is_pool", strconv.FormatBool(*f.IsPool))
	}
	b.set("tag", f.Tag)
	b.set("q", f.Search)
	return b.done(limit, limit), nil
}

// VLANs adapts a VLAN filter.
func (a *Adapter) VLANs(ctx context.Context, f VLANFilter) (Adapted, error) {
	limit, err := effectiveLimit(f.Limit)
	if err != nil {
		return Adapted{}, err
	}
	b := a.builder(ctx)
	b.num("vid", f.VID)
	b.set("name", f.Name)
	b.set("name__ic", f.NameContains)
	b.ref(KindSite, f.Site)
	b.ref(KindVLANGroup, f.Group)
	b.ref(KindTenant, f.Tenant)
	b.ref(KindIPAMRole, f.Role)
	b.set("status", f.Status)
	b.set("description__ic", f.DescriptionContains)
	b.set("tag", f.Tag)
	b.set("q", f.Search)
	return b.done(limit, limit), nil
}

// Racks adapts a rack filter.
func (a *Adapter) Racks(ctx context.Context, f RackFilter) (Adapted, error) {
	limit, err := effectiveLimit(f.Limit)
	if err != nil {
		return Adapted{}, err
	}
	b := a.builder(ctx)
	b.set("name", f.Name)
	b.ref(KindSite, f.Site)
	b.set("status", f.Status)
	b.ref(KindRackRole, f.Role)
	b.ref(KindTenant, f.Tenant)
	b.set("tag", f.Tag)
	b.set("q", f.Search)
	return b.done(limit, limit), nil
}

// residual applies keep to rows in order and stops once limit rows are kept.
func residual[S any](rows []S, limit int, keep func(S) bool) []S {
	out := make([]S, 0, min(len(rows), limit))
	for _, row := range rows {
		if len(out) >= limit {
			break
		}
		if keep == nil || keep(row) {
			out = append(out, row)
		}
	}
	return out
}

// terminatesAt reports whether either end of c is at site (case-insensitive).
func terminatesAt(site string) func(CircuitSummary) bool {
	return func(c CircuitSummary) bool {
		return strings.EqualFold(c.TerminationA, site) || strings.EqualFold(c.TerminationZ, site)
	}
}
