package inventory

import (
	"context"
	"errors"
	"strings"
)

// QueryResult is the answer to a natural-language query.
type QueryResult[S any] struct {
	Results        []S
	Interpretation Interpretation
	// Note is set when the query's limit was clamped.
	Note string
	// Detail is set when a single-entity lookup answered the query.
	Detail bool
}

var detailPhrases = []string{"about", "tell me about", "information on", "details for"}

// wantsDetail reports whether text asks about one specific entity.
func wantsDetail(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range detailPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// hint is the corrective message for a rejected filter field.
type hint struct {
	field   string
	message string
}

var (
	deviceHints = []hint{
		{"role", "The device role you specified doesn't match any available roles in NetBox. Try using more generic terms like 'switch' or 'access point'."},
		{"site", "The site you specified doesn't exist in NetBox. Use list_sites to see available sites."},
	}
	circuitHints = []hint{
		{"provider", "The provider you specified doesn't match any available providers in NetBox. Check the provider name and try again."},
		{"type", "The circuit type you specified doesn't match any available types in NetBox. Common types include 'Internet', 'MPLS', 'Point-to-Point'."},
	}
	vlanHints = []hint{
		{"status", "The status you specified doesn't match any available statuses in NetBox. Try using 'active', 'reserved', or 'deprecated'."},
	}
	prefixHints = []hint{
		{"status", "The status you specified doesn't match any available statuses in NetBox. Try using 'active', 'reserved', 'deprecated', or 'container'."},
		{"family", "The address family you specified is not valid. Use 'IPv4' or 'IPv6'."},
	}
	siteHints = []hint{
		{"status", "The site status you specified doesn't match any available statuses in NetBox. Try using 'active', 'planned', 'staging', 'decommissioning', or 'retired'."},
		{"region", "The region you specified doesn't exist in NetBox. Check the region name and try again."},
	}
	rackHints = []hint{
		{"status", "The rack status you specified doesn't match any available statuses in NetBox. Try using 'active', 'planned', 'reserved', 'available', or 'deprecated'."},
	}
)

const genericHint = "One of the values you specified is not a valid choice in NetBox. Rephrase the query or use the list tools to see valid values."

// rejection returns the hint for err when it is an upstream rejection. The
// rejected field is matched first; without one, the error text is searched
// for each field name in turn.
func rejection(err error, hints []hint) (string, bool) {
	var ur *UpstreamRejectedError
	if !errors.As(err, &ur) {
		return "", false
	}
	for _, h := range hints {
		if ur.Field != "" && strings.Contains(ur.Field, h.field) {
			return h.message, true
		}
	}
	if ur.Field == "" {
		msg := ur.Error()
		for _, h := range hints {
			if strings.Contains(msg, h.field) {
				return h.message, true
			}
		}
	}
	return genericHint, true
}

// orchestrate runs one natural-language query: an optional detail lookup,
// then the list query, with upstream rejections turned into a hint row.
func orchestrate[F interface{ Describe() Interpretation }, S any](
	ctx context.Context,
	inv *Inventory,
	q Query,
	parse func(string) F,
	detail func(context.Context, F) (S, bool, error),
	list func(context.Context, F) ([]S, error),
	hints []hint,
	hintRow func(string) S,
) (QueryResult[S], error) {
	if err := q.Validate(); err != nil {
		return QueryResult[S]{}, err
	}
	f := parse(q.Query)
	res := QueryResult[S]{Interpretation: f.Describe(), Note: LimitNote(q.Query)}
	if res.Note != "" {
		inv.warn("Query %q: %s", q.Query, res.Note)
	}

	if detail != nil && wantsDetail(q.Query) {
		row, ok, err := detail(ctx, f)
		switch {
		case ok && err == nil:
			res.Results = []S{row}
			res.Detail = true
			return res, nil
		case ok:
			inv.debug("Detail lookup for %q failed, falling back to list: %v", q.Query, err)
		}
	}

	rows, err := list(ctx, f)
	if err != nil {
		if msg, ok := rejection(err, hints); ok {
			inv.debug("Query %q rejected upstream: %v", q.Query, err)
			res.Results = []S{hintRow(msg)}
			return res, nil
		}
		return QueryResult[S]{}, err
	}
	res.Results = rows
	return res, nil
}

// QueryDevices answers a natural-language device query. "Tell me about
// device X" tries an exact name lookup first.
func (inv *Inventory) QueryDevices(ctx context.Context, q Query) (QueryResult[DeviceSummary], error) {
	return orchestrate(ctx, inv, q, ParseDeviceQuery,
		func(ctx context.Context, f DeviceFilter) (DeviceSummary, bool, error) {
			if f.Name == "" {
				return DeviceSummary{}, false, nil
			}
			d, err := inv.GetDevice(ctx, f.Name)
			return d, true, err
		},
		inv.ListDevices, deviceHints,
		func(msg string) DeviceSummary {
			return DeviceSummary{Name: hintName, Description: msg, Tags: []string{}}
		})
}

// QuerySites answers a natural-language site query.
func (inv *Inventory) QuerySites(ctx context.Context, q Query) (QueryResult[SiteSummary], error) {
	return orchestrate(ctx, inv, q, ParseSiteQuery,
		func(ctx context.Context, f SiteFilter) (SiteSummary, bool, error) {
			if f.Name == "" {
				return SiteSummary{}, false, nil
			}
			s, err := inv.GetSite(ctx, f.Name)
			return s, true, err
		},
		inv.ListSites, siteHints,
		func(msg string) SiteSummary {
			return SiteSummary{Name: hintName, Description: msg, Tags: []string{}}
		})
}

// QueryCircuits answers a natural-language circuit query.
func (inv *Inventory) QueryCircuits(ctx context.Context, q Query) (QueryResult[CircuitSummary], error) {
	return orchestrate(ctx, inv, q, ParseCircuitQuery,
		func(ctx context.Context, f CircuitFilter) (CircuitSummary, bool, error) {
			if f.CID == "" {
				return CircuitSummary{}, false, nil
			}
			c, err := inv.GetCircuit(ctx, f.CID)
			return c, true, err
		},
		inv.ListCircuits, circuitHints,
		func(msg string) CircuitSummary {
			return CircuitSummary{CID: hintName, Description: msg, Tags: []string{}}
		})
}

// QueryPrefixes answers a natural-language prefix query. Prefixes have no
// detail lookup.
func (inv *Inventory) QueryPrefixes(ctx context.Context, q Query) (QueryResult[PrefixSummary], error) {
	return orchestrate(ctx, inv, q, ParsePrefixQuery, nil,
		inv.ListPrefixes, prefixHints,
		func(msg string) PrefixSummary {
			return PrefixSummary{Prefix: hintName, Status: "unknown", Description: msg, Tags: []string{}}
		})
}

// QueryVLANs answers a natural-language VLAN query. "Tell me about VLAN 100"
// looks the VID up first.
func (inv *Inventory) QueryVLANs(ctx context.Context, q Query) (QueryResult[VLANSummary], error) {
	return orchestrate(ctx, inv, q, ParseVLANQuery,
		func(ctx context.Context, f VLANFilter) (VLANSummary, bool, error) {
			if f.VID == 0 {
				return VLANSummary{}, false, nil
			}
			v, err := inv.vlanByVID(ctx, f.VID)
			return v, true, err
		},
		inv.ListVLANs, vlanHints,
		func(msg string) VLANSummary {
			return VLANSummary{Name: hintName, Status: "unknown", Description: msg, Tags: []string{}}
		})
}

// QueryRacks answers a natural-language rack query.
func (inv *Inventory) QueryRacks(ctx context.Context, q Query) (QueryResult[RackSummary], error) {
	return orchestrate(ctx, inv, q, ParseRackQuery,
		func(ctx context.Context, f RackFilter) (RackSummary, bool, error) {
			if f.Name == "" {
				return RackSummary{}, false, nil
			}
			r, err := inv.GetRack(ctx, f.Name)
			return r, true, err
		},
		inv.ListRacks, rackHints,
		func(msg string) RackSummary {
			return RackSummary{Name: hintName, Description: msg, Tags: []string{}}
		})
}
