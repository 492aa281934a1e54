package inventory

import (
	"context"
	"net/url"
	"strconv"

	"github.com/netbox-mcp/internal/logger"
	"github.com/netbox-mcp/internal/netbox"
)

// API is the read-only inventory API. *netbox.Client implements it.
type API interface {
	List(ctx context.Context, ep netbox.Endpoint, params url.Values) ([]netbox.Record, error)
	Get(ctx context.Context, ep netbox.Endpoint, params url.Values) (netbox.Record, error)
	GetByID(ctx context.Context, ep netbox.Endpoint, id int) (netbox.Record, error)
	Count(ctx context.Context, ep netbox.Endpoint, params url.Values) (int, error)
}

// Inventory answers list, get and natural-language queries for each entity
// type. It keeps no state between calls.
type Inventory struct {
	api      API
	resolver *Resolver
	adapter  *Adapter
	logger   *logger.Logger
}

type options struct {
	overfetch int
	logger    *logger.Logger
	onResolve func(kind, outcome string)
}

// Option configures an Inventory.
type Option func(*options)

// WithOverfetch sets the fetch multiplier used before residual filtering.
func WithOverfetch(factor int) Option {
	return func(o *options) { o.overfetch = factor }
}

// WithLogger sets the logger. Without one, nothing is logged.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithResolveObserver registers a callback for every resolver outcome.
func WithResolveObserver(fn func(kind, outcome string)) Option {
	return func(o *options) { o.onResolve = fn }
}

// New creates an Inventory over api.
func New(api API, opts ...Option) *Inventory {
	o := options{overfetch: 3}
	for _, opt := range opts {
		opt(&o)
	}
	r := NewResolver(api, o.logger)
	r.OnResolve = o.onResolve
	return &Inventory{
		api:      api,
		resolver: r,
		adapter:  NewAdapter(r, o.overfetch),
		logger:   o.logger,
	}
}

func (inv *Inventory) debug(format string, args ...interface{}) {
	if inv.logger != nil {
		inv.logger.Debug(format, args...)
	}
}

func (inv *Inventory) warn(format string, args ...interface{}) {
	if inv.logger != nil {
		inv.logger.Warn(format, args...)
	}
}

// fetch runs an adapted query and normalizes the rows.
func fetch[S any](ctx context.Context, inv *Inventory, op string, ep netbox.Endpoint, ad Adapted, normalize func(netbox.Record) S) ([]S, error) {
	records, err := inv.api.List(ctx, ep, ad.Params)
	if err != nil {
		return nil, classify(op, err)
	}
	out := make([]S, 0, len(records))
	for _, rec := range records {
		out = append(out, normalize(rec))
	}
	return out, nil
}

func single(ctx context.Context, inv *Inventory, op string, ep netbox.Endpoint, kind, field, key, value string) (netbox.Record, error) {
	params := url.Values{}
	params.Set(key, value)
	rec, err := inv.api.Get(ctx, ep, params)
	if err != nil {
		return nil, classify(op, err)
	}
	if rec == nil {
		return nil, &NotFoundError{Kind: kind, Field: field, Identifier: value}
	}
	return rec, nil
}

// ListDevices returns devices matching f.
func (inv *Inventory) ListDevices(ctx context.Context, f DeviceFilter) ([]DeviceSummary, error) {
	ad, err := inv.adapter.Devices(ctx, f)
	if err != nil {
		return nil, err
	}
	rows, err := fetch(ctx, inv, "get devices", netbox.Devices, ad, NormalizeDevice)
	if err != nil {
		return nil, err
	}
	return residual(rows, ad.Limit, nil), nil
}

// GetDevice returns the device with the given name.
func (inv *Inventory) GetDevice(ctx context.Context, name string) (DeviceSummary, error) {
	rec, err := single(ctx, inv, "get device", netbox.Devices, "Device", "name", "name", name)
	if err != nil {
		return DeviceSummary{}, err
	}
	return NormalizeDevice(rec), nil
}

// ListSites returns sites matching f.
func (inv *Inventory) ListSites(ctx context.Context, f SiteFilter) ([]SiteSummary, error) {
	ad, err := inv.adapter.Sites(ctx, f)
	if err != nil {
		return nil, err
	}
	rows, err := fetch(ctx, inv, "get sites", netbox.Sites, ad, NormalizeSite)
	if err != nil {
		return nil, err
	}
	return residual(rows, ad.Limit, nil), nil
}

// GetSite returns the named site with its device and rack counts. A count
// that cannot be read is left unset.
func (inv *Inventory) GetSite(ctx context.Context, name string) (SiteSummary, error) {
	rec, err := single(ctx, inv, "get site", netbox.Sites, "Site", "name", "name", name)
	if err != nil {
		return SiteSummary{}, err
	}
	s := NormalizeSite(rec)

	params := url.Values{}
	params.Set("site_id", strconv.Itoa(s.ID))
	if n, err := inv.api.Count(ctx, netbox.Devices, params); err == nil {
		s.DeviceCount = &n
	} else {
		inv.debug("Failed to count devices at site %s: %v", name, err)
	}
	if n, err := inv.api.Count(ctx, netbox.Racks, params); err == nil {
		s.RackCount = &n
	} else {
		inv.debug("Failed to count racks at site %s: %v", name, err)
	}
	return s, nil
}

// circuit normalizes a circuit record with its terminations. Terminations
// that cannot be fetched leave both ends empty.
func (inv *Inventory) circuit(ctx context.Context, rec netbox.Record) CircuitSummary {
	var terms []netbox.Record
	if id := idOf(rec); id > 0 {
		params := url.Values{}
		params.Set("circuit_id", strconv.Itoa(id))
		var err error
		if terms, err = inv.api.List(ctx, netbox.CircuitTerminations, params); err != nil {
			inv.debug("Failed to fetch terminations for circuit %d: %v", id, err)
		}
	}
	return NormalizeCircuit(rec, terms)
}

// ListCircuits returns circuits matching f. A site filter keeps circuits
// terminating at that site on either end.
func (inv *Inventory) ListCircuits(ctx context.Context, f CircuitFilter) ([]CircuitSummary, error) {
	ad, err := inv.adapter.Circuits(ctx, f)
	if err != nil {
		return nil, err
	}
	rows, err := fetch(ctx, inv, "get circuits", netbox.Circuits, ad, func(rec netbox.Record) CircuitSummary {
		return inv.circuit(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	var keep func(CircuitSummary) bool
	if ad.TerminationSite != "" {
		keep = terminatesAt(ad.TerminationSite)
	}
	return residual(rows, ad.Limit, keep), nil
}

// GetCircuit returns the circuit with the given circuit ID.
func (inv *Inventory) GetCircuit(ctx context.Context, cid string) (CircuitSummary, error) {
	rec, err := single(ctx, inv, "get circuit", netbox.Circuits, "Circuit", "CID", "cid", cid)
	if err != nil {
		return CircuitSummary{}, err
	}
	return inv.circuit(ctx, rec), nil
}

// ListPrefixes returns prefixes matching f.
func (inv *Inventory) ListPrefixes(ctx context.Context, f PrefixFilter) ([]PrefixSummary, error) {
	ad, err := inv.adapter.Prefixes(ctx, f)
	if err != nil {
		return nil, err
	}
	rows, err := fetch(ctx, inv, "get prefixes", netbox.Prefixes, ad, NormalizePrefix)
	if err != nil {
		return nil, err
	}
	return residual(rows, ad.Limit, nil), nil
}

// GetPrefix returns the prefix with the given numeric ID.
func (inv *Inventory) GetPrefix(ctx context.Context, id int) (PrefixSummary, error) {
	rec, err := inv.api.GetByID(ctx, netbox.Prefixes, id)
	if err != nil {
		return PrefixSummary{}, classify("get prefix", err)
	}
	if rec == nil {
		return PrefixSummary{}, &NotFoundError{Kind: "Prefix", Field: "ID", Identifier: strconv.Itoa(id)}
	}
	return NormalizePrefix(rec), nil
}

// ListVLANs returns VLANs matching f.
func (inv *Inventory) ListVLANs(ctx context.Context, f VLANFilter) ([]VLANSummary, error) {
	ad, err := inv.adapter.VLANs(ctx, f)
	if err != nil {
		return nil, err
	}
	rows, err := fetch(ctx, inv, "get VLANs", netbox.VLANs, ad, NormalizeVLAN)
	if err != nil {
		return nil, err
	}
	return residual(rows, ad.Limit, nil), nil
}

// GetVLAN returns the VLAN with the given numeric ID.
func (inv *Inventory) GetVLAN(ctx context.Context, id int) (VLANSummary, error) {
	rec, err := inv.api.GetByID(ctx, netbox.VLANs, id)
	if err != nil {
		return VLANSummary{}, classify("get VLAN", err)
	}
	if rec == nil {
		return VLANSummary{}, &NotFoundError{Kind: "VLAN", Field: "ID", Identifier: strconv.Itoa(id)}
	}
	return NormalizeVLAN(rec), nil
}

// vlanByVID returns the first VLAN carrying vid. VIDs repeat across sites
// and groups, so this is not a unique lookup.
func (inv *Inventory) vlanByVID(ctx context.Context, vid int) (VLANSummary, error) {
	params := url.Values{}
	params.Set("vid", strconv.Itoa(vid))
	params.Set("limit", "1")
	records, err := inv.api.List(ctx, netbox.VLANs, params)
	if err != nil {
		return VLANSummary{}, classify("get VLAN", err)
	}
	if len(records) == 0 {
		return VLANSummary{}, &NotFoundError{Kind: "VLAN", Field: "VID", Identifier: strconv.Itoa(vid)}
	}
	return NormalizeVLAN(records[0]), nil
}

// ListRacks returns racks matching f.
func (inv *Inventory) ListRacks(ctx context.Context, f RackFilter) ([]RackSummary, error) {
	ad, err := inv.adapter.Racks(ctx, f)
	if err != nil {
		return nil, err
	}
	rows, err := fetch(ctx, inv, "get racks", netbox.Racks, ad, NormalizeRack)
	if err != nil {
		return nil, err
	}
	return residual(rows, ad.Limit, nil), nil
}

// GetRack returns the rack with the given name.
func (inv *Inventory) GetRack(ctx context.Context, name string) (RackSummary, error) {
	rec, err := single(ctx, inv, "get rack", netbox.Racks, "Rack", "name", "name", name)
	if err != nil {
		return RackSummary{}, err
	}
	return NormalizeRack(rec), nil
}
