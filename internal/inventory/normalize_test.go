package inventory

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/netbox-mcp/internal/netbox"
)

func decode(t *testing.T, raw string) netbox.Record {
	t.Helper()
	var rec netbox.Record
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&rec))
	return rec
}

func TestNormalizeDeviceFromMappings(t *testing.T) {
	rec := decode(t, `{
		"id": 12,
		"name": "sf1.fw1",
		"site": {"id": 1, "name": "SF1"},
		"device_role": {"id": 4, "name": "net-firewall"},
		"status": {"value": "active", "label": "Active"},
		"device_type": {"model": "SRX345", "manufacturer": {"name": "Juniper"}},
		"primary_ip4": {"address": "10.0.0.1/24"},
		"tags": [{"name": "edge"}, "pci", {"slug": "dmz"}]
	}`)

	d := NormalizeDevice(rec)

	assert.Equal(t, DeviceSummary{
		ID:           12,
		Name:         "sf1.fw1",
		Site:         "SF1",
		Role:         "net-firewall",
		Status:       "active",
		Model:        "SRX345",
		Manufacturer: "Juniper",
		IPAddress:    "10.0.0.1",
		Tags:         []string{"edge", "pci", "dmz"},
	}, d)
}

func TestNormalizeDeviceFromObjectsAndScalars(t *testing.T) {
	rec := netbox.Record{
		"id":     json.Number("3"),
		"name":   "nyc.sw1",
		"site":   &Ref{ID: 2, Name: "NYC"},
		"role":   Ref{Name: "office_access_switch"},
		"status": "planned",
		"tags":   []Ref{{Name: "access"}, {Slug: "floor-2"}},
	}

	d := NormalizeDevice(rec)

	assert.Equal(t, 3, d.ID)
	assert.Equal(t, "NYC", d.Site)
	assert.Equal(t, "office_access_switch", d.Role)
	assert.Equal(t, "planned", d.Status)
	assert.Equal(t, []string{"access", "floor-2"}, d.Tags)
	assert.Empty(t, d.Model)
}

func TestNormalizeDeviceNilRef(t *testing.T) {
	var site *Ref
	d := NormalizeDevice(netbox.Record{"site": site})
	assert.Empty(t, d.Site)
	assert.NotNil(t, d.Tags)
}

func TestNormalizeSite(t *testing.T) {
	rec := decode(t, `{
		"id": 1, "name": "SF1", "slug": "sf1",
		"status": {"value": "active"},
		"region": {"name": "us-west"},
		"asn": 65001, "latitude": "37.77", "longitude": -122.41,
		"time_zone": "America/Los_Angeles"
	}`)

	s := NormalizeSite(rec)

	assert.Equal(t, "us-west", s.Region)
	require.NotNil(t, s.ASN)
	assert.Equal(t, 65001, *s.ASN)
	require.NotNil(t, s.Latitude)
	assert.InDelta(t, 37.77, *s.Latitude, 1e-9)
	require.NotNil(t, s.Longitude)
	assert.InDelta(t, -122.41, *s.Longitude, 1e-9)
	assert.Nil(t, s.DeviceCount)
}

func TestNormalizeCircuitTerminations(t *testing.T) {
	rec := decode(t, `{"id": 5, "cid": "CKT-1", "provider": {"name": "Lumen"}, "type": {"name": "Internet"}, "status": {"value": "active"}, "commit_rate": 100000}`)
	terms := []netbox.Record{
		decode(t, `{"term_side": "A", "site": {"name": "SF1"}}`),
		decode(t, `{"term_side": "z", "termination": {"name": "NYC1"}}`),
		decode(t, `{"term_side": "A", "site": {"name": "ignored"}}`),
	}

	c := NormalizeCircuit(rec, terms)

	assert.Equal(t, "CKT-1", c.CID)
	assert.Equal(t, "Lumen", c.Provider)
	assert.Equal(t, "Internet", c.Type)
	assert.Equal(t, "SF1", c.TerminationA)
	assert.Equal(t, "NYC1", c.TerminationZ)
	require.NotNil(t, c.CommitRate)
	assert.Equal(t, 100000, *c.CommitRate)
}

func TestNormalizePrefixFamily(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"prefix": "2001:db8::/32", "family": {"value": 6, "label": "IPv6"}}`, "IPv6"},
		{`{"prefix": "10.0.0.0/8", "family": 4}`, "IPv4"},
		{`{"prefix": "10.0.0.0/8"}`, "IPv4"},
		{`{"prefix": "fd00::/8", "family": "bogus"}`, "IPv6"},
		{`{}`, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePrefix(decode(t, tt.raw)).Family, tt.raw)
	}
}

func TestNormalizePrefix(t *testing.T) {
	rec := decode(t, `{
		"id": 9, "prefix": "10.1.0.0/24",
		"status": {"value": "active", "label": "Active"},
		"scope": {"name": "SF1"},
		"vlan": {"name": "users", "vid": 100},
		"is_pool": true, "utilization": 42.5
	}`)

	p := NormalizePrefix(rec)

	assert.Equal(t, "Active", p.Status)
	assert.Equal(t, "SF1", p.Site)
	assert.Equal(t, "users (VID 100)", p.VLAN)
	assert.True(t, p.IsPool)
	require.NotNil(t, p.Utilization)
	assert.InDelta(t, 42.5, *p.Utilization, 1e-9)

	assert.Equal(t, "unknown", NormalizePrefix(netbox.Record{}).Status)
	assert.Equal(t, "VLAN 7", NormalizePrefix(netbox.Record{"vlan": map[string]any{"vid": 7}}).VLAN)
}

func TestNormalizeVLANAndRack(t *testing.T) {
	v := NormalizeVLAN(decode(t, `{"id": 1, "vid": 100, "name": "users", "group": {"name": "campus"}}`))
	assert.Equal(t, 100, v.VID)
	assert.Equal(t, "campus", v.Group)
	assert.Equal(t, "unknown", v.Status)

	r := NormalizeRack(decode(t, `{"id": 2, "name": "R1", "site": {"name": "SF1"}, "location": {"name": "Floor 2"}, "u_height": 42}`))
	assert.Equal(t, "Floor 2", r.Location)
	require.NotNil(t, r.UHeight)
	assert.Equal(t, 42, *r.UHeight)
}

// anyShape draws a value in any of the shapes a field may arrive in.
func anyShape() *rapid.Generator[any] {
	return rapid.OneOf(
		rapid.Just[any](nil),
		rapid.Map(rapid.String(), func(s string) any { return s }),
		rapid.Map(rapid.Int(), func(n int) any { return json.Number(strconv.Itoa(n)) }),
		rapid.Just[any](json.Number("1e400")),
		rapid.Map(rapid.Float64(), func(f float64) any { return f }),
		rapid.Map(rapid.Bool(), func(b bool) any { return b }),
		rapid.Map(rapid.String(), func(s string) any { return map[string]any{"name": s, "value": s, "id": s} }),
		rapid.Map(rapid.String(), func(s string) any { return &Ref{Name: s} }),
		rapid.Map(rapid.String(), func(s string) any { return []any{s, map[string]any{"name": s}, 7, nil} }),
		rapid.Just[any]([]any{}),
	)
}

var recordKeys = []string{
	"id", "name", "site", "role", "device_role", "status", "device_type", "platform",
	"tenant", "rack", "primary_ip", "primary_ip4", "serial", "tags", "region", "asn",
	"latitude", "cid", "provider", "type", "commit_rate", "prefix", "family", "vlan",
	"vrf", "is_pool", "utilization", "vid", "group", "location", "u_height", "scope",
	"term_side", "termination",
}

func TestNormalizersAreTotal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rec := netbox.Record{}
		for _, key := range recordKeys {
			if rapid.Bool().Draw(t, "has_"+key) {
				rec[key] = anyShape().Draw(t, key)
			}
		}

		assert.NotNil(t, NormalizeDevice(rec).Tags)
		assert.NotNil(t, NormalizeSite(rec).Tags)
		assert.NotNil(t, NormalizeCircuit(rec, []netbox.Record{rec}).Tags)
		assert.NotEmpty(t, NormalizePrefix(rec).Status)
		assert.NotEmpty(t, NormalizeVLAN(rec).Status)
		assert.NotNil(t, NormalizeRack(rec).Tags)
	})
}
