package inventory

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netbox-mcp/internal/netbox"
)

func device(id int, name, site, role string) netbox.Record {
	return netbox.Record{
		"id":     id,
		"name":   name,
		"site":   named(id*10, site),
		"role":   named(id*100, role),
		"status": map[string]any{"value": "active", "label": "Active"},
	}
}

func invalidChoice(field string) error {
	return &netbox.APIError{
		StatusCode: http.StatusBadRequest,
		Fields:     map[string][]string{field: {"Select a valid choice. bogus is not one of the available choices."}},
	}
}

func TestListDevices(t *testing.T) {
	api := newFakeAPI().
		add(netbox.Sites, named(1, "SF1")).
		add(netbox.Devices,
			netbox.Record{"id": 1, "name": "sf1.fw1", "site": named(1, "SF1")},
			netbox.Record{"id": 2, "name": "nyc.fw1", "site": named(2, "NYC")},
		)
	inv := New(api)

	devices, err := inv.ListDevices(context.Background(), DeviceFilter{Site: "SF1"})
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "sf1.fw1", devices[0].Name)
	assert.Equal(t, "SF1", devices[0].Site)
}

func TestListDevicesPropagatesRejection(t *testing.T) {
	api := newFakeAPI().fail(netbox.Devices, invalidChoice("role"))
	inv := New(api)

	_, err := inv.ListDevices(context.Background(), DeviceFilter{Role: "bogus"})

	var rejected *UpstreamRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "role", rejected.Field)
	assert.Contains(t, err.Error(), "failed to get devices")
}

func TestListDevicesTransportError(t *testing.T) {
	api := newFakeAPI().fail(netbox.Devices, errors.New("connection reset"))
	inv := New(api)

	_, err := inv.ListDevices(context.Background(), DeviceFilter{})

	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	assert.Equal(t, "failed to get devices: connection reset", err.Error())
}

func TestGetDeviceNotFound(t *testing.T) {
	inv := New(newFakeAPI())

	_, err := inv.GetDevice(context.Background(), "ghost")

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "Device with name 'ghost' not found", err.Error())
}

func TestGetSiteCounts(t *testing.T) {
	api := newFakeAPI().
		add(netbox.Sites, netbox.Record{"id": 1, "name": "SF1"}).
		add(netbox.Devices, device(1, "a", "SF1", "router"), device(2, "b", "SF1", "router")).
		add(netbox.Racks, netbox.Record{"id": 1, "name": "R1", "site": named(1, "SF1")})
	// device() puts sites at id*10; move both onto site 1
	for _, d := range api.records[netbox.Devices] {
		d["site"] = named(1, "SF1")
	}
	inv := New(api)

	s, err := inv.GetSite(context.Background(), "SF1")
	require.NoError(t, err)
	require.NotNil(t, s.DeviceCount)
	require.NotNil(t, s.RackCount)
	assert.Equal(t, 2, *s.DeviceCount)
	assert.Equal(t, 1, *s.RackCount)
}

func TestGetSiteCountFailureLeavesCountUnset(t *testing.T) {
	api := newFakeAPI().
		add(netbox.Sites, netbox.Record{"id": 1, "name": "SF1"}).
		fail(netbox.Racks, errors.New("timeout"))
	inv := New(api)

	s, err := inv.GetSite(context.Background(), "SF1")
	require.NoError(t, err)
	require.NotNil(t, s.DeviceCount)
	assert.Nil(t, s.RackCount)
}

func circuitFixture() *fakeAPI {
	api := newFakeAPI()
	for i, ends := range [][2]string{{"NYC1", "DEN1"}, {"SF1", "NYC1"}, {"DEN1", "LAB1"}, {"LAB1", "SF1"}, {"SF1", "DEN1"}} {
		id := i + 1
		api.add(netbox.Circuits, netbox.Record{"id": id, "cid": "CKT-" + string(rune('0'+id))})
		api.add(netbox.CircuitTerminations,
			netbox.Record{"circuit": map[string]any{"id": id}, "term_side": "A", "site": named(0, ends[0])},
			netbox.Record{"circuit": map[string]any{"id": id}, "term_side": "Z", "site": named(0, ends[1])},
		)
	}
	return api
}

func TestListCircuitsBySiteOverfetches(t *testing.T) {
	api := circuitFixture()
	inv := New(api, WithOverfetch(3))

	circuits, err := inv.ListCircuits(context.Background(), CircuitFilter{Site: "sf1", Limit: 2})
	require.NoError(t, err)

	require.Len(t, circuits, 2)
	assert.Equal(t, "CKT-2", circuits[0].CID)
	assert.Equal(t, "CKT-4", circuits[1].CID)
	assert.Equal(t, "6", api.callsTo(netbox.Circuits)[0].params.Get("limit"))
}

func TestGetCircuit(t *testing.T) {
	inv := New(circuitFixture())

	c, err := inv.GetCircuit(context.Background(), "CKT-3")
	require.NoError(t, err)
	assert.Equal(t, "DEN1", c.TerminationA)
	assert.Equal(t, "LAB1", c.TerminationZ)

	_, err = inv.GetCircuit(context.Background(), "CKT-9")
	assert.EqualError(t, err, "Circuit with CID 'CKT-9' not found")
}

func TestGetPrefixAndVLANByID(t *testing.T) {
	api := newFakeAPI().
		add(netbox.Prefixes, netbox.Record{"id": 7, "prefix": "10.0.0.0/8"}).
		add(netbox.VLANs, netbox.Record{"id": 3, "vid": 100, "name": "users"})
	inv := New(api)

	p, err := inv.GetPrefix(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "IPv4", p.Family)

	_, err = inv.GetPrefix(context.Background(), 8)
	assert.EqualError(t, err, "Prefix with ID '8' not found")

	v, err := inv.GetVLAN(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 100, v.VID)
}

func TestListPrefixesByVLANNumber(t *testing.T) {
	api := newFakeAPI().add(netbox.Prefixes,
		netbox.Record{"id": 1, "prefix": "10.1.0.0/24", "vlan": map[string]any{"id": 7, "vid": 100, "name": "users"}},
		netbox.Record{"id": 2, "prefix": "10.2.0.0/24", "vlan": map[string]any{"id": 100, "vid": 5, "name": "mgmt"}},
	)
	inv := New(api)

	got, err := inv.ListPrefixes(context.Background(), ParsePrefixQuery("prefixes in vid 100"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "10.1.0.0/24", got[0].Prefix)
	assert.Equal(t, "users (VID 100)", got[0].VLAN)
}

func TestQueryDetailLookup(t *testing.T) {
	api := newFakeAPI().add(netbox.Devices, device(1, "core-sw01", "SF1", "office_access_switch"))
	inv := New(api)

	res, err := inv.QueryDevices(context.Background(), Query{Query: "Tell me about device core-sw01"})
	require.NoError(t, err)

	assert.True(t, res.Detail)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "core-sw01", res.Results[0].Name)
	assert.Equal(t, Interpretation{"name: core-sw01", "limit: 50"}, res.Interpretation)
}

func TestQueryDetailFallsBackToList(t *testing.T) {
	api := newFakeAPI()
	inv := New(api)

	res, err := inv.QueryDevices(context.Background(), Query{Query: "Tell me about device sf1.as1"})
	require.NoError(t, err)

	assert.False(t, res.Detail)
	assert.Empty(t, res.Results)
	lists := api.callsTo(netbox.Devices)
	require.Len(t, lists, 2)
	assert.Equal(t, "get", lists[0].method)
	assert.Equal(t, "list", lists[1].method)
	assert.Equal(t, "sf1.as1", lists[1].params.Get("name"))
}

func TestQueryWithoutDetailPhraseSkipsLookup(t *testing.T) {
	api := newFakeAPI().add(netbox.Devices, device(1, "edge-01", "SF1", "router"))
	inv := New(api)

	res, err := inv.QueryDevices(context.Background(), Query{Query: "where is the edge-01 device"})
	require.NoError(t, err)

	require.Len(t, res.Results, 1)
	assert.False(t, res.Detail)
	assert.Equal(t, "list", api.callsTo(netbox.Devices)[0].method)
}

func TestQueryRejectionBecomesHint(t *testing.T) {
	tests := []struct {
		name  string
		run   func(*Inventory) (string, string, error)
		field string
		want  string
	}{
		{
			name: "device role",
			run: func(inv *Inventory) (string, string, error) {
				res, err := inv.QueryDevices(context.Background(), Query{Query: "List all firewalls"})
				if err != nil || len(res.Results) != 1 {
					return "", "", err
				}
				return res.Results[0].Name, res.Results[0].Description, nil
			},
			want: deviceHints[0].message,
		},
		{
			name: "circuit type",
			run: func(inv *Inventory) (string, string, error) {
				res, err := inv.QueryCircuits(context.Background(), Query{Query: "show mpls circuits"})
				if err != nil || len(res.Results) != 1 {
					return "", "", err
				}
				return res.Results[0].CID, res.Results[0].Description, nil
			},
			want: circuitHints[1].message,
		},
		{
			name: "vlan status",
			run: func(inv *Inventory) (string, string, error) {
				res, err := inv.QueryVLANs(context.Background(), Query{Query: "reserved vlans"})
				if err != nil || len(res.Results) != 1 {
					return "", "", err
				}
				return res.Results[0].Name, res.Results[0].Description, nil
			},
			want: vlanHints[0].message,
		},
	}

	fields := map[string]string{"device role": "role_id", "circuit type": "type", "vlan status": "status"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			for _, ep := range []netbox.Endpoint{netbox.Devices, netbox.Circuits, netbox.VLANs} {
				api.fail(ep, invalidChoice(fields[tt.name]))
			}
			name, desc, err := tt.run(New(api))
			require.NoError(t, err)
			assert.Equal(t, hintName, name)
			assert.Equal(t, tt.want, desc)
		})
	}
}

func TestRejectionWithoutKnownFieldUsesGenericHint(t *testing.T) {
	api := newFakeAPI().fail(netbox.Racks, invalidChoice("location"))
	inv := New(api)

	res, err := inv.QueryRacks(context.Background(), Query{Query: "racks at site SF1"})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, genericHint, res.Results[0].Description)
}

func TestQueryTransportErrorPropagates(t *testing.T) {
	api := newFakeAPI().fail(netbox.Prefixes, errors.New("dial tcp: refused"))
	inv := New(api)

	_, err := inv.QueryPrefixes(context.Background(), Query{Query: "ipv6 prefixes"})

	var transport *TransportError
	assert.ErrorAs(t, err, &transport)
}

func TestQueryValidation(t *testing.T) {
	inv := New(newFakeAPI())

	_, err := inv.QuerySites(context.Background(), Query{Query: " a "})
	assert.EqualError(t, err, "query must be at least 3 characters")
}

func TestQueryCarriesLimitNote(t *testing.T) {
	inv := New(newFakeAPI())

	res, err := inv.QueryDevices(context.Background(), Query{Query: "show limit 5000 switches"})
	require.NoError(t, err)
	assert.Equal(t, "requested limit 5000 is outside 1-1000; using 1000", res.Note)
	assert.Contains(t, res.Interpretation, "limit: 1000")
}

func TestQueryVLANDetailByVID(t *testing.T) {
	api := newFakeAPI().add(netbox.VLANs, netbox.Record{"id": 3, "vid": 100, "name": "users"})
	inv := New(api)

	res, err := inv.QueryVLANs(context.Background(), Query{Query: "tell me about vlan 100"})
	require.NoError(t, err)
	assert.True(t, res.Detail)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "users", res.Results[0].Name)
}
