package service

import "github.com/netbox-mcp/internal/inventory"

// Device Tool Arguments
type ListDevicesArgs inventory.DeviceFilter

type GetDeviceArgs struct {
	Name string `json:"name" jsonschema:"required,description=Exact device name"`
}

type QueryDevicesArgs inventory.Query

// Site Tool Arguments
type ListSitesArgs inventory.SiteFilter

type GetSiteArgs struct {
	Name string `json:"name" jsonschema:"required,description=Exact site name"`
}

type QuerySitesArgs inventory.Query

// Circuit Tool Arguments
type ListCircuitsArgs inventory.CircuitFilter

type GetCircuitArgs struct {
	CID string `json:"cid" jsonschema:"required,description=Exact circuit ID"`
}

type QueryCircuitsArgs inventory.Query

// Prefix Tool Arguments
type ListPrefixesArgs inventory.PrefixFilter

type GetPrefixArgs struct {
	ID int `json:"id" jsonschema:"required,description=Numeric prefix ID"`
}

type QueryPrefixesArgs inventory.Query

// VLAN Tool Arguments
type ListVLANsArgs inventory.VLANFilter

type GetVLANArgs struct {
	ID int `json:"id" jsonschema:"required,description=Numeric VLAN ID (not the VID)"`
}

type QueryVLANsArgs inventory.Query

// Rack Tool Arguments
type ListRacksArgs inventory.RackFilter

type GetRackArgs struct {
	Name string `json:"name" jsonschema:"required,description=Exact rack name"`
}

type QueryRacksArgs inventory.Query

// Journal Tool Arguments
type GetQueryHistoryArgs struct {
	Limit int `json:"limit,omitempty" jsonschema:"description=Number of recent calls to return (default 20)"`
}

type GetQueryAnalyticsArgs struct {
	// unused; the MCP library needs one field
	RandomString string `json:"random_string" jsonschema:"description=Unused"`
}

// Prompt Arguments
type InventoryQueryGuideArgs struct {
	Entity string `json:"entity" jsonschema:"description=Entity type to focus on: devices/sites/circuits/prefixes/vlans/racks (optional)"`
}
