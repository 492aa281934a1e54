package inventory

// Rule tables for natural-language queries. Within a rule the patterns are
// tried top to bottom; a specific phrasing is always listed before the
// generic one it would otherwise be shadowed by. Keyword chains stop at the
// first keyword present, so "deprovisioning" is read as "provisioning".

var siteOrLocation = []string{
	`(?:at|in|from)\s+(?:site|location)\s+(\w+)`,
	`(?:at|in|from)\s+(\w+)\s+(?:site|location)`,
	`site\s+(\w+)`,
}

var deviceRules = newRuleSet(
	capture("site", siteOrLocation...),
	keywords("role",
		`firewall`, "net-firewall",
		`router`, "router",
		`switch`, "office_access_switch",
		`wireless|access\s?point|\bap\b`, "net-wireless-accesspoint",
		`server`, "server",
	),
	keywords("status",
		`active`, "active",
		`planned`, "planned",
		`staged`, "staged",
		`failed`, "failed",
		`offline`, "offline",
	),
	capture("name",
		`device\s+(\w+[\w.-]*)`,
		`(\w+[\w.-]*)\s+device\b`,
	),
	capture("manufacturer", `manufacturer\s+(\w+)`).aux(),
	capture("model", `model\s+(\w+[\w.-]*)`).aux(),
)

var circuitRules = newRuleSet(
	capture("cid",
		`circuit\s+(?:id|cid)\s+([A-Za-z0-9\-_]+)`,
		`cid\s+([A-Za-z0-9\-_]+)`,
		`circuit\s+([A-Za-z0-9][\w\-]*\d[\w\-]*)`,
	),
	capture("provider", `provider\s+(\w+)`),
	keywords("type",
		`internet`, "Internet",
		`mpls`, "MPLS",
		`point.to.point|p2p`, "Point-to-Point",
		`ethernet`, "Ethernet",
		`fiber`, "Fiber",
	),
	capture("site",
		`(?:at|in|from|to)\s+(?:site|location)\s+(\w+)`,
		`(?:at|in|from|to)\s+(\w+)\s+(?:site|location)`,
		`site\s+(\w+)`,
	),
	keywords("status",
		`active`, "active",
		`planned`, "planned",
		`provisioning`, "provisioning",
		`deprovisioning`, "deprovisioning",
		`offline`, "offline",
	),
	capture("tenant", `tenant\s+(\w+)`),
)

var prefixRules = newRuleSet(
	capture("site", siteOrLocation...),
	keywords("family",
		`ipv4|ip4|v4`, "4",
		`ipv6|ip6|v6`, "6",
	),
	keywords("status",
		`active`, "active",
		`reserved`, "reserved",
		`deprecated`, "deprecated",
		`container`, "container",
	),
	keywords("is_pool", `pool`, "true"),
	capture("prefix",
		`(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}/\d{1,2})`,
		`([0-9a-fA-F:]+/\d{1,3})`,
	),
	capture("mask_length", `(?:^|\s)/(\d{1,3})\b`),
	capture("vrf", `vrf\s+(\w+)`),
	capture("vlan_vid", `\b(?:vlan|vid)\s+(\d+)\b`).between(1, MaxVID),
	capture("vlan", `\b(?:vlan|vid)\s+(\w+)`).named(),
	capture("tenant", `tenant\s+(\w+)`),
)

var vlanRules = newRuleSet(
	capture("vid", `(?:vlan|vid)\s+(\d+)\b`).between(1, MaxVID),
	capture("site",
		`(?:at|in|from)\s+(?:site\s+)?([A-Z0-9]+\d+|[A-Z]{2,4}\d+)`,
		`site\s+(\w+)`,
	),
	keywords("status",
		`active`, "active",
		`reserved`, "reserved",
		`deprecated`, "deprecated",
	),
	capture("tenant", `tenant\s+(\w+)`),
)

var siteRules = newRuleSet(
	capture("name",
		`site\s+([\w.-]+)`,
		`([\w.-]+)\s+site\b`,
	),
	capture("region",
		`region\s+([\w-]+)`,
		`in\s+([\w-]+)\s+region`,
	),
	keywords("status",
		`active`, "active",
		`planned`, "planned",
		`staging`, "staging",
		`decommissioning`, "decommissioning",
		`retired`, "retired",
	),
	capture("tenant", `tenant\s+(\w+)`),
)

var rackRules = newRuleSet(
	capture("name",
		`rack\s+([\w.-]+)`,
		`([\w.-]+)\s+rack\b`,
	),
	capture("site", siteOrLocation...),
	keywords("status",
		`active`, "active",
		`planned`, "planned",
		`reserved`, "reserved",
		`available`, "available",
		`deprecated`, "deprecated",
	),
	capture("tenant", `tenant\s+(\w+)`),
)

// ParseDeviceQuery turns free text into a device filter. It never fails: a
// query no rule understands becomes a free-text search.
func ParseDeviceQuery(text string) DeviceFilter {
	ex := deviceRules.apply(text)
	return DeviceFilter{
		Name:         ex.get("name"),
		Site:         ex.get("site"),
		Role:         ex.get("role"),
		Status:       ex.get("status"),
		Manufacturer: ex.get("manufacturer"),
		Model:        ex.get("model"),
		Search:       ex.search,
		Limit:        ex.limit,
	}
}

// ParseCircuitQuery turns free text into a circuit filter.
func ParseCircuitQuery(text string) CircuitFilter {
	ex := circuitRules.apply(text)
	return CircuitFilter{
		CID:      ex.get("cid"),
		Provider: ex.get("provider"),
		Type:     ex.get("type"),
		Site:     ex.get("site"),
		Status:   ex.get("status"),
		Tenant:   ex.get("tenant"),
		Search:   ex.search,
		Limit:    ex.limit,
	}
}

// ParsePrefixQuery turns free text into a prefix filter.
func ParsePrefixQuery(text string) PrefixFilter {
	ex := prefixRules.apply(text)
	f := PrefixFilter{
		Prefix:     ex.get("prefix"),
		Site:       ex.get("site"),
		VRF:        ex.get("vrf"),
		Tenant:     ex.get("tenant"),
		VLAN:       ex.get("vlan"),
		VLANVID:    ex.number("vlan_vid"),
		Status:     ex.get("status"),
		Family:     ex.number("family"),
		MaskLength: ex.number("mask_length"),
		Search:     ex.search,
		Limit:      ex.limit,
	}
	if ex.get("is_pool") != "" {
		pool := true
		f.IsPool = &pool
	}
	return f
}

// ParseVLANQuery turns free text into a VLAN filter. A VID outside
// 1-4094 is not a VID, so such a query falls back to a search.
func ParseVLANQuery(text string) VLANFilter {
	ex := vlanRules.apply(text)
	return VLANFilter{
		VID:    ex.number("vid"),
		Site:   ex.get("site"),
		Status: ex.get("status"),
		Tenant: ex.get("tenant"),
		Search: ex.search,
		Limit:  ex.limit,
	}
}

// ParseSiteQuery turns free text into a site filter.
func ParseSiteQuery(text string) SiteFilter {
	ex := siteRules.apply(text)
	return SiteFilter{
		Name:   ex.get("name"),
		Region: ex.get("region"),
		Status: ex.get("status"),
		Tenant: ex.get("tenant"),
		Search: ex.search,
		Limit:  ex.limit,
	}
}

// ParseRackQuery turns free text into a rack filter.
func ParseRackQuery(text string) RackFilter {
	ex := rackRules.apply(text)
	return RackFilter{
		Name:   ex.get("name"),
		Site:   ex.get("site"),
		Status: ex.get("status"),
		Tenant: ex.get("tenant"),
		Search: ex.search,
		Limit:  ex.limit,
	}
}

// Vocabulary returns every entity's rules in priority order, keyed by
// entity name.
func Vocabulary() map[string][]string {
	return map[string][]string{
		"devices":  deviceRules.Vocabulary(),
		"circuits": circuitRules.Vocabulary(),
		"prefixes": prefixRules.Vocabulary(),
		"vlans":    vlanRules.Vocabulary(),
		"sites":    siteRules.Vocabulary(),
		"racks":    rackRules.Vocabulary(),
	}
}
