package inventory

import (
	"strings"

	"github.com/netbox-mcp/internal/netbox"
)

// Normalizers turn raw records into summaries. They are total: a missing or
// oddly shaped field yields the zero value, never a failure.

func idOf(rec netbox.Record) int {
	id, _ := intOf(rec["id"])
	return id
}

func statusValue(v any) string {
	return display(v, "value", "label")
}

// firstOf returns the first present key of rec; used where the API renamed a
// field between versions.
func firstOf(rec netbox.Record, keys ...string) any {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// primaryIP returns the primary address without its mask.
func primaryIP(rec netbox.Record) string {
	for _, key := range []string{"primary_ip", "primary_ip4", "primary_ip6"} {
		if addr := display(rec[key], "address"); addr != "" {
			ip, _, _ := strings.Cut(addr, "/")
			return ip
		}
	}
	return ""
}

// NormalizeDevice flattens a device record.
func NormalizeDevice(rec netbox.Record) DeviceSummary {
	deviceType := rec["device_type"]
	return DeviceSummary{
		ID:           idOf(rec),
		Name:         text(rec["name"]),
		Site:         display(rec["site"], "name", "display"),
		Role:         display(firstOf(rec, "role", "device_role"), "name", "display"),
		Status:       statusValue(rec["status"]),
		Model:        display(deviceType, "model", "display", "name"),
		Manufacturer: display(child(deviceType, "manufacturer"), "name", "display"),
		Platform:     display(rec["platform"], "name"),
		Tenant:       display(rec["tenant"], "name"),
		Rack:         display(rec["rack"], "name"),
		IPAddress:    primaryIP(rec),
		Serial:       text(rec["serial"]),
		Description:  text(rec["description"]),
		Tags:         tagNames(rec["tags"]),
	}
}

// NormalizeSite flattens a site record.
func NormalizeSite(rec netbox.Record) SiteSummary {
	return SiteSummary{
		ID:              idOf(rec),
		Name:            text(rec["name"]),
		Slug:            text(rec["slug"]),
		Status:          statusValue(rec["status"]),
		Region:          display(rec["region"], "name"),
		Tenant:          display(rec["tenant"], "name"),
		Facility:        text(rec["facility"]),
		ASN:             intPtr(rec["asn"]),
		TimeZone:        text(rec["time_zone"]),
		Description:     text(rec["description"]),
		PhysicalAddress: text(rec["physical_address"]),
		ShippingAddress: text(rec["shipping_address"]),
		Latitude:        floatPtr(rec["latitude"]),
		Longitude:       floatPtr(rec["longitude"]),
		Tags:            tagNames(rec["tags"]),
	}
}

// NormalizeCircuit flattens a circuit record. terminations are the circuit's
// termination records; the A and Z side site names are taken from them.
func NormalizeCircuit(rec netbox.Record, terminations []netbox.Record) CircuitSummary {
	s := CircuitSummary{
		ID:          idOf(rec),
		CID:         text(rec["cid"]),
		Provider:    display(rec["provider"], "name", "display"),
		Type:        display(rec["type"], "name", "display"),
		Status:      statusValue(rec["status"]),
		Description: text(rec["description"]),
		InstallDate: text(rec["install_date"]),
		CommitRate:  intPtr(rec["commit_rate"]),
		Tenant:      display(rec["tenant"], "name"),
		Tags:        tagNames(rec["tags"]),
	}

	for _, term := range terminations {
		site := terminationSite(term)
		switch strings.ToUpper(text(term["term_side"])) {
		case "A":
			if s.TerminationA == "" {
				s.TerminationA = site
			}
		case "Z":
			if s.TerminationZ == "" {
				s.TerminationZ = site
			}
		}
	}
	return s
}

// terminationSite reads the termination's site; newer API versions expose it
// as a generic "termination" object.
func terminationSite(term netbox.Record) string {
	if site := display(term["site"], "name"); site != "" {
		return site
	}
	return display(term["termination"], "name", "display")
}

func familyLabel(family int) string {
	switch family {
	case 6:
		return "IPv6"
	case 4:
		return "IPv4"
	}
	return ""
}

// prefixFamily maps the family field (mapping with value, or bare number) to
// a label, falling back to the shape of the prefix itself.
func prefixFamily(rec netbox.Record) string {
	v := rec["family"]
	if shapeOf(v) == shapeMapping || shapeOf(v) == shapeObject {
		v = child(v, "value")
	}
	if n, ok := intOf(v); ok {
		if label := familyLabel(n); label != "" {
			return label
		}
	}
	prefix := text(rec["prefix"])
	switch {
	case strings.Contains(prefix, ":"):
		return "IPv6"
	case strings.Contains(prefix, "."):
		return "IPv4"
	}
	return ""
}

// vlanLabel renders a prefix's VLAN as "name (VID n)".
func vlanLabel(v any) string {
	switch shapeOf(v) {
	case shapeMapping, shapeObject:
		name := display(v, "name")
		vid := text(child(v, "vid"))
		switch {
		case name != "" && vid != "":
			return name + " (VID " + vid + ")"
		case vid != "":
			return "VLAN " + vid
		default:
			return name
		}
	case shapeScalar:
		return text(v)
	}
	return ""
}

// NormalizePrefix flattens a prefix record.
func NormalizePrefix(rec netbox.Record) PrefixSummary {
	status := display(rec["status"], "label", "value")
	if status == "" {
		status = "unknown"
	}
	site := display(rec["site"], "name")
	if site == "" {
		site = display(rec["scope"], "name")
	}
	return PrefixSummary{
		ID:           idOf(rec),
		Prefix:       text(rec["prefix"]),
		Site:         site,
		VRF:          display(rec["vrf"], "name"),
		Tenant:       display(rec["tenant"], "name"),
		VLAN:         vlanLabel(rec["vlan"]),
		Status:       status,
		Role:         display(rec["role"], "name"),
		Family:       prefixFamily(rec),
		IsPool:       boolOf(rec["is_pool"]),
		Description:  text(rec["description"]),
		Tags:         tagNames(rec["tags"]),
		Utilization:  floatPtr(rec["utilization"]),
		AvailableIPs: intPtr(rec["available_ips"]),
		Created:      text(rec["created"]),
		LastUpdated:  text(rec["last_updated"]),
	}
}

// NormalizeVLAN flattens a VLAN record.
func NormalizeVLAN(rec netbox.Record) VLANSummary {
	vid, _ := intOf(rec["vid"])
	status := statusValue(rec["status"])
	if status == "" {
		status = "unknown"
	}
	return VLANSummary{
		ID:          idOf(rec),
		VID:         vid,
		Name:        text(rec["name"]),
		Site:        display(rec["site"], "name"),
		Group:       display(rec["group"], "name"),
		Tenant:      display(rec["tenant"], "name"),
		Role:        display(rec["role"], "name"),
		Status:      status,
		Description: text(rec["description"]),
		Tags:        tagNames(rec["tags"]),
		Created:     text(rec["created"]),
		LastUpdated: text(rec["last_updated"]),
	}
}

// NormalizeRack flattens a rack record.
func NormalizeRack(rec netbox.Record) RackSummary {
	return RackSummary{
		ID:          idOf(rec),
		Name:        text(rec["name"]),
		Site:        display(rec["site"], "name"),
		Location:    display(rec["location"], "name"),
		Tenant:      display(rec["tenant"], "name"),
		Status:      statusValue(rec["status"]),
		Role:        display(rec["role"], "name"),
		Serial:      text(rec["serial"]),
		AssetTag:    text(rec["asset_tag"]),
		UHeight:     intPtr(rec["u_height"]),
		Description: text(rec["description"]),
		Tags:        tagNames(rec["tags"]),
	}
}
