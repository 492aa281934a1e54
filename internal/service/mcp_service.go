package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	mcp "github.com/metoro-io/mcp-golang"

	"github.com/netbox-mcp/internal/inventory"
	"github.com/netbox-mcp/internal/journal"
	"github.com/netbox-mcp/internal/logger"
	"github.com/netbox-mcp/internal/metrics"
)

const capabilitiesURI = "netbox://inventory/capabilities"

// NetBoxMCPService exposes the inventory as MCP tools.
type NetBoxMCPService struct {
	inventory *inventory.Inventory
	journal   *journal.Journal // nil when journaling is disabled
	metrics   *metrics.Metrics // nil when metrics are disabled
	logger    *logger.Logger
	tools     []toolSpec
	// Context cancellation for graceful shutdown
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// NewNetBoxMCPService creates the service. j and m may be nil.
func NewNetBoxMCPService(inv *inventory.Inventory, j *journal.Journal, m *metrics.Metrics, log *logger.Logger) *NetBoxMCPService {
	ctx, cancelFunc := context.WithCancel(context.Background())
	s := &NetBoxMCPService{
		inventory:  inv,
		journal:    j,
		metrics:    m,
		logger:     log,
		ctx:        ctx,
		cancelFunc: cancelFunc,
	}
	s.tools = s.toolTable()
	return s
}

// Shutdown cancels in-flight calls and closes the journal.
func (s *NetBoxMCPService) Shutdown() error {
	s.logger.Info("Shutting down NetBoxMCPService...")
	s.cancelFunc()

	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.logger.Error("Failed to close journal: %v", err)
			return fmt.Errorf("failed to close journal: %w", err)
		}
	}

	s.logger.Info("NetBoxMCPService shutdown complete")
	return nil
}

// toolResult is what a handler produces before it is rendered and recorded.
type toolResult struct {
	text           string
	count          int
	query          string
	interpretation string
}

// run times fn, then logs, meters and journals the call.
func (s *NetBoxMCPService) run(tool string, args interface{}, fn func(ctx context.Context) (toolResult, error)) (*mcp.ToolResponse, error) {
	return s.call(tool, args, true, fn)
}

func (s *NetBoxMCPService) call(tool string, args interface{}, journaled bool, fn func(ctx context.Context) (toolResult, error)) (*mcp.ToolResponse, error) {
	requestID := uuid.NewString()
	start := time.Now()
	res, err := fn(s.ctx)
	duration := time.Since(start)

	s.logger.LogToolCall(requestID, tool, args, duration, err)
	s.metrics.ObserveToolCall(tool, duration, err)
	if journaled {
		s.record(tool, res, duration, err)
	}

	if err != nil {
		return nil, err
	}
	return mcp.NewToolResponse(mcp.NewTextContent(res.text)), nil
}

// record journals a call. Failures never reach the caller.
func (s *NetBoxMCPService) record(tool string, res toolResult, duration time.Duration, callErr error) {
	if s.journal == nil {
		return
	}
	entry := journal.Entry{
		Tool:           tool,
		Query:          res.query,
		Interpretation: res.interpretation,
		ResultCount:    res.count,
		Duration:       duration,
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	}
	if err := s.journal.Record(context.Background(), entry); err != nil {
		s.logger.Debug("Failed to journal %s call: %v", tool, err)
	}
}

func marshal(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal response: %w", err)
	}
	return string(data), nil
}

// found renders a list response.
func found[S any](noun string, rows []S, interpretation inventory.Interpretation) (toolResult, error) {
	if rows == nil {
		rows = []S{}
	}
	body, err := marshal(rows)
	if err != nil {
		return toolResult{}, err
	}
	return toolResult{
		text:           fmt.Sprintf("Found %d %s:\n%s", len(rows), noun, body),
		count:          len(rows),
		interpretation: interpretation.String(),
	}, nil
}

// details renders a single-entity response.
func details(entity string, v interface{}, identifier string) (toolResult, error) {
	body, err := marshal(v)
	if err != nil {
		return toolResult{}, err
	}
	return toolResult{
		text:  fmt.Sprintf("%s details:\n%s", entity, body),
		count: 1,
		query: identifier,
	}, nil
}

// answered renders a natural-language query response: the interpretation,
// the clamp note if any, then either the detail record or the list.
func answered[S any](noun, entity, query string, res inventory.QueryResult[S]) (toolResult, error) {
	var out toolResult
	var err error
	if res.Detail && len(res.Results) == 1 {
		out, err = details(entity, res.Results[0], query)
	} else {
		out, err = found(noun, res.Results, nil)
	}
	if err != nil {
		return toolResult{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Interpreted as: %s\n", res.Interpretation)
	if res.Note != "" {
		fmt.Fprintf(&b, "Note: %s\n", res.Note)
	}
	b.WriteString(out.text)

	out.text = b.String()
	out.query = query
	out.interpretation = res.Interpretation.String()
	return out, nil
}

type toolSpec struct {
	name        string
	description string
	handler     interface{}
}

func (s *NetBoxMCPService) toolTable() []toolSpec {
	return []toolSpec{
		// Devices
		{"list_devices", "List NetBox devices filtered by name, site, role, status, manufacturer, model, tag or free-text search. Site, role and model accept names or numeric IDs.", s.listDevices},
		{"get_device", "Get one NetBox device by exact name.", s.getDevice},
		{"query_devices", "Answer a plain-English question about devices, e.g. 'active firewalls at site dc1' or 'tell me about device edge-01'. The response shows how the question was interpreted.", s.queryDevices},

		// Sites
		{"list_sites", "List NetBox sites filtered by name, status, region, tenant, tag or free-text search.", s.listSites},
		{"get_site", "Get one NetBox site by exact name, including its device and rack counts.", s.getSite},
		{"query_sites", "Answer a plain-English question about sites, e.g. 'planned sites in region emea'.", s.querySites},

		// Circuits
		{"list_circuits", "List NetBox circuits filtered by circuit ID, provider, type, status, site (either termination), tenant, description, tag or free-text search.", s.listCircuits},
		{"get_circuit", "Get one NetBox circuit by exact circuit ID, including the site at each termination.", s.getCircuit},
		{"query_circuits", "Answer a plain-English question about circuits, e.g. 'MPLS circuits from provider zayo at site nyc1'.", s.queryCircuits},

		// Prefixes
		{"list_prefixes", "List NetBox IP prefixes filtered by prefix, site, VRF, tenant, VLAN, status, role, family, mask length, pool flag, tag or free-text search.", s.listPrefixes},
		{"get_prefix", "Get one NetBox IP prefix by numeric ID.", s.getPrefix},
		{"query_prefixes", "Answer a plain-English question about IP prefixes, e.g. 'active IPv4 /24 prefixes at site dc1'.", s.queryPrefixes},

		// VLANs
		{"list_vlans", "List NetBox VLANs filtered by VID, name, site, group, tenant, role, status, description, tag or free-text search.", s.listVLANs},
		{"get_vlan", "Get one NetBox VLAN by numeric ID.", s.getVLAN},
		{"query_vlans", "Answer a plain-English question about VLANs, e.g. 'tell me about VLAN 100' or 'reserved vlans at site dc1'.", s.queryVLANs},

		// Racks
		{"list_racks", "List NetBox racks filtered by name, site, status, role, tenant, tag or free-text search.", s.listRacks},
		{"get_rack", "Get one NetBox rack by exact name.", s.getRack},
		{"query_racks", "Answer a plain-English question about racks, e.g. 'available racks at site dc1'.", s.queryRacks},

		// Journal
		{"get_query_history", "Show the most recent tool calls made against this NetBox instance, with their interpretations and result counts.", s.getQueryHistory},
		{"get_query_analytics", "Show per-tool call counts, error counts and average durations for this NetBox instance.", s.getQueryAnalytics},
	}
}

// RegisterTools registers all NetBox tools with the MCP server
func (s *NetBoxMCPService) RegisterTools(server *mcp.Server) error {
	for _, t := range s.tools {
		if err := server.RegisterTool(t.name, t.description, t.handler); err != nil {
			return fmt.Errorf("failed to register %s tool: %w", t.name, err)
		}
	}
	s.logger.Debug("Registered %d MCP tools", len(s.tools))
	return nil
}

// RegisterPrompts registers the query guide prompt with the MCP server
func (s *NetBoxMCPService) RegisterPrompts(server *mcp.Server) error {
	if err := server.RegisterPrompt("inventory_query_guide",
		"How to phrase natural-language inventory questions so the query tools understand them",
		func(args InventoryQueryGuideArgs) (*mcp.PromptResponse, error) {
			guide, err := s.queryGuide(args.Entity)
			if err != nil {
				return nil, err
			}
			return mcp.NewPromptResponse("Inventory Query Guide", mcp.NewPromptMessage(mcp.NewTextContent(guide), mcp.RoleAssistant)), nil
		}); err != nil {
		return fmt.Errorf("failed to register inventory_query_guide prompt: %w", err)
	}

	s.logger.Info("MCP ready - NetBox tools registered")
	return nil
}

// RegisterResources registers contextual resources with the MCP server
func (s *NetBoxMCPService) RegisterResources(server *mcp.Server) error {
	if err := server.RegisterResource(capabilitiesURI, "inventory_capabilities", "Available NetBox tools and the vocabulary the natural-language query tools understand", "application/json", func() (*mcp.ResourceResponse, error) {
		body, err := s.capabilities()
		s.logger.LogResourceAccess(capabilitiesURI, err == nil, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build capabilities: %w", err)
		}
		return mcp.NewResourceResponse(mcp.NewTextEmbeddedResource(capabilitiesURI, body, "application/json")), nil
	}); err != nil {
		return fmt.Errorf("failed to register inventory_capabilities resource: %w", err)
	}

	s.logger.Debug("Successfully registered MCP resources")
	return nil
}

type toolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type capabilityDoc struct {
	Tools      []toolInfo          `json:"tools"`
	Vocabulary map[string][]string `json:"vocabulary"`
	Limits     map[string]int      `json:"limits"`
}

func (s *NetBoxMCPService) capabilities() (string, error) {
	c := capabilityDoc{
		Vocabulary: inventory.Vocabulary(),
		Limits: map[string]int{
			"default":          inventory.DefaultLimit,
			"max":              inventory.MaxLimit,
			"min_query_length": inventory.MinQueryLength,
		},
	}
	for _, t := range s.tools {
		c.Tools = append(c.Tools, toolInfo{Name: t.name, Description: t.description})
	}
	return marshal(c)
}

func (s *NetBoxMCPService) queryGuide(entity string) (string, error) {
	vocab := inventory.Vocabulary()
	entities := make([]string, 0, len(vocab))
	for name := range vocab {
		entities = append(entities, name)
	}
	sort.Strings(entities)

	if entity = strings.ToLower(strings.TrimSpace(entity)); entity != "" {
		if _, ok := vocab[entity]; !ok {
			return "", fmt.Errorf("unknown entity %q (expected one of: %s)", entity, strings.Join(entities, ", "))
		}
		entities = []string{entity}
	}

	var b strings.Builder
	b.WriteString("# Asking NetBox inventory questions\n\n")
	b.WriteString("Each query_* tool takes one plain-English question. Recognized words become filters; ")
	b.WriteString("anything else becomes a free-text search. Every answer starts with 'Interpreted as:' ")
	b.WriteString("so you can check what was understood and rephrase if needed.\n\n")
	b.WriteString("Phrases like 'tell me about', 'details for' or 'information on' ask for one specific record ")
	b.WriteString("and try an exact lookup before listing.\n\n")
	fmt.Fprintf(&b, "Results default to %d; say 'limit N' or 'top N' for up to %d.\n", inventory.DefaultLimit, inventory.MaxLimit)

	for _, name := range entities {
		fmt.Fprintf(&b, "\n## query_%s\n", name)
		for _, rule := range vocab[name] {
			fmt.Fprintf(&b, "- %s\n", rule)
		}
	}
	return b.String(), nil
}

// Devices

func (s *NetBoxMCPService) listDevices(args ListDevicesArgs) (*mcp.ToolResponse, error) {
	f := inventory.DeviceFilter(args)
	return s.run("list_devices", args, func(ctx context.Context) (toolResult, error) {
		rows, err := s.inventory.ListDevices(ctx, f)
		if err != nil {
			return toolResult{}, fmt.Errorf("failed to list devices: %w", err)
		}
		return found("devices", rows, f.Describe())
	})
}

func (s *NetBoxMCPService) getDevice(args GetDeviceArgs) (*mcp.ToolResponse, error) {
	return s.run("get_device", args, func(ctx context.Context) (toolResult, error) {
		if strings.TrimSpace(args.Name) == "" {
			return toolResult{}, fmt.Errorf("device name is required")
		}
		d, err := s.inventory.GetDevice(ctx, args.Name)
		if err != nil {
			return toolResult{}, fmt.Errorf("failed to get device: %w", err)
		}
		return details("Device", d, args.Name)
	})
}

func (s *NetBoxMCPService) queryDevices(args QueryDevicesArgs) (*mcp.ToolResponse, error) {
	return s.run("query_devices", args, func(ctx context.Context) (toolResult, error) {
		res, err := s.inventory.QueryDevices(ctx, inventory.Query(args))
		if err != nil {
			return toolResult{query: args.Query}, fmt.Errorf("failed to query devices: %w", err)
		}
		return answered("devices", "Device", args.Query, res)
	})
}

// Sites

func (s *NetBoxMCPService) listSites(args ListSitesArgs) (*mcp.ToolResponse, error) {
	f := inventory.SiteFilter(args)
	return s.run("list_sites", args, func(ctx context.Context) (toolResult, error) {
		rows, err := s.inventory.ListSites(ctx, f)
		if err != nil {
			return toolResult{}, fmt.Errorf("failed to list sites: %w", err)
		}
		return found("sites", rows, f.Describe())
	})
}

func (s *NetBoxMCPService) getSite(args GetSiteArgs) (*mcp.ToolResponse, error) {
	return s.run("get_site", args, func(ctx context.Context) (toolResult, error) {
		if strings.TrimSpace(args.Name) == "" {
			return toolResult{}, fmt.Errorf("site name is required")
		}
		site, err := s.inventory.GetSite(ctx, args.Name)
		if err != nil {
			return toolResult{}, fmt.Errorf("failed to get site: %w", err)
		}
		return details("Site", site, args.Name)
	})
}

func (s *NetBoxMCPService) querySites(args QuerySitesArgs) (*mcp.ToolResponse, error) {
	return s.run("query_sites", args, func(ctx context.Context) (toolResult, error) {
		res, err := s.inventory.QuerySites(ctx, inventory.Query(args))
		if err != nil {
			return toolResult{query: args.Query}, fmt.Errorf("failed to query sites: %w", err)
		}
		return answered("sites", "Site", args.Query, res)
	})
}

// Circuits

func (s *NetBoxMCPService) listCircuits(args ListCircuitsArgs) (*mcp.ToolResponse, error) {
	f := inventory.CircuitFilter(args)
	return s.run("list_circuits", args, func(ctx context.Context) (toolResult, error) {
		rows, err := s.inventory.ListCircuits(ctx, f)
		if err != nil {
			return toolResult{}, fmt.Errorf("failed to list circuits: %w", err)
		}
		return found("circuits", rows, f.Describe())
	})
}

func (s *NetBoxMCPService) getCircuit(args GetCircuitArgs) (*mcp.ToolResponse, error) {
	return s.run("get_circuit", args, func(ctx context.Context) (toolResult, error) {
		if strings.TrimSpace(args.CID) == "" {
			return toolResult{}, fmt.Errorf("circuit ID is required")
		}
		c, err := s.inventory.GetCircuit(ctx, args.CID)
		if err != nil {
			return toolResult{}, fmt.Errorf("failed to get circuit: %w", err)
		}
		return details("Circuit", c, args.CID)
	})
}

func (s *NetBoxMCPService) queryCircuits(args QueryCircuitsArgs) (*mcp.ToolResponse, error) {
	return s.run("query_circuits", args, func(ctx context.Context) (toolResult, error) {
		res, err := s.inventory.QueryCircuits(ctx, inventory.Query(args))
		if err != nil {
			return toolResult{query: args.Query}, fmt.Errorf("failed to query circuits: %w", err)
		}
		return answered("circuits", "Circuit", args.Query, res)
	})
}

// Prefixes

func (s *NetBoxMCPService) listPrefixes(args ListPrefixesArgs) (*mcp.ToolResponse, error) {
	f := inventory.PrefixFilter(args)
	return s.run("list_prefixes", args, func(ctx context.Context) (toolResult, error) {
		rows, err := s.inventory.ListPrefixes(ctx, f)
		if err != nil {
			return toolResult{}, fmt.Errorf("failed to list prefixes: %w", err)
		}
		return found("prefixes", rows, f.Describe())
	})
}

func (s *NetBoxMCPService) getPrefix(args GetPrefixArgs) (*mcp.ToolResponse, error) {
	return s.run("get_prefix", args, func(ctx context.Context) (toolResult, error) {
		if args.ID <= 0 {
			return toolResult{}, fmt.Errorf("prefix ID must be a positive integer")
		}
		p, err := s.inventory.GetPrefix(ctx, args.ID)
		if err != nil {
			return toolResult{}, fmt.Errorf("failed to get prefix: %w", err)
		}
		return details("Prefix", p, fmt.Sprint(args.ID))
	})
}

func (s *NetBoxMCPService) queryPrefixes(args QueryPrefixesArgs) (*mcp.ToolResponse, error) {
	return s.run("query_prefixes", args, func(ctx context.Context) (toolResult, error) {
		res, err := s.inventory.QueryPrefixes(ctx, inventory.Query(args))
		if err != nil {
			return toolResult{query: args.Query}, fmt.Errorf("failed to query prefixes: %w", err)
		}
		return answered("prefixes", "Prefix", args.Query, res)
	})
}

// VLANs

func (s *NetBoxMCPService) listVLANs(args ListVLANsArgs) (*mcp.ToolResponse, error) {
	f := inventory.VLANFilter(args)
	return s.run("list_vlans", args, func(ctx context.Context) (toolResult, error) {
		rows, err := s.inventory.ListVLANs(ctx, f)
		if err != nil {
			return toolResult{}, fmt.Errorf("failed to list VLANs: %w", err)
		}
		return found("VLANs", rows, f.Describe())
	})
}

func (s *NetBoxMCPService) getVLAN(args GetVLANArgs) (*mcp.ToolResponse, error) {
	return s.run("get_vlan", args, func(ctx context.Context) (toolResult, error) {
		if args.ID <= 0 {
			return toolResult{}, fmt.Errorf("VLAN ID must be a positive integer")
		}
		v, err := s.inventory.GetVLAN(ctx, args.ID)
		if err != nil {
			return toolResult{}, fmt.Errorf("failed to get VLAN: %w", err)
		}
		return details("VLAN", v, fmt.Sprint(args.ID))
	})
}

func (s *NetBoxMCPService) queryVLANs(args QueryVLANsArgs) (*mcp.ToolResponse, error) {
	return s.run("query_vlans", args, func(ctx context.Context) (toolResult, error) {
		res, err := s.inventory.QueryVLANs(ctx, inventory.Query(args))
		if err != nil {
			return toolResult{query: args.Query}, fmt.Errorf("failed to query VLANs: %w", err)
		}
		return answered("VLANs", "VLAN", args.Query, res)
	})
}

// Racks

func (s *NetBoxMCPService) listRacks(args ListRacksArgs) (*mcp.ToolResponse, error) {
	f := inventory.RackFilter(args)
	return s.run("list_racks", args, func(ctx context.Context) (toolResult, error) {
		rows, err := s.inventory.ListRacks(ctx, f)
		if err != nil {
			return toolResult{}, fmt.Errorf("failed to list racks: %w", err)
		}
		return found("racks", rows, f.Describe())
	})
}

func (s *NetBoxMCPService) getRack(args GetRackArgs) (*mcp.ToolResponse, error) {
	return s.run("get_rack", args, func(ctx context.Context) (toolResult, error) {
		if strings.TrimSpace(args.Name) == "" {
			return toolResult{}, fmt.Errorf("rack name is required")
		}
		r, err := s.inventory.GetRack(ctx, args.Name)
		if err != nil {
			return toolResult{}, fmt.Errorf("failed to get rack: %w", err)
		}
		return details("Rack", r, args.Name)
	})
}

func (s *NetBoxMCPService) queryRacks(args QueryRacksArgs) (*mcp.ToolResponse, error) {
	return s.run("query_racks", args, func(ctx context.Context) (toolResult, error) {
		res, err := s.inventory.QueryRacks(ctx, inventory.Query(args))
		if err != nil {
			return toolResult{query: args.Query}, fmt.Errorf("failed to query racks: %w", err)
		}
		return answered("racks", "Rack", args.Query, res)
	})
}

// Journal

func (s *NetBoxMCPService) getQueryHistory(args GetQueryHistoryArgs) (*mcp.ToolResponse, error) {
	return s.call("get_query_history", args, false, func(ctx context.Context) (toolResult, error) {
		if s.journal == nil {
			return toolResult{}, fmt.Errorf("query journal is not enabled")
		}
		entries, err := s.journal.Recent(ctx, args.Limit)
		if err != nil {
			return toolResult{}, fmt.Errorf("failed to get query history: %w", err)
		}
		body, err := marshal(entries)
		if err != nil {
			return toolResult{}, err
		}
		return toolResult{text: fmt.Sprintf("Recent queries (%d):\n%s", len(entries), body), count: len(entries)}, nil
	})
}

func (s *NetBoxMCPService) getQueryAnalytics(args GetQueryAnalyticsArgs) (*mcp.ToolResponse, error) {
	return s.call("get_query_analytics", args, false, func(ctx context.Context) (toolResult, error) {
		if s.journal == nil {
			return toolResult{}, fmt.Errorf("query journal is not enabled")
		}
		stats, err := s.journal.Stats(ctx)
		if err != nil {
			return toolResult{}, fmt.Errorf("failed to get query analytics: %w", err)
		}
		body, err := marshal(stats)
		if err != nil {
			return toolResult{}, err
		}
		return toolResult{text: fmt.Sprintf("Query analytics:\n%s", body), count: len(stats)}, nil
	})
}
