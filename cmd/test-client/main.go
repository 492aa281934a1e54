package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"

	"github.com/fatih/color"

	"github.com/netbox-mcp/internal/config"
)

var (
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed, color.Bold)
	info    = color.New(color.FgCyan)
	dim     = color.New(color.Faint)
)

// MCPRequest represents a request to the MCP server
type MCPRequest struct {
	Jsonrpc string      `json:"jsonrpc"`
	ID      int         `json:"id,omitempty"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// MCPResponse represents a response from the MCP server
type MCPResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   interface{}     `json:"error,omitempty"`
}

// ToolCallParams represents parameters for calling a tool
type ToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

type toolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type testCommand struct {
	description string
	tool        string
	args        map[string]interface{}
}

var testCommands = []testCommand{
	{"List the first 5 devices", "list_devices", map[string]interface{}{"limit": 5}},
	{"List active sites", "list_sites", map[string]interface{}{"status": "active"}},
	{"Ask: active firewalls", "query_devices", map[string]interface{}{"query": "show me active firewalls"}},
	{"Ask: MPLS circuits", "query_circuits", map[string]interface{}{"query": "MPLS circuits"}},
	{"Ask: IPv4 /24 prefixes", "query_prefixes", map[string]interface{}{"query": "active ipv4 /24 prefixes"}},
	{"Ask: VLAN 100", "query_vlans", map[string]interface{}{"query": "tell me about vlan 100"}},
	{"Ask: available racks", "query_racks", map[string]interface{}{"query": "available racks"}},
	{"Ask: planned sites", "query_sites", map[string]interface{}{"query": "planned sites"}},
	{"Show recent query history", "get_query_history", map[string]interface{}{"limit": 10}},
	{"Show query analytics", "get_query_analytics", map[string]interface{}{}},
}

// client speaks newline-delimited JSON-RPC to the server over its stdio.
type client struct {
	stdin  io.Writer
	stdout *bufio.Reader
	nextID int
}

func (c *client) send(req MCPRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	_, err = c.stdin.Write(append(data, '\n'))
	return err
}

func (c *client) call(method string, params interface{}) (*MCPResponse, error) {
	c.nextID++
	id := c.nextID
	if err := c.send(MCPRequest{Jsonrpc: "2.0", ID: id, Method: method, Params: params}); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	// skip notifications and anything that is not our response
	for {
		line, err := c.stdout.ReadBytes('\n')
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		var resp MCPResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			dim.Printf("skipping non-JSON output: %s", line)
			continue
		}
		if resp.ID == id {
			return &resp, nil
		}
	}
}

func (c *client) initialize() error {
	resp, err := c.call("initialize", map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]interface{}{},
		"clientInfo":      map[string]interface{}{"name": "netbox-mcp-test-client", "version": "1.0.0"},
	})
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("initialize failed: %v", resp.Error)
	}
	return c.send(MCPRequest{Jsonrpc: "2.0", Method: "notifications/initialized"})
}

func printCommands() {
	for i, cmd := range testCommands {
		fmt.Printf("%2d. %-22s %s\n", i+1, cmd.tool, dim.Sprint(cmd.description))
	}
	fmt.Println(" 0. Exit")
	fmt.Println()
}

func main() {
	info.Println("NetBox MCP Test Client")
	info.Println("======================")

	// Load config to verify setup
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		failure.Printf("Configuration problem: %v\n", err)
		fmt.Println("Make sure your .env file sets NETBOX_URL and NETBOX_TOKEN.")
		return
	}

	success.Printf("NetBox: %s\n", cfg.NetBox.URL)
	fmt.Printf("TLS verification: %v\n\n", cfg.NetBox.SSLVerify)

	// Start the MCP server process
	cmd := exec.Command("./bin/netbox-mcp-server")
	cmd.Env = os.Environ()
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		log.Fatalf("Failed to create stdin pipe: %v", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		log.Fatalf("Failed to create stdout pipe: %v", err)
	}
	if err := cmd.Start(); err != nil {
		log.Fatalf("Failed to start MCP server: %v", err)
	}
	defer func() {
		if err := cmd.Process.Kill(); err != nil {
			log.Printf("Failed to kill MCP server process: %v", err)
		}
	}()

	c := &client{stdin: stdin, stdout: bufio.NewReader(stdout)}
	if err := c.initialize(); err != nil {
		failure.Printf("Failed to initialize session: %v\n", err)
		return
	}

	success.Println("MCP server started. Available commands:")
	fmt.Println()
	printCommands()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("Enter command number (or 'help' for list): ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())

		switch input {
		case "0", "exit", "quit":
			fmt.Println("Goodbye!")
			return
		case "help":
			printCommands()
			continue
		}

		var cmdIndex int
		if _, err := fmt.Sscanf(input, "%d", &cmdIndex); err != nil || cmdIndex < 1 || cmdIndex > len(testCommands) {
			failure.Println("Invalid input. Enter a command number or 'help'.")
			continue
		}
		selected := testCommands[cmdIndex-1]

		info.Printf("Executing %s...\n", selected.tool)
		resp, err := c.call("tools/call", ToolCallParams{Name: selected.tool, Arguments: selected.args})
		if err != nil {
			failure.Printf("%v\n", err)
			return
		}
		if resp.Error != nil {
			failure.Printf("Error: %v\n\n", resp.Error)
			continue
		}

		var result toolResult
		if err := json.Unmarshal(resp.Result, &result); err != nil || len(result.Content) == 0 {
			fmt.Printf("%s\n\n", resp.Result)
			continue
		}
		success.Println("Success!")
		for _, content := range result.Content {
			fmt.Println(content.Text)
		}
		fmt.Println()
	}
}
