package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/mcp-training/arenanav/nav/config"
	"github.com/wricardo/mcp-training/arenanav/nav/explore"
	"github.com/wricardo/mcp-training/arenanav/nav/fastestpath"
	"github.com/wricardo/mcp-training/arenanav/nav/grid"
	"github.com/wricardo/mcp-training/arenanav/nav/robot"
	"github.com/wricardo/mcp-training/arenanav/nav/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// Synchronous exploration of a full arena can take a while
			Timeout: 2 * time.Minute,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Arena Navigator",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Arena Navigator - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
A simulated 3x3 robot explores an unknown grid arena with its sensors, then
drives the fastest path from the start zone to the goal zone, optionally
through a waypoint.

AVAILABLE TOOLS:
- create_session: Create a session on an arena
- list_sessions / get_session / delete_session: Manage sessions
- list_arenas: List arena definitions
- get_state: Render the explored map and robot pose
- describe_cell: Inspect one cell of the explored and reference maps
- explore: Run exploration (synchronously or in the background)
- stop_exploration: Stop a background exploration
- reset_session: Forget the explored map and return home
- fastest_path: Plan the fastest route to the goal
- export_descriptor / import_descriptor: Map descriptor exchange
- set_obstacle: Edit the reference arena
- navigation_instructions: Coordinates, zones and instruction strings`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new navigation session with optional arena selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"arena_id": map[string]interface{}{
					"type":        "string",
					"description": "Arena to use (optional, see list_arenas)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all navigation sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get a summary of a session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_session",
		Description: "Delete a session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleDeleteSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_session",
		Description: "Forget the explored map and put the robot back in the start zone",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_arenas",
		Description: "List available arena definitions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListArenas)

	// Navigation
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_state",
		Description: "Render the explored map with the robot pose and exploration status",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"reference": map[string]interface{}{
					"type":        "boolean",
					"description": "Render the reference arena instead of the explored map",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Describe one cell: explored, obstacle, virtual wall, zone membership",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Row index (0 is the bottom row)",
				},
				"col": map[string]interface{}{
					"type":        "integer",
					"description": "Column index (0 is the left column)",
				},
			},
			Required: []string{"session_id", "row", "col"},
		},
	}, c.handleDescribeCell)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "explore",
		Description: "Explore the arena from the start zone. Resets the explored map first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"coverage_limit": map[string]interface{}{
					"type":        "number",
					"description": "Stop once this fraction (0-1] of the arena is explored",
				},
				"time_limit_seconds": map[string]interface{}{
					"type":        "number",
					"description": "Wall-clock budget in seconds",
				},
				"max_steps": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of robot actions",
				},
				"return_home": map[string]interface{}{
					"type":        "boolean",
					"description": "Drive back to the start zone when done",
				},
				"async": map[string]interface{}{
					"type":        "boolean",
					"description": "Run in the background and return immediately",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleExplore)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "stop_exploration",
		Description: "Stop a background exploration",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleStopExploration)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "fastest_path",
		Description: "Plan the fastest route from the robot to the goal zone, optionally through a waypoint",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"waypoint_row": map[string]interface{}{
					"type":        "integer",
					"description": "Waypoint row (requires waypoint_col)",
				},
				"waypoint_col": map[string]interface{}{
					"type":        "integer",
					"description": "Waypoint column (requires waypoint_row)",
				},
				"execute": map[string]interface{}{
					"type":        "boolean",
					"description": "Move the robot to the end of the route",
				},
				"allow_unexplored": map[string]interface{}{
					"type":        "boolean",
					"description": "Allow the route to cross unexplored cells",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleFastestPath)

	// Maps
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "export_descriptor",
		Description: "Export the explored map as a hex descriptor \"part1,part2\"",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleExportDescriptor)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "import_descriptor",
		Description: "Replace the explored map with a hex descriptor \"part1,part2\"",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"descriptor": map[string]interface{}{
					"type":        "string",
					"description": "Descriptor text, e.g. FFC0...,00A0...",
				},
			},
			Required: []string{"session_id", "descriptor"},
		},
	}, c.handleImportDescriptor)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_obstacle",
		Description: "Place or remove an obstacle in the reference arena",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Row index",
				},
				"col": map[string]interface{}{
					"type":        "integer",
					"description": "Column index",
				},
				"obstacle": map[string]interface{}{
					"type":        "boolean",
					"description": "true to place, false to remove",
				},
			},
			Required: []string{"session_id", "row", "col", "obstacle"},
		},
	}, c.handleSetObstacle)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "navigation_instructions",
		Description: "Explain coordinates, zones, map rendering and instruction strings",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleNavigationInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]string{}
	if arenaID := request.GetString("arena_id", ""); arenaID != "" {
		body["arena_id"] = arenaID
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nArena: %s (%s)\n", info.ID, info.ArenaID, info.ArenaName)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                    `json:"count"`
		Sessions []*service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Active sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "idle"
		if s.Exploring {
			status = "exploring"
		}
		fmt.Fprintf(&result, "• %s [%s] arena=%s coverage=%.1f%% pose=%s\n",
			s.ID, status, s.ArenaID, s.Coverage*100, s.Pose)
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var info service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(request.GetString("session_id", ""), ""), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleDeleteSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response map[string]string
	if err := c.apiCall(ctx, "DELETE", sessionPath(request.GetString("session_id", ""), ""), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(response["message"]), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Message string               `json:"message"`
		Session *service.SessionInfo `json:"session"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(request.GetString("session_id", ""), "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(response.Message + "\n\n" + formatSessionInfo(response.Session)), nil
}

func (c *Client) handleListArenas(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var arenas []*config.ArenaInfo
	if err := c.apiCall(ctx, "GET", "/api/arenas", nil, &arenas); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString("Available Arenas:\n\n")
	for _, a := range arenas {
		layout := "open"
		if a.HasLayout {
			layout = "fixed layout"
		}
		fmt.Fprintf(&result, "• %s (%s)\n  %s\n  Grid: %dx%d, %s\n\n",
			a.ArenaID, a.Name, a.Description, a.Rows, a.Cols, layout)
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGetState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var state service.NavigationState
	if err := c.apiCall(ctx, "GET", sessionPath(request.GetString("session_id", ""), "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatState(&state, request.GetBool("reference", false))), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	row := request.GetInt("row", -1)
	col := request.GetInt("col", -1)

	var state service.NavigationState
	if err := c.apiCall(ctx, "GET", sessionPath(request.GetString("session_id", ""), "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	snap := state.Map
	if row < 0 || row >= snap.Rows || col < 0 || col >= snap.Cols {
		return mcp.NewToolResultError(fmt.Sprintf("Coordinates (%d, %d) are out of bounds. Grid is %d rows x %d cols",
			row, col, snap.Rows, snap.Cols)), nil
	}

	return mcp.NewToolResultText(describeCell(&state, row, col)), nil
}

func (c *Client) handleExplore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	args := request.GetArguments()

	body := map[string]interface{}{}
	for _, key := range []string{"coverage_limit", "time_limit_seconds", "max_steps", "return_home", "async"} {
		if v, ok := args[key]; ok {
			body[key] = v
		}
	}

	if request.GetBool("async", false) {
		var info service.SessionInfo
		if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/explore"), body, &info); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Exploration started for session %s. Use get_state to follow progress.", info.ID)), nil
	}

	var result explore.Result
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/explore"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatResult(&result)), nil
}

func (c *Client) handleStopExploration(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var info service.SessionInfo
	if err := c.apiCall(ctx, "POST", sessionPath(request.GetString("session_id", ""), "/explore/stop"), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Exploration stopped.\n\n" + formatSessionInfo(&info)), nil
}

func (c *Client) handleFastestPath(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	req := service.PathRequest{
		Execute:         request.GetBool("execute", false),
		AllowUnexplored: request.GetBool("allow_unexplored", false),
	}

	_, hasRow := args["waypoint_row"]
	_, hasCol := args["waypoint_col"]
	if hasRow != hasCol {
		return mcp.NewToolResultError("waypoint_row and waypoint_col must be given together"), nil
	}
	if hasRow {
		req.Waypoint = &grid.Position{
			Row: request.GetInt("waypoint_row", 0),
			Col: request.GetInt("waypoint_col", 0),
		}
	}

	var route fastestpath.Route
	if err := c.apiCall(ctx, "POST", sessionPath(request.GetString("session_id", ""), "/fastest-path"), req, &route); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatRoute(&route, req.Execute)), nil
}

func (c *Client) handleExportDescriptor(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var info service.DescriptorInfo
	if err := c.apiCall(ctx, "GET", sessionPath(request.GetString("session_id", ""), "/descriptor"), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Descriptor: %s\n\nPart 1 (explored): %s\nPart 2 (obstacles): %s\nCoverage: %.1f%%\n",
		info.Descriptor, info.Part1, info.Part2, info.Coverage*100)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleImportDescriptor(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]string{"descriptor": request.GetString("descriptor", "")}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "POST", sessionPath(request.GetString("session_id", ""), "/descriptor"), body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Descriptor imported.\n\n" + formatSessionInfo(&info)), nil
}

func (c *Client) handleSetObstacle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]interface{}{
		"row":      request.GetInt("row", -1),
		"col":      request.GetInt("col", -1),
		"obstacle": request.GetBool("obstacle", true),
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "PUT", sessionPath(request.GetString("session_id", ""), "/obstacles"), body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Reference arena updated. Obstacles: %d", info.Obstacles)), nil
}

func (c *Client) handleNavigationInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Arena Navigator - Instructions

ARENA:
• The arena is a grid of rows x cols cells (20 x 15 by default)
• Row 0 is the bottom row, column 0 is the left column
• NORTH increases the row index, EAST increases the column index
• The start zone is the 3x3 block centred on (1,1); the goal zone is centred on (18,13)

ROBOT:
• The robot covers 3x3 cells and is addressed by its centre cell
• A centre is safe when it is not an obstacle and not next to one (virtual wall),
  and when the whole footprint has been explored
• Sensors read obstacle distances along fixed rays; what they see is marked explored

WORKFLOW:
1. create_session (optionally with arena_id from list_arenas)
2. explore (coverage_limit, time_limit_seconds, max_steps, return_home)
3. fastest_path (optionally through waypoint_row / waypoint_col)
4. export_descriptor to save the explored map

MAP RENDERING (get_state):
• R  robot centre        r  robot footprint
• #  obstacle            ?  unexplored
• S  start zone          G  goal zone
• .  explored free cell
The top line is the highest row.

INSTRUCTION STRINGS:
• Digits 1-9 move forward that many cells (longer runs are split)
• A turns right 90°, B turns around 180°, C turns left 90°
• Example: "3A2" moves 3 cells, turns right, then moves 2 cells

MAP DESCRIPTORS:
• "part1,part2", both uppercase hex
• Part 1 marks explored cells row by row from the bottom, with bits 11 at both ends
• Part 2 marks obstacles of explored cells only, right-aligned in whole bytes`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(info *service.SessionInfo) string {
	if info == nil {
		return "No session information available"
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Session: %s\nArena: %s (%s)\nCreated: %s\n",
		info.ID, info.ArenaID, info.ArenaName, info.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&result, "Grid: %dx%d | Pose: %s | Explored: %d (%.1f%%) | Obstacles known: %d\n",
		info.Rows, info.Cols, info.Pose, info.Explored, info.Coverage*100, info.Obstacles)
	if info.Waypoint != nil {
		fmt.Fprintf(&result, "Waypoint: %s\n", info.Waypoint)
	}
	if info.Exploring {
		result.WriteString("Status: exploring\n")
	}
	if info.LastResult != nil {
		result.WriteString("Last exploration: " + formatResult(info.LastResult))
	}
	return result.String()
}

func formatResult(res *explore.Result) string {
	reason := string(res.Reason)
	if reason == "" {
		reason = "stopped"
	}
	return fmt.Sprintf("%s after %d steps, explored %d cells (%.1f%%), robot at %s, %d sensor failures\n",
		reason, res.Steps, res.Explored, res.Coverage*100, res.Pose, res.SensorFailures)
}

func formatRoute(route *fastestpath.Route, executed bool) string {
	var result strings.Builder
	fmt.Fprintf(&result, "Route %s -> %s\n", route.Start, route.End)
	fmt.Fprintf(&result, "Moves: %d | Turns: %d | Cost: %d\n", route.Moves(), route.Turns, route.Cost)
	fmt.Fprintf(&result, "Instructions: %s\n", route.Instructions)

	cells := make([]string, len(route.Cells))
	for i, p := range route.Cells {
		cells[i] = p.String()
	}
	fmt.Fprintf(&result, "Cells: %s\n", strings.Join(cells, " "))
	if executed {
		result.WriteString("Robot moved to the end of the route.\n")
	}
	return result.String()
}

// formatState renders a map with the highest row first
func formatState(state *service.NavigationState, reference bool) string {
	snap := state.Map
	title := "Explored map"
	if reference {
		snap = state.Reference
		title = "Reference arena"
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Session: %s | Pose: %s | Explored: %d (%.1f%%)\n",
		state.SessionID, state.Pose, state.Map.Explored, state.Map.Coverage*100)
	if state.Exploring && state.Progress != nil {
		fmt.Fprintf(&result, "Exploring: step %d, phase %s\n", state.Progress.Step, state.Progress.Phase)
	} else if state.Result != nil {
		result.WriteString("Last exploration: " + formatResult(state.Result))
	}
	if state.Route != nil {
		fmt.Fprintf(&result, "Last route: %s\n", state.Route.Instructions)
	}
	fmt.Fprintf(&result, "\n%s:\n", title)

	for r := snap.Rows - 1; r >= 0; r-- {
		for c := 0; c < snap.Cols; c++ {
			result.WriteString(cellChar(snap, state.Pose, r, c, !reference))
		}
		result.WriteString("\n")
	}
	return result.String()
}

func cellChar(snap grid.Snapshot, pose robot.Pose, row, col int, hideUnexplored bool) string {
	cell := snap.Cells[row][col]
	switch {
	case row == pose.Row && col == pose.Col:
		return "R"
	case abs(row-pose.Row) <= grid.ZoneRadius && abs(col-pose.Col) <= grid.ZoneRadius:
		return "r"
	case hideUnexplored && !cell.Explored:
		return "?"
	case cell.Obstacle:
		return "#"
	case inZone(snap.Start, row, col):
		return "S"
	case inZone(snap.Goal, row, col):
		return "G"
	default:
		return "."
	}
}

func describeCell(state *service.NavigationState, row, col int) string {
	cell := state.Map.Cells[row][col]
	ref := state.Reference.Cells[row][col]

	var result strings.Builder
	fmt.Fprintf(&result, "Cell (%d,%d)\n", row, col)
	fmt.Fprintf(&result, "Explored: %t\n", cell.Explored)
	if cell.Explored {
		fmt.Fprintf(&result, "Obstacle (sensed): %t\n", cell.Obstacle)
		fmt.Fprintf(&result, "Virtual wall: %t\n", cell.VirtualWall)
	}
	fmt.Fprintf(&result, "Obstacle (reference): %t\n", ref.Obstacle)

	switch {
	case inZone(state.Map.Start, row, col):
		result.WriteString("Zone: start\n")
	case inZone(state.Map.Goal, row, col):
		result.WriteString("Zone: goal\n")
	}
	if state.Pose.Row == row && state.Pose.Col == col {
		fmt.Fprintf(&result, "Robot centre, facing %s\n", state.Pose.Direction)
	} else if abs(row-state.Pose.Row) <= grid.ZoneRadius && abs(col-state.Pose.Col) <= grid.ZoneRadius {
		result.WriteString("Under the robot footprint\n")
	}
	return result.String()
}

func inZone(centre grid.Position, row, col int) bool {
	return abs(row-centre.Row) <= grid.ZoneRadius && abs(col-centre.Col) <= grid.ZoneRadius
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
