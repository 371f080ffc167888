// Package mcp exposes the arena navigator to AI agents over the Model
// Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a request to the
// REST API, and the JSON response is rendered as text for the agent.
//
// MCP Tools:
//   - create_session, list_sessions, get_session, delete_session, reset_session
//   - list_arenas: arena definitions available to new sessions
//   - get_state: ASCII rendering of the explored or reference map
//   - describe_cell: one cell of both maps plus zone membership
//   - explore, stop_exploration: synchronous or background exploration
//   - fastest_path: route to the goal, optionally through a waypoint
//   - export_descriptor, import_descriptor: "part1,part2" map exchange
//   - set_obstacle: edit the reference arena
//   - navigation_instructions: coordinate system and instruction strings
//
// Transport Modes:
//
// The MCP server returned by GetMCPServer can be served over stdio for
// local clients or mounted on the HTTP server as a streamable endpoint.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
