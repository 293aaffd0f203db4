package mcp

import "github.com/mark3labs/mcp-go/mcp"

// gatewayOptions are the arguments shared by every tool that reads a gateway.
func gatewayOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("source",
			mcp.Description("Where to read from: rest (running gateway) or database (deCONZ zll.db). Default rest."),
			mcp.Enum("rest", "database"),
		),
		mcp.WithString("host",
			mcp.Description("Gateway IPv4 address or hostname"),
		),
		mcp.WithNumber("port",
			mcp.Description("Gateway REST port"),
		),
		mcp.WithString("api_key",
			mcp.Description("deCONZ API key"),
		),
		mcp.WithString("database_path",
			mcp.Description("Path to zll.db; implies source=database"),
		),
	}
}

func tool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	return mcp.NewTool(name, append([]mcp.ToolOption{mcp.WithDescription(description)}, opts...)...)
}

// registerTools registers all MCP tools with the server
func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		tool("get_health", "Check the migrator and its state database"),
		s.handleGetHealth,
	)

	s.mcpServer.AddTool(
		tool("probe_gateway",
			"Check that a deCONZ gateway (or database) is reachable. With an API key, also reads its network parameters.",
			gatewayOptions()...),
		s.handleProbeGateway,
	)

	s.mcpServer.AddTool(
		tool("list_devices",
			"List the sensors and lights paired with a deCONZ gateway, in gateway order",
			gatewayOptions()...),
		s.handleListDevices,
	)

	previewOpts := append(gatewayOptions(),
		mcp.WithNumber("channel",
			mcp.Description("Zigbee channel 11-26; defaults to the gateway's"),
		),
		mcp.WithString("pan_id",
			mcp.Description("PAN ID, 4 hex digits"),
		),
		mcp.WithString("ext_pan_id",
			mcp.Description("Extended PAN ID, 16 hex digits; generated when empty and unknown"),
		),
		mcp.WithString("network_key",
			mcp.Description("Network key, 32 hex digits; generated when empty and unknown"),
		),
		mcp.WithString("mqtt_server",
			mcp.Description("MQTT broker URL, e.g. mqtt://localhost"),
		),
		mcp.WithString("mqtt_topic",
			mcp.Description("Zigbee2MQTT base topic"),
		),
		mcp.WithString("serial_port",
			mcp.Description("Coordinator serial port"),
		),
	)
	s.mcpServer.AddTool(
		tool("preview_configuration",
			"Build the Zigbee2MQTT configuration.yaml for a gateway without writing it",
			previewOpts...),
		s.handlePreviewConfiguration,
	)

	s.mcpServer.AddTool(
		tool("validate_hex",
			"Check a PAN ID, extended PAN ID or network key and return its normalized form",
			mcp.WithString("value",
				mcp.Required(),
				mcp.Description("Hex value, with or without 0x"),
			),
			mcp.WithString("kind",
				mcp.Required(),
				mcp.Description("Which value this is"),
				mcp.Enum("pan_id", "ext_pan_id", "network_key"),
			),
		),
		s.handleValidateHex,
	)

	s.mcpServer.AddTool(
		tool("list_serial_ports",
			"List serial ports on this machine, recognized Zigbee coordinators first"),
		s.handleListSerialPorts,
	)

	s.mcpServer.AddTool(
		tool("list_gateways",
			"List gateways remembered from earlier migrations"),
		s.handleListGateways,
	)
}
