// Package docs registers the OpenAPI document served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "Service is healthy", "schema": {"$ref": "#/definitions/types.HealthResponse"}},
                    "503": {"description": "Service is degraded", "schema": {"$ref": "#/definitions/types.HealthResponse"}}
                }
            }
        },
        "/migrations": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["migrations"],
                "summary": "Run a migration",
                "parameters": [{"in": "body", "name": "request", "schema": {"$ref": "#/definitions/types.MigrationRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/types.MigrationResponse"}},
                    "400": {"description": "Invalid parameter", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "401": {"description": "API key rejected", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "deCONZ database not found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "500": {"description": "Configuration could not be written", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "502": {"description": "Gateway unreachable or failed", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "504": {"description": "Request timed out", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/migrations/preview": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["migrations"],
                "summary": "Preview a migration",
                "parameters": [{"in": "body", "name": "request", "schema": {"$ref": "#/definitions/types.MigrationRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.MigrationResponse"}},
                    "400": {"description": "Invalid parameter", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "502": {"description": "Gateway unreachable or failed", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/gateway/devices": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["gateway"],
                "summary": "List gateway devices",
                "parameters": [{"in": "body", "name": "request", "schema": {"$ref": "#/definitions/types.GatewayRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.DevicesResponse"}},
                    "401": {"description": "API key rejected", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "502": {"description": "Gateway unreachable or failed", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/gateway/pair": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["gateway"],
                "summary": "Request an API key",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/types.PairRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/types.PairResponse"}},
                    "401": {"description": "Gateway is locked", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/gateways": {
            "get": {
                "produces": ["application/json"],
                "tags": ["gateway"],
                "summary": "List remembered gateways",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.GatewaysResponse"}}
                }
            }
        },
        "/serial-ports": {
            "get": {
                "produces": ["application/json"],
                "tags": ["serial"],
                "summary": "List serial ports",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.SerialPortsResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "message": {"type": "string"},
                "field": {"type": "string"}
            }
        },
        "types.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "state_db": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "types.GatewayRequest": {
            "type": "object",
            "properties": {
                "source": {"type": "string", "example": "rest"},
                "host": {"type": "string", "example": "192.168.178.76"},
                "port": {"type": "integer", "example": 4530},
                "api_key": {"type": "string", "example": "99D54B94DA"},
                "database_path": {"type": "string"}
            }
        },
        "types.MigrationRequest": {
            "type": "object",
            "properties": {
                "source": {"type": "string", "example": "rest"},
                "host": {"type": "string", "example": "192.168.178.76"},
                "port": {"type": "integer", "example": 4530},
                "api_key": {"type": "string", "example": "99D54B94DA"},
                "database_path": {"type": "string"},
                "channel": {"type": "integer", "example": 15},
                "pan_id": {"type": "string", "example": "1a63"},
                "ext_pan_id": {"type": "string"},
                "network_key": {"type": "string"},
                "mqtt_server": {"type": "string", "example": "mqtt://localhost"},
                "mqtt_topic": {"type": "string", "example": "zigbee2mqtt"},
                "serial_port": {"type": "string", "example": "/dev/ttyACM0"}
            }
        },
        "types.MigrationResponse": {
            "type": "object",
            "properties": {
                "state": {"type": "string"},
                "dry_run": {"type": "boolean"},
                "path": {"type": "string"},
                "generated": {"type": "boolean"},
                "sensors": {"type": "integer"},
                "lights": {"type": "integer"},
                "configuration": {"type": "object"},
                "yaml": {"type": "string"}
            }
        },
        "types.DevicesResponse": {
            "type": "object",
            "properties": {
                "gateway": {"type": "string"},
                "devices": {"type": "array", "items": {"type": "object"}},
                "count": {"type": "integer"}
            }
        },
        "types.PairRequest": {
            "type": "object",
            "required": ["host", "port"],
            "properties": {
                "host": {"type": "string", "example": "192.168.178.76"},
                "port": {"type": "integer", "example": 4530}
            }
        },
        "types.PairResponse": {
            "type": "object",
            "properties": {
                "api_key": {"type": "string"}
            }
        },
        "types.GatewaysResponse": {
            "type": "object",
            "properties": {
                "gateways": {"type": "array", "items": {"type": "object"}},
                "count": {"type": "integer"}
            }
        },
        "types.SerialPortsResponse": {
            "type": "object",
            "properties": {
                "ports": {"type": "array", "items": {"type": "object"}},
                "suggested": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "deconz2z2m API",
	Description:      "Migrates deCONZ gateway configuration to Zigbee2MQTT.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
