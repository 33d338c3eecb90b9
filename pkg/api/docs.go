package api

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "in": "header", "name": "X-API-Key"}
    },
    "security": [{"ApiKeyAuth": []}],
    "paths": {
        "/health": {
            "get": {"tags": ["health"], "summary": "Health check", "responses": {"200": {"description": "OK"}}}
        },
        "/stations": {
            "get": {"tags": ["stations"], "summary": "Bikes available per station", "responses": {"200": {"description": "OK"}}}
        },
        "/bikes": {
            "get": {"tags": ["bikes"], "summary": "Every bike and its state", "responses": {"200": {"description": "OK"}}}
        },
        "/clients/{client}/bikes": {
            "get": {
                "tags": ["bikes"],
                "summary": "Bikes rented by a client",
                "parameters": [{"name": "client", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/rentals": {
            "post": {
                "tags": ["rentals"],
                "summary": "Rent the first bike parked at a station",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RentRequest"}}],
                "responses": {
                    "200": {"description": "Bike rented"},
                    "400": {"description": "Invalid station or client"},
                    "409": {"description": "Station empty"}
                }
            }
        },
        "/returns": {
            "post": {
                "tags": ["rentals"],
                "summary": "Return a rented bike to a station",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReturnRequest"}}],
                "responses": {
                    "200": {"description": "Bike returned"},
                    "400": {"description": "Invalid station or client"},
                    "403": {"description": "Client does not hold the bike"},
                    "404": {"description": "Bike not found"},
                    "409": {"description": "Station full"}
                }
            }
        },
        "/check": {
            "get": {"tags": ["diagnostics"], "summary": "Consistency check of counters and records", "responses": {"200": {"description": "OK"}}}
        },
        "/history": {
            "get": {
                "tags": ["diagnostics"],
                "summary": "Rental history",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "bike", "in": "query", "type": "string"},
                    {"name": "client", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "History disabled"}}
            }
        }
    },
    "definitions": {
        "APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "outcome": {
                    "type": "string",
                    "enum": ["ok", "invalid_station", "invalid_client", "station_empty", "bike_not_found", "not_holder", "station_full"]
                },
                "data": {"type": "object"},
                "error": {"type": "string"}
            }
        },
        "RentRequest": {
            "type": "object",
            "properties": {"station": {"type": "integer"}, "client": {"type": "string"}}
        },
        "ReturnRequest": {
            "type": "object",
            "properties": {"station": {"type": "integer"}, "bike": {"type": "string"}, "client": {"type": "string"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "bicis REST API",
	Description:      "Rent and return bikes across a fixed set of stations.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
