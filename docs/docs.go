// Package docs registers the OpenAPI description served at /docs.
// Regenerate with: swag init -g cmd/api/main.go -o docs
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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/": {"get": {"tags": ["meta"], "summary": "API root info", "responses": {"200": {"description": "OK"}}}},
        "/health": {"get": {"tags": ["health"], "summary": "Health check", "responses": {"200": {"description": "OK"}}}},
        "/health/db": {"get": {"tags": ["health"], "summary": "Database health check", "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}},
        "/health/cache": {"get": {"tags": ["health"], "summary": "Cache health check", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/alerts": {
            "get": {
                "security": [{"BearerAuth": []}], "tags": ["alerts"], "summary": "List alerts",
                "parameters": [
                    {"type": "string", "name": "region", "in": "query"},
                    {"type": "string", "name": "severity", "in": "query"},
                    {"type": "string", "name": "source", "in": "query"},
                    {"type": "string", "name": "start_date", "in": "query"},
                    {"type": "string", "name": "end_date", "in": "query"},
                    {"type": "boolean", "name": "exclude_expired", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            },
            "post": {
                "security": [{"BearerAuth": []}], "tags": ["alerts"], "summary": "Create alert",
                "consumes": ["application/json"], "produces": ["application/json"],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "403": {"description": "Forbidden"}}
            }
        },
        "/api/v1/alerts/active": {"get": {"security": [{"BearerAuth": []}], "tags": ["alerts"], "summary": "List active alerts", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/alerts/critical": {"get": {"security": [{"BearerAuth": []}], "tags": ["alerts"], "summary": "List critical alerts", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/alerts/{id}": {
            "get": {
                "security": [{"BearerAuth": []}], "tags": ["alerts"], "summary": "Get alert",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "patch": {
                "security": [{"BearerAuth": []}], "tags": ["alerts"], "summary": "Update alert",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/v1/devices": {"get": {"security": [{"BearerAuth": []}], "tags": ["devices"], "summary": "List devices", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/devices/register": {"post": {"security": [{"BearerAuth": []}], "tags": ["devices"], "summary": "Register device", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}},
        "/api/v1/devices/{id}": {"delete": {"security": [{"BearerAuth": []}], "tags": ["devices"], "summary": "Deactivate device", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}}},
        "/api/v1/devices/{id}/test": {"post": {"security": [{"BearerAuth": []}], "tags": ["devices"], "summary": "Send test notification", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}}},
        "/api/v1/devices/{id}/touch": {"post": {"security": [{"BearerAuth": []}], "tags": ["devices"], "summary": "Refresh device last-used time", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/v1/drills": {
            "get": {
                "security": [{"BearerAuth": []}], "tags": ["drills"], "summary": "List drill scenarios",
                "parameters": [{"type": "string", "name": "region", "in": "query"}, {"type": "string", "name": "difficulty", "in": "query"}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {"security": [{"BearerAuth": []}], "tags": ["drills"], "summary": "Create drill scenario", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "403": {"description": "Forbidden"}}}
        },
        "/api/v1/drills/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["drills"], "summary": "Get drill scenario", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "304": {"description": "Not Modified"}, "404": {"description": "Not Found"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["drills"], "summary": "Replace drill scenario", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}}
        },
        "/api/v1/drills/{id}/attempt": {"post": {"security": [{"BearerAuth": []}], "tags": ["drills"], "summary": "Submit drill attempt", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}}},
        "/api/v1/drills/{id}/attempts": {"get": {"security": [{"BearerAuth": []}], "tags": ["drills"], "summary": "List own attempts for a scenario", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/v1/attempts": {
            "get": {
                "security": [{"BearerAuth": []}], "tags": ["attempts"], "summary": "List own attempts",
                "parameters": [{"type": "string", "name": "scenario", "in": "query"}, {"type": "boolean", "name": "completed", "in": "query"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/attempts/{id}": {"get": {"security": [{"BearerAuth": []}], "tags": ["attempts"], "summary": "Get own attempt", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8000",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "PrepWise API",
	Description:      "Disaster-preparedness backend: emergency alerts with push fan-out, device registry and scored decision-tree drills.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
