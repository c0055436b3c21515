// Package docs registers the campaign service OpenAPI document with swag.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/campaigns": {
            "get": {
                "tags": ["campaigns"],
                "summary": "List active campaigns",
                "parameters": [
                    {"type": "string", "name": "q", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "tags": ["campaigns"],
                "summary": "Create a campaign",
                "parameters": [
                    {"type": "string", "name": "title", "in": "formData", "required": true},
                    {"type": "string", "name": "description", "in": "formData", "required": true},
                    {"type": "string", "name": "goal", "in": "formData", "required": true},
                    {"type": "string", "name": "pix_key", "in": "formData", "required": true},
                    {"type": "string", "name": "beneficiary_name", "in": "formData", "required": true},
                    {"type": "file", "name": "image", "in": "formData"}
                ],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/campaigns/{id}": {
            "get": {
                "tags": ["campaigns"],
                "summary": "Get campaign",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "tags": ["campaigns"],
                "summary": "Update a campaign",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "boolean", "name": "remove_image", "in": "formData"},
                    {"type": "file", "name": "image", "in": "formData"}
                ],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["campaigns"],
                "summary": "Delete a campaign",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "403": {"description": "Forbidden"}}
            }
        },
        "/campaigns/{id}/donations": {
            "post": {
                "consumes": ["multipart/form-data"],
                "tags": ["donations"],
                "summary": "Register a donation",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "amount", "in": "formData", "required": true},
                    {"type": "string", "name": "name", "in": "formData"},
                    {"type": "string", "name": "message", "in": "formData"},
                    {"type": "file", "name": "proof", "in": "formData"}
                ],
                "responses": {"201": {"description": "Created"}, "202": {"description": "Accepted, total pending reconciliation"}, "409": {"description": "Campaign closed"}}
            }
        },
        "/campaigns/{id}/supporters": {
            "get": {
                "tags": ["donations"],
                "summary": "Latest supporters",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/campaigns/{id}/finalize": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["campaigns"],
                "summary": "Finalize a campaign",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/campaigns/{id}/reconcile": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["dashboard"],
                "summary": "Recompute raised",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/dashboard/campaigns": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["dashboard"],
                "summary": "Organizer dashboard",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/dashboard/campaigns/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["dashboard"],
                "summary": "Manage a campaign",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8002",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Campaign Service API",
	Description:      "Campaigns, self-reported Pix donations and organizer dashboards for the Mão Amiga platform",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
