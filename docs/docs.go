// Package docs registers the OpenAPI document served at /swagger/*.
// Regenerate with: swag init -g cmd/server/main.go -o docs
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
        "/v1/rentals": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["rentals"],
                "summary": "Rent a movie for the authenticated client",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/rentRequest"}}],
                "responses": {"201": {"description": "Created"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}
            }
        },
        "/v1/rentals/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["rentals"],
                "summary": "List the authenticated client's rentals",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/rentals/pending": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "List rentals waiting for return approval, newest request first",
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}
            }
        },
        "/v1/rentals/{rental_id}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["rentals"],
                "summary": "Remove a returned rental from the caller's history",
                "parameters": [{"type": "string", "name": "rental_id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}
            }
        },
        "/v1/rentals/{rental_id}/return": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["rentals"],
                "summary": "Ask to return a rented movie",
                "parameters": [{"type": "string", "name": "rental_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "422": {"description": "Unprocessable Entity"}}
            }
        },
        "/v1/rentals/{rental_id}/approve": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Approve a pending return",
                "parameters": [{"type": "string", "name": "rental_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "422": {"description": "Unprocessable Entity"}}
            }
        },
        "/v1/rentals/{rental_id}/events": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["rentals"],
                "summary": "Get the lifecycle events of a rental",
                "parameters": [{"type": "string", "name": "rental_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}
            }
        },
        "/v1/movies/{movie_id}/return": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["rentals"],
                "summary": "Ask to return a movie, addressed by movie id",
                "parameters": [{"type": "string", "name": "movie_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/v1/admin/rentals": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Search and sort all rentals",
                "parameters": [
                    {"type": "string", "name": "search", "in": "query"},
                    {"type": "string", "name": "sort_by", "in": "query", "enum": ["rentalDate", "clientName", "movieTitle"]},
                    {"type": "string", "name": "sort_order", "in": "query", "enum": ["asc", "desc"]},
                    {"type": "string", "name": "status", "in": "query", "enum": ["active", "pending_return", "returned"]}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Rent a movie on behalf of a client",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/adminRentRequest"}}],
                "responses": {"201": {"description": "Created"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}
            }
        },
        "/v1/admin/integrity": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Scan open rentals against the inventory ledger and client counters",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "rentRequest": {
            "type": "object",
            "required": ["movie_id"],
            "properties": {"movie_id": {"type": "string"}}
        },
        "adminRentRequest": {
            "type": "object",
            "required": ["movie_id", "client_identifier"],
            "properties": {"movie_id": {"type": "string"}, "client_identifier": {"type": "string"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Use:  Bearer <JWT>",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Rental Lifecycle API",
	Description:      "Movie rentals: rent, return requests, approvals and integrity checks.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
