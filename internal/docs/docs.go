// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/api/main.go -o internal/docs
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
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Login",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Authenticated", "schema": {"$ref": "#/definitions/handlers.AuthResponse"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "423": {"description": "Account locked", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["auth"],
                "summary": "Refresh tokens",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RefreshRequest"}}
                ],
                "responses": {
                    "200": {"description": "New token pair", "schema": {"$ref": "#/definitions/handlers.AuthResponse"}},
                    "401": {"description": "Invalid refresh token", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Logout",
                "responses": {"200": {"description": "Logged out"}}
            }
        },
        "/profile": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Current account",
                "responses": {"200": {"description": "Account"}}
            }
        },
        "/dashboard": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["leave"],
                "summary": "Balances, records and usage of the caller",
                "parameters": [{"type": "integer", "name": "year", "in": "query"}],
                "responses": {"200": {"description": "Dashboard", "schema": {"$ref": "#/definitions/handlers.DashboardResponse"}}}
            }
        },
        "/leave": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["leave"],
                "summary": "List the caller's leave records",
                "parameters": [
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "page_size", "in": "query"}
                ],
                "responses": {"200": {"description": "Paginated records"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["leave"],
                "summary": "Submit a leave request",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "leave_type", "in": "formData", "required": true},
                    {"type": "string", "name": "start_date", "in": "formData", "required": true},
                    {"type": "string", "name": "end_date", "in": "formData", "required": true},
                    {"type": "boolean", "name": "half_day", "in": "formData"},
                    {"type": "string", "name": "reason", "in": "formData"},
                    {"type": "file", "name": "receipt", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "Leave recorded", "schema": {"$ref": "#/definitions/handlers.SubmitLeaveResponse"}},
                    "400": {"description": "Rejected", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/leave/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["leave"],
                "summary": "Get a leave record",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Record"}, "404": {"description": "Not found"}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["leave"],
                "summary": "Delete a leave record",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "boolean", "default": true, "name": "restore", "in": "query"}
                ],
                "responses": {"200": {"description": "Deleted"}, "403": {"description": "Forbidden"}}
            }
        },
        "/accounts/{id}/records": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["leave"],
                "summary": "Balances, records and usage of an account",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "name": "year", "in": "query"}
                ],
                "responses": {"200": {"description": "Dashboard", "schema": {"$ref": "#/definitions/handlers.DashboardResponse"}}}
            }
        },
        "/admin/accounts": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "List accounts with recent records",
                "responses": {"200": {"description": "Accounts"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Create an account",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateAccountRequest"}}
                ],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Duplicate username"}}
            }
        },
        "/admin/accounts/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Get an account",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Account"}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Delete an account and its records",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Deleted"}}
            }
        },
        "/admin/accounts/{id}/balances": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Replace an account's balances",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.BalancesRequest"}}
                ],
                "responses": {"200": {"description": "Updated"}}
            }
        },
        "/admin/accounts/{id}/password": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Set an account's password",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Updated"}}
            }
        },
        "/admin/leave/{id}/days": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Override a record's day count",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Updated"}}
            }
        }
    },
    "definitions": {
        "handlers.LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {"username": {"type": "string"}, "password": {"type": "string"}}
        },
        "handlers.RefreshRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {"refresh_token": {"type": "string"}}
        },
        "handlers.AuthResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "refresh_token": {"type": "string"},
                "expires_in": {"type": "integer"},
                "account": {"$ref": "#/definitions/handlers.AccountResponse"}
            }
        },
        "handlers.BalancesResponse": {
            "type": "object",
            "properties": {
                "vacation": {"type": "number"},
                "sick": {"type": "number"},
                "personal": {"type": "number"},
                "menstrual": {"type": "number"},
                "family_care": {"type": "number"},
                "compassionate": {"type": "number"}
            }
        },
        "handlers.BalancesRequest": {
            "type": "object",
            "properties": {
                "vacation": {"type": "number"},
                "sick": {"type": "number"},
                "personal": {"type": "number"},
                "menstrual": {"type": "number"},
                "family_care": {"type": "number"},
                "compassionate": {"type": "number"}
            }
        },
        "handlers.AccountResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "username": {"type": "string"},
                "is_admin": {"type": "boolean"},
                "balances": {"$ref": "#/definitions/handlers.BalancesResponse"},
                "last_login_at": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "handlers.CreateAccountRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"},
                "is_admin": {"type": "boolean"},
                "balances": {"$ref": "#/definitions/handlers.BalancesRequest"}
            }
        },
        "handlers.LeaveRecordResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "account_id": {"type": "string"},
                "leave_type": {"type": "string"},
                "start_date": {"type": "string"},
                "end_date": {"type": "string"},
                "half_day": {"type": "boolean"},
                "reason": {"type": "string"},
                "days": {"type": "number"},
                "receipt_url": {"type": "string"},
                "calendar_event_url": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "handlers.SubmitLeaveResponse": {
            "type": "object",
            "properties": {
                "record": {"$ref": "#/definitions/handlers.LeaveRecordResponse"},
                "label": {"type": "string"},
                "warnings": {"type": "array", "items": {"type": "string"}}
            }
        },
        "handlers.DashboardResponse": {
            "type": "object",
            "properties": {
                "account": {"$ref": "#/definitions/handlers.AccountResponse"},
                "year": {"type": "integer"},
                "used": {"$ref": "#/definitions/handlers.BalancesResponse"},
                "records": {"type": "array", "items": {"$ref": "#/definitions/handlers.LeaveRecordResponse"}}
            }
        },
        "handlers.ErrorDetail": {
            "type": "object",
            "properties": {"kind": {"type": "string"}, "code": {"type": "string"}, "message": {"type": "string"}}
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"$ref": "#/definitions/handlers.ErrorDetail"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "LeaveDesk API",
	Description:      "LeaveDesk tracks employee leave balances, validates leave requests and mirrors granted leave to a shared calendar.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
