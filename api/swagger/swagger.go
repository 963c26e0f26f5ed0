package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Inventory Loan API",
        "description": "Item registry, QR labels and loan tracking for community organisations",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Authentication", "description": "Operator login"},
        {"name": "Items", "description": "Inventory item records"},
        {"name": "Loans", "description": "Loan lifecycle"},
        {"name": "QR Codes", "description": "QR label registry"},
        {"name": "Activities", "description": "Audit trail"},
        {"name": "Dashboard", "description": "Inventory overview"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate operator",
                "security": [],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Too many attempts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current operator",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Create operator account (admin)",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateUserRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/items": {
            "get": {
                "tags": ["Items"],
                "summary": "List items",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["available", "loaned", "maintenance"]},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Items"],
                "summary": "Create item",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateItemRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate item id", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/items/lookup": {
            "get": {
                "tags": ["Items"],
                "summary": "Resolve a scanned code",
                "parameters": [
                    {"name": "code", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/items/{id}": {
            "get": {
                "tags": ["Items"],
                "summary": "Get item",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Items"],
                "summary": "Update item",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateItemRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Items"],
                "summary": "Delete item (admin)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "400": {"description": "Item is currently on loan", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/items/{id}/activities": {
            "get": {
                "tags": ["Items"],
                "summary": "Item history",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/items/{id}/loans": {
            "get": {
                "tags": ["Items"],
                "summary": "Item loan history",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/loans": {
            "get": {
                "tags": ["Loans"],
                "summary": "List loans",
                "parameters": [
                    {"name": "itemId", "in": "query", "type": "integer"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["active", "overdue", "returned"]},
                    {"name": "borrower", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Loans"],
                "summary": "Lend an item",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateLoanRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Item not available for loan", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Item not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/loans/batch": {
            "post": {
                "tags": ["Loans"],
                "summary": "Lend several items to one borrower",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BatchCreateLoanRequest"}}
                ],
                "responses": {
                    "200": {"description": "Per-entry results and errors", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/loans/{id}": {
            "get": {
                "tags": ["Loans"],
                "summary": "Get loan",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/loans/{id}/return": {
            "put": {
                "tags": ["Loans"],
                "summary": "Return a loan",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ReturnLoanRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Loan already returned", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/loans/return/batch": {
            "post": {
                "tags": ["Loans"],
                "summary": "Return several loans",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BatchReturnLoanRequest"}}
                ],
                "responses": {
                    "200": {"description": "Per-entry results and errors", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/loans/active": {
            "get": {
                "tags": ["Loans"],
                "summary": "Open loans not yet due",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/loans/overdue": {
            "get": {
                "tags": ["Loans"],
                "summary": "Open loans past their due date",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/loans/overdue/sync": {
            "post": {
                "tags": ["Loans"],
                "summary": "Persist overdue status (admin)",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/loans/export": {
            "get": {
                "tags": ["Loans"],
                "summary": "Export loans",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File download", "schema": {"type": "file"}}
                }
            }
        },
        "/qrcodes": {
            "get": {
                "tags": ["QR Codes"],
                "summary": "List QR codes",
                "parameters": [
                    {"name": "assigned", "in": "query", "type": "boolean"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/qrcodes/batch": {
            "post": {
                "tags": ["QR Codes"],
                "summary": "Generate QR codes (admin)",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateQRCodesRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Quantity outside 1-100", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/qrcodes/associate": {
            "post": {
                "tags": ["QR Codes"],
                "summary": "Bind a QR code to an item",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssociateQRCodeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "QR code already assigned", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/qrcodes/unassigned": {
            "get": {
                "tags": ["QR Codes"],
                "summary": "List unassigned QR codes",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/qrcodes/{code}": {
            "get": {
                "tags": ["QR Codes"],
                "summary": "Get QR code",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/activities": {
            "get": {
                "tags": ["Activities"],
                "summary": "Recent activity",
                "parameters": [
                    {"name": "itemId", "in": "query", "type": "integer"},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Inventory overview",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "CreateUserRequest": {
            "type": "object",
            "required": ["email", "fullName", "role", "password"],
            "properties": {
                "email": {"type": "string"},
                "fullName": {"type": "string"},
                "role": {"type": "string", "enum": ["admin", "staff"]},
                "password": {"type": "string", "minLength": 8}
            }
        },
        "CreateItemRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "itemId": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "location": {"type": "string"},
                "photoUrl": {"type": "string"},
                "origin": {"type": "string", "enum": ["purchased", "donated", "other"]},
                "donorName": {"type": "string"},
                "barcode": {"type": "string"},
                "status": {"type": "string", "enum": ["available", "maintenance"]}
            }
        },
        "UpdateItemRequest": {
            "type": "object",
            "properties": {
                "itemId": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "location": {"type": "string"},
                "photoUrl": {"type": "string"},
                "origin": {"type": "string", "enum": ["purchased", "donated", "other"]},
                "donorName": {"type": "string"},
                "barcode": {"type": "string"},
                "status": {"type": "string", "enum": ["available", "maintenance"]}
            }
        },
        "CreateLoanRequest": {
            "type": "object",
            "required": ["itemId", "borrowerName"],
            "properties": {
                "itemId": {"type": "integer"},
                "borrowerName": {"type": "string"},
                "borrowerEmail": {"type": "string"},
                "borrowerPhone": {"type": "string"},
                "dueDate": {"type": "string", "description": "RFC 3339 or YYYY-MM-DD"},
                "notes": {"type": "string"}
            }
        },
        "BatchCreateLoanRequest": {
            "type": "object",
            "required": ["itemIds", "borrowerName"],
            "properties": {
                "itemIds": {"type": "array", "items": {"type": "integer"}},
                "borrowerName": {"type": "string"},
                "borrowerEmail": {"type": "string"},
                "borrowerPhone": {"type": "string"},
                "dueDate": {"type": "string"},
                "notes": {"type": "string"}
            }
        },
        "ReturnLoanRequest": {
            "type": "object",
            "properties": {
                "returnDate": {"type": "string"},
                "condition": {"type": "string"}
            }
        },
        "BatchReturnLoanRequest": {
            "type": "object",
            "required": ["loanIds"],
            "properties": {
                "loanIds": {"type": "array", "items": {"type": "integer"}},
                "returnDate": {"type": "string"},
                "condition": {"type": "string"}
            }
        },
        "GenerateQRCodesRequest": {
            "type": "object",
            "required": ["prefix", "quantity"],
            "properties": {
                "prefix": {"type": "string"},
                "quantity": {"type": "integer", "minimum": 1, "maximum": 100},
                "description": {"type": "string"}
            }
        },
        "AssociateQRCodeRequest": {
            "type": "object",
            "required": ["qrCodeId", "itemId"],
            "properties": {
                "qrCodeId": {"type": "string"},
                "itemId": {"type": "integer"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "pageSize": {"type": "integer"},
                "totalCount": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
