package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "StudArch Access API",
        "description": "Role-scoped student records platform: sessions, rosters, reviews and batch imports",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Sessions and credentials"},
        {"name": "Access", "description": "Route access decisions"},
        {"name": "Profiles", "description": "Student profile onboarding"},
        {"name": "Roster", "description": "Teacher-student assignments"},
        {"name": "Records", "description": "Reviewable record workflow"},
        {"name": "Imports", "description": "Batch ingestion jobs"},
        {"name": "Exports", "description": "Downloadable ledgers"},
        {"name": "Students", "description": "Student master list"},
        {"name": "Observability", "description": "Health and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Observability"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Observability"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/api/v1/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/access/check": {
            "get": {
                "tags": ["Access"],
                "summary": "Evaluate route access",
                "parameters": [
                    {"name": "target", "in": "query", "type": "string", "required": true},
                    {"name": "role", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Decision", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/profiles/me": {
            "get": {
                "tags": ["Profiles"],
                "summary": "Own profile with completion state",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Profiles"],
                "summary": "Edit own profile",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Profile not editable"}
                }
            }
        },
        "/api/v1/profiles/me/submit": {
            "post": {
                "tags": ["Profiles"],
                "summary": "Submit profile for review",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Already submitted"}
                }
            }
        },
        "/api/v1/roster": {
            "get": {
                "tags": ["Roster"],
                "summary": "List assigned students",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Roster"],
                "summary": "Assign a student",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Student not found"}
                }
            }
        },
        "/api/v1/roster/batch": {
            "post": {
                "tags": ["Roster"],
                "summary": "Assign many students with per-id outcomes",
                "responses": {
                    "200": {"description": "Partial results", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/records": {
            "get": {
                "tags": ["Records"],
                "summary": "List records in scope",
                "parameters": [
                    {"name": "kind", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Records"],
                "summary": "Submit a record",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/api/v1/records/{id}/decision": {
            "post": {
                "tags": ["Records"],
                "summary": "Approve or reject a pending record",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Decided"},
                    "409": {"description": "Already reviewed"}
                }
            }
        },
        "/api/v1/imports": {
            "post": {
                "tags": ["Imports"],
                "summary": "Upload a batch CSV",
                "responses": {
                    "200": {"description": "Processed"},
                    "202": {"description": "Queued"}
                }
            },
            "get": {
                "tags": ["Imports"],
                "summary": "List own import jobs",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Create a student with a linked account",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Email or student number taken"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
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
