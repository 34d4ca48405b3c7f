package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Ops API",
        "description": "Class scheduling, recurring session generation and attendance roll-ups",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Login and token introspection"},
        {"name": "Scheduler", "description": "Recurring session generation and month maintenance"},
        {"name": "Classes", "description": "Class recurrence rules"},
        {"name": "Sessions", "description": "Dated class meetings"},
        {"name": "Attendance", "description": "Attendance records and roll-ups"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/scheduler/run": {
            "post": {
                "tags": ["Scheduler"],
                "summary": "Run session maintenance now",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "description": "Reference date (YYYY-MM-DD)"}
                ],
                "responses": {
                    "200": {"description": "Maintenance summary", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid date", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/classes/{id}/reconcile": {
            "post": {
                "tags": ["Scheduler"],
                "summary": "Reconcile one class month",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "month", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Class not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/sessions": {
            "delete": {
                "tags": ["Scheduler"],
                "summary": "Delete every session of a month",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "month", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/schedule": {
            "get": {
                "tags": ["Classes"],
                "summary": "Get class recurrence",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Classes"],
                "summary": "Replace class recurrence",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ClassScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid recurrence", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List sessions of a month",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "month", "in": "query", "required": true, "type": "string"},
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Sessions"],
                "summary": "Create a manual session",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Class already has a session that day", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/export": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Export the sessions of a month",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "month", "in": "query", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download", "schema": {"type": "file"}}
                }
            }
        },
        "/sessions/{id}": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Get a session",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/status": {
            "patch": {
                "tags": ["Sessions"],
                "summary": "Change session status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateSessionStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/attendance": {
            "put": {
                "tags": ["Attendance"],
                "summary": "Record attendance for a session",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordAttendanceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/attendance": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Get a student's attendance",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not the parent of this student", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/attendance/recompute": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Recompute a student's attendance percentage",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
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
            },
            "required": ["email", "password"]
        },
        "ClassScheduleRequest": {
            "type": "object",
            "properties": {
                "days": {"type": "array", "items": {"type": "string", "enum": ["Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"]}},
                "time": {"type": "string", "example": "09:00"},
                "durationMinutes": {"type": "integer"}
            },
            "required": ["days"]
        },
        "CreateSessionRequest": {
            "type": "object",
            "properties": {
                "classId": {"type": "string"},
                "date": {"type": "string", "example": "2024-03-06"},
                "startTime": {"type": "string", "example": "09:00"},
                "type": {"type": "string", "enum": ["REGULAR", "MAKEUP", "TRIAL"]},
                "studentIds": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["classId", "date"]
        },
        "UpdateSessionStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["SCHEDULED", "IN_PROGRESS", "COMPLETED", "CANCELLED"]}
            },
            "required": ["status"]
        },
        "RecordAttendanceRequest": {
            "type": "object",
            "properties": {
                "studentId": {"type": "string"},
                "status": {"type": "string", "enum": ["PRESENT", "ABSENT", "LATE", "EXCUSED"]},
                "reason": {"type": "string"}
            },
            "required": ["studentId", "status"]
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
