package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SchoolDesk API",
        "description": "School management backend: accounts, classes, schedules, planners, fees and finance",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, silent refresh and sessions"},
        {"name": "Guardian", "description": "Guardian access-code sessions and planner approval"},
        {"name": "Planner", "description": "Student daily planner and teacher review"},
        {"name": "Users", "description": "Account management"},
        {"name": "Classes", "description": "Class management"},
        {"name": "Subjects", "description": "Subject catalogue"},
        {"name": "Schedules", "description": "Weekly schedule grids"},
        {"name": "Announcements", "description": "Role-targeted notices"},
        {"name": "Finance", "description": "Revenue and expense ledger"},
        {"name": "Fees", "description": "Fee collection and PDF receipts"},
        {"name": "Attendance", "description": "First-period attendance"},
        {"name": "Dashboard", "description": "Cached admin counters"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate by email or index number",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Rotate the refresh cookie for a new access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Missing or revoked refresh token"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke the refresh token and clear the cookie",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current principal",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/guardian/login": {
            "post": {
                "tags": ["Guardian"],
                "summary": "Guardian login with index number and access code",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GuardianLoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid index number or access code"}
                }
            }
        },
        "/guardian/pending-planners": {
            "get": {
                "tags": ["Guardian"],
                "summary": "Planners awaiting the guardian's signature",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/guardian/approve-planner/{id}": {
            "post": {
                "tags": ["Guardian"],
                "summary": "Countersign a pending planner",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GuardianApproveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Planner no longer pending"}
                }
            }
        },
        "/student/daily-planner": {
            "get": {
                "tags": ["Planner"],
                "summary": "Planner for a date, seeded from the class schedule when new",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Planner"],
                "summary": "Save planner content and submit for approval",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PlannerContentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Planner locked for review"}
                }
            }
        },
        "/student/daily-planner/{id}/recall": {
            "post": {
                "tags": ["Planner"],
                "summary": "Recall a pending planner for editing",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Planner not pending"}
                }
            }
        },
        "/teacher/guardian-approved-planners": {
            "get": {
                "tags": ["Planner"],
                "summary": "Review queue across the teacher's homeroom classes",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teacher/review-planner/{id}": {
            "post": {
                "tags": ["Planner"],
                "summary": "Approve or decline a guardian-approved planner",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TeacherReviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Decline without comment"},
                    "409": {"description": "Planner not awaiting review"}
                }
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List users",
                "parameters": [
                    {"name": "role", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Users"],
                "summary": "Create user",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users/{id}/guardian-code": {
            "post": {
                "tags": ["Guardian"],
                "summary": "Issue a new guardian access code for a student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/class/{id}": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Weekly grid for a class",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Schedules"],
                "summary": "Replace the weekly grid",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Teacher double booking"}
                }
            }
        },
        "/fees/collect": {
            "post": {
                "tags": ["Fees"],
                "summary": "Record a payment and queue the receipt render",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Month already paid"}
                }
            }
        },
        "/fees/{id}/receipt-link": {
            "get": {
                "tags": ["Fees"],
                "summary": "Signed download link once the receipt is READY",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Receipt not ready"}
                }
            }
        },
        "/fees/receipt/{token}": {
            "get": {
                "tags": ["Fees"],
                "summary": "Download a receipt PDF with a signed token",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF"},
                    "401": {"description": "Invalid or expired link"}
                }
            }
        },
        "/dashboard/stats": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Aggregate admin counters",
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
                "identifier": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["identifier", "password"]
        },
        "GuardianLoginRequest": {
            "type": "object",
            "properties": {
                "index_number": {"type": "string"},
                "access_code": {"type": "string"}
            },
            "required": ["index_number", "access_code"]
        },
        "GuardianApproveRequest": {
            "type": "object",
            "properties": {
                "signature": {"type": "string"}
            },
            "required": ["signature"]
        },
        "TeacherReviewRequest": {
            "type": "object",
            "properties": {
                "approve": {"type": "boolean"},
                "comment": {"type": "string"}
            },
            "required": ["approve"]
        },
        "PlannerContentRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "weather": {"type": "string"},
                "todays_goal": {"type": "string"},
                "study_goal": {"type": "string"},
                "total_study_time": {"type": "string"},
                "break_time": {"type": "string"},
                "sleep_hours": {"type": "string"},
                "reading_list": {"type": "array", "items": {"type": "object"}},
                "todo_list": {"type": "array", "items": {"type": "object"}},
                "lesson_plans": {"type": "array", "items": {"type": "object"}},
                "assignments_exams": {"type": "string"},
                "self_reflection": {"type": "string"},
                "evaluation_scale": {"type": "integer"}
            },
            "required": ["date"]
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
