package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SIMS Core API",
        "description": "Result lifecycle and enrollment capacity engine",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Terms", "description": "Academic terms"},
        {"name": "Sections", "description": "Course sections and capacity"},
        {"name": "Enrollments", "description": "Capacity-guarded enrollment ledger"},
        {"name": "Attendance", "description": "Attendance facts and exam eligibility"},
        {"name": "Results", "description": "Result draft/publish lifecycle"},
        {"name": "ChangeRequests", "description": "Post-publication grade corrections"},
        {"name": "Dashboard", "description": "Cached aggregate statistics"}
    ],
    "paths": {
        "/terms": {
            "post": {
                "tags": ["Terms"],
                "summary": "Register an academic term",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTermRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Term already exists"}
                }
            }
        },
        "/terms/{name}": {
            "get": {
                "tags": ["Terms"],
                "summary": "Get a term",
                "parameters": [
                    {"name": "name", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sections": {
            "post": {
                "tags": ["Sections"],
                "summary": "Create a course section",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSectionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sections/{id}": {
            "get": {
                "tags": ["Sections"],
                "summary": "Get a section",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sections/{id}/roster": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List active enrollments for a section",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll student into a section",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnrollRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Capacity exceeded or duplicate enrollment"}
                }
            }
        },
        "/enrollments/{id}/withdraw": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Withdraw an enrollment",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Record an attendance fact",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordAttendanceRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/eligibility": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Evaluate exam eligibility",
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string", "required": true},
                    {"name": "sectionId", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results": {
            "post": {
                "tags": ["Results"],
                "summary": "Create a draft result",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateDraftRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Result already exists"}
                }
            }
        },
        "/results/{id}": {
            "get": {
                "tags": ["Results"],
                "summary": "Get a result",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Results"],
                "summary": "Update the grade on a draft result",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateDraftRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already published"}
                }
            }
        },
        "/results/{id}/publish": {
            "post": {
                "tags": ["Results"],
                "summary": "Publish a draft result",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already published"}
                }
            }
        },
        "/change-requests": {
            "get": {
                "tags": ["ChangeRequests"],
                "summary": "List change requests",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "resultId", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["ChangeRequests"],
                "summary": "Propose a grade change",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ProposeChangeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Pending request already exists"}
                }
            }
        },
        "/change-requests/{id}": {
            "get": {
                "tags": ["ChangeRequests"],
                "summary": "Get a change request",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/change-requests/{id}/resolve": {
            "post": {
                "tags": ["ChangeRequests"],
                "summary": "Approve or reject a pending change request",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveChangeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already resolved"}
                }
            }
        },
        "/dashboard/stats": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Dashboard statistics for the caller's role",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateTermRequest": {
            "type": "object",
            "required": ["name", "start_date", "end_date"],
            "properties": {
                "name": {"type": "string"},
                "status": {"type": "string", "enum": ["open", "closed"]},
                "start_date": {"type": "string", "format": "date"},
                "end_date": {"type": "string", "format": "date"}
            }
        },
        "CreateSectionRequest": {
            "type": "object",
            "required": ["course_code", "course_title", "term", "teacher_name"],
            "properties": {
                "course_code": {"type": "string"},
                "course_title": {"type": "string"},
                "term": {"type": "string"},
                "teacher_id": {"type": "string"},
                "teacher_name": {"type": "string"},
                "capacity": {"type": "integer", "minimum": 1}
            }
        },
        "EnrollRequest": {
            "type": "object",
            "required": ["student_id", "section_id"],
            "properties": {
                "student_id": {"type": "string"},
                "section_id": {"type": "string"}
            }
        },
        "RecordAttendanceRequest": {
            "type": "object",
            "required": ["student_id", "section_id", "date"],
            "properties": {
                "student_id": {"type": "string"},
                "section_id": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "present": {"type": "boolean"},
                "reason": {"type": "string"}
            }
        },
        "CreateDraftRequest": {
            "type": "object",
            "required": ["student_id", "section_id"],
            "properties": {
                "student_id": {"type": "string"},
                "section_id": {"type": "string"},
                "grade": {"type": "string"}
            }
        },
        "UpdateDraftRequest": {
            "type": "object",
            "required": ["grade"],
            "properties": {
                "grade": {"type": "string"}
            }
        },
        "ProposeChangeRequest": {
            "type": "object",
            "required": ["result_id", "proposed_grade", "reason"],
            "properties": {
                "result_id": {"type": "string"},
                "proposed_grade": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "ResolveChangeRequest": {
            "type": "object",
            "properties": {
                "approve": {"type": "boolean"}
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
