package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Academia API",
        "description": "School administration service: academic calendar, grading and report cards",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Calendar", "description": "School years and grading periods"},
        {"name": "Grades", "description": "Grade entries"},
        {"name": "Attendance", "description": "Attendance records"},
        {"name": "Enrollments", "description": "Student enrollments"},
        {"name": "Assignments", "description": "Teacher subject assignments"},
        {"name": "Report Cards", "description": "Report card generation and download"},
        {"name": "Grading Scale", "description": "Performance tier configuration"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and obtain an access token",
                "parameters": [
                    {"name": "body", "in": "body", "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Token issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/calendar/years": {
            "get": {
                "tags": ["Calendar"],
                "summary": "List school years",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Calendar"],
                "summary": "Create a school year",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Duplicate year"}
                }
            }
        },
        "/calendar/activate": {
            "post": {
                "tags": ["Calendar"],
                "summary": "Activate a year and period pair",
                "responses": {
                    "200": {"description": "Activated"},
                    "404": {"description": "Pair not found"}
                }
            }
        },
        "/calendar/years/{year}/periods": {
            "get": {
                "tags": ["Calendar"],
                "summary": "List the period windows of a school year",
                "parameters": [{"name": "year", "in": "path", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/calendar/years/{year}/periods/{periodId}": {
            "put": {
                "tags": ["Calendar"],
                "summary": "Override one period window for a school year",
                "parameters": [
                    {"name": "year", "in": "path", "type": "integer", "required": true},
                    {"name": "periodId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {"200": {"description": "Updated"}}
            }
        },
        "/calendar/periods": {
            "get": {
                "tags": ["Calendar"],
                "summary": "List grading periods",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Calendar"],
                "summary": "Create a grading period",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Window overlap"}
                }
            }
        },
        "/calendar/periods/{id}": {
            "put": {
                "tags": ["Calendar"],
                "summary": "Update a grading period",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "Updated"}}
            },
            "delete": {
                "tags": ["Calendar"],
                "summary": "Soft delete a grading period",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/calendar/active": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Resolve the active year and period",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/calendar/active/window": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Resolve the active period window as concrete dates",
                "responses": {
                    "200": {"description": "OK"},
                    "412": {"description": "No active year or period"}
                }
            }
        },
        "/grades": {
            "get": {
                "tags": ["Grades"],
                "summary": "List grade entries",
                "parameters": [
                    {"name": "enrollment_id", "in": "query", "type": "string"},
                    {"name": "assignment_id", "in": "query", "type": "string"},
                    {"name": "period_id", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Grades"],
                "summary": "Record or update a grade entry",
                "responses": {
                    "200": {"description": "Saved"},
                    "400": {"description": "Date outside active period"}
                }
            }
        },
        "/grades/{id}": {
            "delete": {
                "tags": ["Grades"],
                "summary": "Delete a grade entry",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/attendance": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List attendance records",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Attendance"],
                "summary": "Record or update attendance",
                "responses": {
                    "200": {"description": "Saved"},
                    "400": {"description": "Future date or outside active period"}
                }
            }
        },
        "/attendance/summary/{enrollmentId}": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Attendance summary for an enrollment in the active period",
                "parameters": [{"name": "enrollmentId", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List enrollments",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Enrollments"],
                "summary": "Create an enrollment",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/enrollments/{id}": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Get one enrollment",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/enrollments/{id}/course": {
            "put": {
                "tags": ["Enrollments"],
                "summary": "Reassign an enrollment to another course",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "Reassigned"}}
            }
        },
        "/enrollments/{id}/withdraw": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Withdraw an enrollment",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "Withdrawn"}}
            }
        },
        "/assignments": {
            "get": {
                "tags": ["Assignments"],
                "summary": "List teacher assignments",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Assignments"],
                "summary": "Assign a teacher to a subject and course",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/assignments/{id}/hours": {
            "put": {
                "tags": ["Assignments"],
                "summary": "Update taught hours for an assignment",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "Updated"}}
            }
        },
        "/report-cards": {
            "get": {
                "tags": ["Report Cards"],
                "summary": "List report cards",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/report-cards/courses/{courseId}/generate": {
            "post": {
                "tags": ["Report Cards"],
                "summary": "Generate missing report cards for a course in the active period",
                "parameters": [{"name": "courseId", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "Generated"}}
            }
        },
        "/report-cards/courses/{courseId}/standing": {
            "get": {
                "tags": ["Report Cards"],
                "summary": "Course ranking by period average",
                "parameters": [{"name": "courseId", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/report-cards/{id}": {
            "get": {
                "tags": ["Report Cards"],
                "summary": "View a report card, recomputed on read",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Report Cards"],
                "summary": "Soft delete a report card",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/report-cards/{id}/comments": {
            "put": {
                "tags": ["Report Cards"],
                "summary": "Update the comments block of a report card",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "Updated"}}
            }
        },
        "/report-cards/{id}/pdf": {
            "get": {
                "tags": ["Report Cards"],
                "summary": "Download a report card PDF",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "produces": ["application/pdf"],
                "responses": {"200": {"description": "PDF stream"}}
            }
        },
        "/report-cards/courses/{courseId}/archive": {
            "get": {
                "tags": ["Report Cards"],
                "summary": "Download every report card of a course as a zip archive",
                "parameters": [
                    {"name": "courseId", "in": "path", "type": "string", "required": true},
                    {"name": "periodId", "in": "query", "type": "string", "required": true}
                ],
                "produces": ["application/zip"],
                "responses": {"200": {"description": "Zip stream"}}
            }
        },
        "/grading-scale": {
            "get": {
                "tags": ["Grading Scale"],
                "summary": "Fetch the grading scale for the active year",
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["Grading Scale"],
                "summary": "Update tier cutoffs",
                "responses": {
                    "200": {"description": "Updated"},
                    "400": {"description": "Cutoffs not ascending"}
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
