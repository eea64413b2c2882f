package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Timetable API",
        "description": "Weekly recurring course scheduling with teacher and classroom conflict detection",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Schedules", "description": "Weekly slot booking"},
        {"name": "Timetables", "description": "Day-grouped weekly views"}
    ],
    "paths": {
        "/schedules": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List weekly slots",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "courseId", "in": "query", "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "classroomId", "in": "query", "type": "string"},
                    {"name": "dayOfWeek", "in": "query", "type": "integer", "minimum": 0, "maximum": 6},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Schedules"],
                "summary": "Book a weekly slot",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateWeeklySlotRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "INVALID_FORMAT, INVERTED_RANGE, OUT_OF_OPERATING_HOURS or VALIDATION_ERROR"},
                    "404": {"description": "Course not found"},
                    "409": {"description": "SCHEDULE_CONFLICT with every conflicting slot in error.details.conflicts"},
                    "503": {"description": "TRANSIENT_STORE_ERROR, retry the request"}
                }
            }
        },
        "/schedules/check-availability": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Check whether a booking would succeed",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "courseId", "in": "query", "type": "string", "required": true},
                    {"name": "dayOfWeek", "in": "query", "type": "integer", "required": true, "minimum": 0, "maximum": 6},
                    {"name": "startTime", "in": "query", "type": "string", "required": true},
                    {"name": "endTime", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad request"},
                    "404": {"description": "Course not found"}
                }
            }
        },
        "/schedules/{id}": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Get weekly slot",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "patch": {
                "tags": ["Schedules"],
                "summary": "Move a weekly slot",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateWeeklySlotRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad request"},
                    "404": {"description": "Not found"},
                    "409": {"description": "SCHEDULE_CONFLICT"},
                    "503": {"description": "TRANSIENT_STORE_ERROR"}
                }
            },
            "delete": {
                "tags": ["Schedules"],
                "summary": "Delete a weekly slot",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/schedules/teacher/{teacherId}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Teacher timetable",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "teacherId", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TimetableEnvelope"}},
                    "404": {"description": "Teacher not found"}
                }
            }
        },
        "/schedules/teacher/{teacherId}/export": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Export teacher timetable as CSV",
                "produces": ["text/csv"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "teacherId", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "CSV file", "schema": {"type": "file"}},
                    "404": {"description": "Teacher not found"}
                }
            }
        },
        "/schedules/student/{studentId}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Student timetable",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "studentId", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TimetableEnvelope"}},
                    "404": {"description": "Student not found"}
                }
            }
        },
        "/schedules/classroom/{classroomId}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Classroom timetable",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "classroomId", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TimetableEnvelope"}},
                    "404": {"description": "Classroom not found"}
                }
            }
        }
    },
    "definitions": {
        "CreateWeeklySlotRequest": {
            "type": "object",
            "required": ["course_id", "day_of_week", "start_time", "end_time"],
            "properties": {
                "course_id": {"type": "string"},
                "day_of_week": {"type": "integer", "minimum": 0, "maximum": 6},
                "start_time": {"type": "string", "example": "08:00"},
                "end_time": {"type": "string", "example": "09:30"}
            }
        },
        "UpdateWeeklySlotRequest": {
            "type": "object",
            "properties": {
                "day_of_week": {"type": "integer", "minimum": 0, "maximum": 6},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"}
            }
        },
        "SlotDetail": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "course_id": {"type": "string"},
                "day_of_week": {"type": "integer"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "school_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "subject_name": {"type": "string"},
                "teacher_id": {"type": "string"},
                "teacher_name": {"type": "string"},
                "classroom_id": {"type": "string"},
                "classroom_name": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "WeekTimetable": {
            "type": "object",
            "description": "Keys \"0\" (Sunday) to \"6\" (Saturday), every key present",
            "additionalProperties": {"type": "array", "items": {"$ref": "#/definitions/SlotDetail"}}
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
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
        },
        "TimetableEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/WeekTimetable"},
                "meta": {"type": "object", "properties": {"cache_hit": {"type": "boolean"}}}
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
