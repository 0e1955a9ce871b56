package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus Pulse Events API",
        "description": "Capacity-aware event registration, waitlist, and reconciliation backend",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Attendance", "description": "Event registration and attendance"},
        {"name": "Waitlist", "description": "Per-event FIFO waitlist"},
        {"name": "Notifications", "description": "Per-user notification feed"},
        {"name": "Reconciliation", "description": "Waitlist window sweep and capacity resync"}
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
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Not ready"}
                }
            }
        },
        "/attendance": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Register for an event",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Event not found"},
                    "409": {"description": "Duplicate registration or event full"}
                }
            }
        },
        "/attendance/check-registration": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Check a user's registration for an event",
                "parameters": [
                    {"name": "userId", "in": "query", "type": "string", "required": true},
                    {"name": "eventId", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/slots/remaining": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Get the occupancy breakdown and remaining slots for an event",
                "parameters": [
                    {"name": "eventId", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Event not found or incomplete"}
                }
            }
        },
        "/attendance/count/{eventId}": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Get per-event attendance counters",
                "parameters": [
                    {"name": "eventId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/unattended": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List confirmed registrants who have not attended yet",
                "parameters": [
                    {"name": "eventId", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/attend": {
            "put": {
                "tags": ["Attendance"],
                "summary": "Mark a user as attended",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Attendance record not found"}
                }
            }
        },
        "/attendance/events/{eventId}/records": {
            "put": {
                "tags": ["Attendance"],
                "summary": "Apply a batch of registration approvals for an event",
                "parameters": [
                    {"name": "eventId", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkApproveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not enough capacity for all selected users"}
                }
            }
        },
        "/attendance/mark-registered/{id}": {
            "put": {
                "tags": ["Attendance"],
                "summary": "Confirm a single attendance record",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not enough remaining capacity"}
                }
            }
        },
        "/attendance/mark-unregistered/{id}": {
            "put": {
                "tags": ["Attendance"],
                "summary": "Revoke confirmation of a single attendance record",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/{id}": {
            "delete": {
                "tags": ["Attendance"],
                "summary": "Delete an attendance record",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Attendance record not found"}
                }
            }
        },
        "/waitlist": {
            "post": {
                "tags": ["Waitlist"],
                "summary": "Join an event's waitlist",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/JoinWaitlistRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already waitlisted"}
                }
            }
        },
        "/waitlist/position/{eventId}/{userId}": {
            "get": {
                "tags": ["Waitlist"],
                "summary": "Get a user's position in an event's waitlist",
                "parameters": [
                    {"name": "eventId", "in": "path", "type": "string", "required": true},
                    {"name": "userId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Event not found or incomplete"}
                }
            }
        },
        "/waitlist/confirm": {
            "post": {
                "tags": ["Waitlist"],
                "summary": "Confirm a promoted waitlist slot",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/JoinWaitlistRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "User not in waitlist"}
                }
            }
        },
        "/waitlist/expire/{userId}/{eventId}": {
            "delete": {
                "tags": ["Waitlist"],
                "summary": "Remove a waitlist entry whose turn lapsed",
                "parameters": [
                    {"name": "userId", "in": "path", "type": "string", "required": true},
                    {"name": "eventId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "User not in waitlist"}
                }
            }
        },
        "/waitlist/check": {
            "get": {
                "tags": ["Waitlist"],
                "summary": "Check whether a user is on an event's waitlist",
                "parameters": [
                    {"name": "userId", "in": "query", "type": "string", "required": true},
                    {"name": "eventId", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/waitlist/first/{eventId}": {
            "get": {
                "tags": ["Waitlist"],
                "summary": "Get the earliest waitlist entry for an event",
                "parameters": [
                    {"name": "eventId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Waitlist is empty"}
                }
            }
        },
        "/waitlist/all/{eventId}": {
            "get": {
                "tags": ["Waitlist"],
                "summary": "List every waitlist entry for an event",
                "parameters": [
                    {"name": "eventId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/{userId}": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List a user's notifications, newest first",
                "parameters": [
                    {"name": "userId", "in": "path", "type": "string", "required": true},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/{id}/read": {
            "put": {
                "tags": ["Notifications"],
                "summary": "Mark a notification as read",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Notification not found"}
                }
            }
        },
        "/reconciliation/sweep": {
            "post": {
                "tags": ["Reconciliation"],
                "summary": "Run a reconciliation sweep over all active events",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reconciliation/sweep/{eventId}": {
            "post": {
                "tags": ["Reconciliation"],
                "summary": "Reconcile a single event",
                "parameters": [
                    {"name": "eventId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Event not found"}
                }
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["userId", "eventId"],
            "properties": {
                "userId": {"type": "string"},
                "eventId": {"type": "string"}
            }
        },
        "JoinWaitlistRequest": {
            "type": "object",
            "required": ["userId", "eventId"],
            "properties": {
                "userId": {"type": "string"},
                "eventId": {"type": "string"}
            }
        },
        "BulkApproveRequest": {
            "type": "object",
            "required": ["attendees"],
            "properties": {
                "attendees": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/AttendanceUpdate"}
                }
            }
        },
        "AttendanceUpdate": {
            "type": "object",
            "required": ["userId"],
            "properties": {
                "userId": {"type": "string"},
                "hasRegistered": {"type": "boolean"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "limit": {"type": "integer"},
                "total": {"type": "integer"}
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
