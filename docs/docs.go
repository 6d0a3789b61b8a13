// Package docs holds the OpenAPI document served at /swagger. Regenerate
// with swag init -g server/main.go after changing handler annotations.
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
		"/reservations": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"reservations"
				],
				"summary": "Request seats on a trip",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Trip to book",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/bookings.CreateReservationRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				}
			}
		},
		"/reservations/{id}": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"reservations"
				],
				"summary": "Get a reservation projected for the caller",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Reservation ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				}
			}
		},
		"/reservations/{id}/accept": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"reservations"
				],
				"summary": "Accept a pending reservation",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Reservation ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				}
			}
		},
		"/reservations/{id}/reject": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"reservations"
				],
				"summary": "Reject a pending reservation",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Reservation ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Reason",
						"name": "request",
						"in": "body",
						"required": false,
						"schema": {
							"$ref": "#/definitions/bookings.RejectReservationRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				}
			}
		},
		"/reservations/{id}/cancel": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"reservations"
				],
				"summary": "Cancel a reservation",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Reservation ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Reason",
						"name": "request",
						"in": "body",
						"required": false,
						"schema": {
							"$ref": "#/definitions/bookings.CancelReservationRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				}
			}
		},
		"/reservations/{id}/ticket": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"tickets"
				],
				"summary": "Issue a ticket for an accepted reservation",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Reservation ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Boarding point and seats",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/bookings.IssueTicketRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				}
			}
		},
		"/tickets/{id}": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"tickets"
				],
				"summary": "Get a ticket projected for the caller",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Ticket ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				}
			}
		},
		"/tickets/{id}/pdf": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"tickets"
				],
				"summary": "Download the ticket printout",
				"produces": [
					"application/pdf"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Ticket ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "file"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				}
			}
		},
		"/tickets/{id}/cancel": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"tickets"
				],
				"summary": "Cancel a ticket and release its seats",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Ticket ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				}
			}
		},
		"/tickets/{id}/complete": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"tickets"
				],
				"summary": "Mark a ticket as travelled",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Ticket ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				}
			}
		},
		"/trips/{id}/reservations": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"reservations"
				],
				"summary": "List a trip's reservations",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Trip ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Status filter",
						"name": "status",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "Page",
						"name": "page",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "Page size",
						"name": "limit",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				}
			}
		},
		"/users/reservations": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"reservations"
				],
				"summary": "List the caller's reservations",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Status filter",
						"name": "status",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "Page",
						"name": "page",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "Page size",
						"name": "limit",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				}
			}
		},
		"/users/tickets": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"tickets"
				],
				"summary": "List the caller's tickets",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Status filter",
						"name": "status",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "Page",
						"name": "page",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "Page size",
						"name": "limit",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				}
			}
		},
		"/owner/reports/sales": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"analytics"
				],
				"summary": "Owner sales report",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Start date YYYY-MM-DD",
						"name": "from",
						"in": "query"
					},
					{
						"type": "string",
						"description": "End date YYYY-MM-DD, exclusive",
						"name": "to",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				}
			}
		}
	},
	"definitions": {
		"response.StandardApiResponse": {
			"type": "object",
			"properties": {
				"status": {
					"type": "string"
				},
				"status_code": {
					"type": "integer"
				},
				"message": {
					"type": "string"
				},
				"data": {},
				"errors": {}
			}
		},
		"bookings.CreateReservationRequest": {
			"type": "object",
			"required": [
				"trip_id"
			],
			"properties": {
				"trip_id": {
					"type": "string",
					"format": "uuid"
				}
			}
		},
		"bookings.RejectReservationRequest": {
			"type": "object",
			"properties": {
				"reason": {
					"type": "string",
					"maxLength": 500
				}
			}
		},
		"bookings.CancelReservationRequest": {
			"type": "object",
			"properties": {
				"reason": {
					"type": "string",
					"maxLength": 500
				}
			}
		},
		"bookings.IssueTicketRequest": {
			"type": "object",
			"required": [
				"boarding_point_id",
				"seat_count"
			],
			"properties": {
				"boarding_point_id": {
					"type": "string",
					"format": "uuid"
				},
				"seat_count": {
					"type": "integer",
					"minimum": 1,
					"maximum": 60
				},
				"seat_labels": {
					"type": "array",
					"items": {
						"type": "string"
					}
				}
			}
		}
	},
	"securityDefinitions": {
		"BearerAuth": {
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
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Busline Reservations API",
	Description:      "Reservation state machine and seat ledger for bus trips.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
