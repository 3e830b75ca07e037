package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Finance API",
        "description": "Tuition payment allocation and reconciliation for school cashiers",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Finance", "description": "Student balances and recovery"},
        {"name": "Payments", "description": "Cashier payment drafts and ledger commits"},
        {"name": "Observability", "description": "Commit and ledger counters"}
    ],
    "paths": {
        "/students/{id}/financial-summary": {
            "get": {
                "tags": ["Finance"],
                "summary": "Student financial summary",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "academicYearId", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student or registration not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/recovery": {
            "get": {
                "tags": ["Finance"],
                "summary": "Committed payments grouped by fee type and method",
                "produces": ["application/json", "text/csv"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "academicYearId", "in": "query", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["json", "csv"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payment-drafts": {
            "post": {
                "tags": ["Payments"],
                "summary": "Open a payment draft",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateDraftRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payment-drafts/{id}": {
            "get": {
                "tags": ["Payments"],
                "summary": "Get a payment draft revalidated against current balances",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Draft not found or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Payments"],
                "summary": "Discard a payment draft",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/payment-drafts/{id}/installments/{installmentId}/toggle": {
            "post": {
                "tags": ["Payments"],
                "summary": "Select or deselect an installment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "installmentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payment-drafts/{id}/installments/{installmentId}/amount": {
            "put": {
                "tags": ["Payments"],
                "summary": "Set the amount allocated to an installment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "installmentId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AmountRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payment-drafts/{id}/installments/{installmentId}/methods": {
            "post": {
                "tags": ["Payments"],
                "summary": "Add a payment method entry to an installment split",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "installmentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payment-drafts/{id}/installments/{installmentId}/methods/{index}": {
            "patch": {
                "tags": ["Payments"],
                "summary": "Update the method or amount of a split entry",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "installmentId", "in": "path", "required": true, "type": "string"},
                    {"name": "index", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateMethodRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Payments"],
                "summary": "Remove a split entry",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "installmentId", "in": "path", "required": true, "type": "string"},
                    {"name": "index", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payment-drafts/{id}/discount": {
            "put": {
                "tags": ["Payments"],
                "summary": "Apply or clear a discount on a pricing line",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DiscountRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payment-drafts/{id}/given-amount": {
            "put": {
                "tags": ["Payments"],
                "summary": "Record the amount handed over by the payer",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AmountRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payment-drafts/{id}/commit": {
            "post": {
                "tags": ["Payments"],
                "summary": "Commit a payment draft to the ledger",
                "description": "Installments are committed one by one. A failure stops the batch; installments already committed stay committed.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CommitRequest"}}
                ],
                "responses": {
                    "201": {"description": "All installments committed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "200": {"description": "Partial commit", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Commit already running", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Batch rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payment-drafts/{id}/journal": {
            "get": {
                "tags": ["Payments"],
                "summary": "Commit journal of a payment draft",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Commit and ledger counters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateDraftRequest": {
            "type": "object",
            "required": ["student_id", "academic_year_id"],
            "properties": {
                "student_id": {"type": "string"},
                "academic_year_id": {"type": "string"}
            }
        },
        "AmountRequest": {
            "type": "object",
            "properties": {
                "amount": {"type": "string", "example": "250.00"}
            }
        },
        "UpdateMethodRequest": {
            "type": "object",
            "required": ["field"],
            "properties": {
                "field": {"type": "string", "enum": ["method", "method_id", "amount"]},
                "value": {"type": "string"}
            }
        },
        "DiscountRequest": {
            "type": "object",
            "properties": {
                "pricing_id": {"type": "string"},
                "amount": {"type": "string"}
            }
        },
        "CommitRequest": {
            "type": "object",
            "required": ["user_id", "cashier_id", "cash_register_id", "cash_register_session_id"],
            "properties": {
                "user_id": {"type": "string"},
                "cashier_id": {"type": "string"},
                "cash_register_id": {"type": "string"},
                "cash_register_session_id": {"type": "string"}
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
