package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Teacher Portal API",
        "description": "E-book library and class grade reports",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "EBooks", "description": "E-book library with PDF attachments"},
        {"name": "Grades", "description": "Per-class student marks and report export"}
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
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/api/ebooks": {
            "get": {
                "tags": ["EBooks"],
                "summary": "List e-books, newest first",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/EBookListEnvelope"}}
                }
            },
            "post": {
                "tags": ["EBooks"],
                "summary": "Create e-book",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "title", "in": "formData", "required": true, "type": "string"},
                    {"name": "author", "in": "formData", "required": true, "type": "string"},
                    {"name": "subject", "in": "formData", "required": true, "type": "string"},
                    {"name": "class", "in": "formData", "required": true, "type": "string"},
                    {"name": "pdf", "in": "formData", "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/EBookEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
                    "413": {"description": "File too large", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
                    "415": {"description": "File is not a PDF", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/api/ebooks/{id}": {
            "put": {
                "tags": ["EBooks"],
                "summary": "Update e-book; the stored PDF is replaced only when a new one is sent",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "title", "in": "formData", "required": true, "type": "string"},
                    {"name": "author", "in": "formData", "required": true, "type": "string"},
                    {"name": "subject", "in": "formData", "required": true, "type": "string"},
                    {"name": "class", "in": "formData", "required": true, "type": "string"},
                    {"name": "pdf", "in": "formData", "type": "file"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/EBookEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            },
            "delete": {
                "tags": ["EBooks"],
                "summary": "Delete e-book",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/api/ebooks/{id}/download": {
            "get": {
                "tags": ["EBooks"],
                "summary": "Download the attached PDF through a signed link",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF stream", "schema": {"type": "file"}},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
                    "404": {"description": "No file attached", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/grades": {
            "post": {
                "tags": ["Grades"],
                "summary": "Add student marks",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateGradeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/StudentGrade"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/grades/{className}": {
            "get": {
                "tags": ["Grades"],
                "summary": "List students of a class",
                "parameters": [
                    {"name": "className", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/StudentGrade"}}}
                }
            }
        },
        "/grades/{className}/export": {
            "get": {
                "tags": ["Grades"],
                "summary": "Export the class report",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "className", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Report file", "schema": {"type": "file"}},
                    "400": {"description": "Unknown format", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/grades/{id}": {
            "put": {
                "tags": ["Grades"],
                "summary": "Update student marks",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateGradeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/StudentGrade"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Grades"],
                "summary": "Delete student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "EBook": {
            "type": "object",
            "properties": {
                "_id": {"type": "string"},
                "title": {"type": "string"},
                "author": {"type": "string"},
                "subject": {"type": "string"},
                "class": {"type": "string"},
                "fileSize": {"type": "string"},
                "uploadDate": {"type": "string"},
                "pdfUrl": {"type": "string"}
            }
        },
        "EBookEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/EBook"}
            }
        },
        "EBookListEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/EBook"}}
            }
        },
        "StudentGrade": {
            "type": "object",
            "properties": {
                "_id": {"type": "string"},
                "name": {"type": "string"},
                "rollNo": {"type": "string"},
                "class": {"type": "string"},
                "math": {"type": "number"},
                "english": {"type": "number"},
                "science": {"type": "number"},
                "socialStudies": {"type": "number"},
                "computer": {"type": "number"},
                "hindi": {"type": "number"},
                "totalMarks": {"type": "number"},
                "average": {"type": "integer"},
                "grade": {"type": "string"}
            }
        },
        "CreateGradeRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "rollNo": {"type": "string"},
                "class": {"type": "string"},
                "math": {"type": "number"},
                "english": {"type": "number"},
                "science": {"type": "number"},
                "socialStudies": {"type": "number"},
                "computer": {"type": "number"},
                "hindi": {"type": "number"},
                "totalMarks": {"type": "number"},
                "average": {"type": "integer"},
                "grade": {"type": "string"}
            },
            "required": ["name", "rollNo", "class"]
        },
        "UpdateGradeRequest": {
            "type": "object",
            "properties": {
                "class": {"type": "string"},
                "math": {"type": "number"},
                "english": {"type": "number"},
                "science": {"type": "number"},
                "socialStudies": {"type": "number"},
                "computer": {"type": "number"},
                "hindi": {"type": "number"},
                "totalMarks": {"type": "number"},
                "average": {"type": "integer"},
                "grade": {"type": "string"}
            },
            "required": ["class"]
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ErrorEnvelope": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/APIError"}
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
