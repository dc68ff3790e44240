package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// @title Driver Review API
// @version 1.0
// @description Read-only API of the driver review console
// @BasePath /api

func RegisterSwaggerHandlers(r *mux.Router) {
	r.HandleFunc("/docs/swagger.json", swaggerJSONHandler).Methods("GET")
}

func swaggerJSONHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(swaggerJSON))
}

const swaggerJSON = `{
  "swagger": "2.0",
  "info": {
    "title": "Driver Review API",
    "description": "Read-only API of the driver review console",
    "version": "1.0"
  },
  "basePath": "/api",
  "consumes": ["application/json"],
  "produces": ["application/json"],
  "paths": {
    "/fields": {
      "get": {
        "summary": "List reviewable fields",
        "description": "Returns the field catalog in rejection-label order",
        "tags": ["Review"],
        "responses": {
          "200": {
            "description": "Field catalog",
            "schema": {
              "type": "array",
              "items": {"$ref": "#/definitions/Field"}
            }
          }
        }
      }
    },
    "/drivers": {
      "get": {
        "summary": "List driver applications",
        "description": "Returns one page of applicants from the driver service",
        "tags": ["Drivers"],
        "parameters": [
          {
            "name": "page",
            "in": "query",
            "required": false,
            "type": "integer",
            "minimum": 1,
            "description": "1-based page number"
          }
        ],
        "responses": {
          "200": {
            "description": "Page of drivers",
            "schema": {"$ref": "#/definitions/DriversPage"}
          },
          "400": {"description": "Invalid page"},
          "502": {"description": "Driver service unavailable"}
        }
      }
    },
    "/decisions": {
      "get": {
        "summary": "List recent decisions",
        "description": "Returns approve and reject decisions made from the console, newest first",
        "tags": ["History"],
        "parameters": [
          {
            "name": "limit",
            "in": "query",
            "required": false,
            "type": "integer",
            "minimum": 1,
            "maximum": 1000,
            "description": "Maximum number of decisions (default 100)"
          }
        ],
        "responses": {
          "200": {
            "description": "Decisions",
            "schema": {
              "type": "array",
              "items": {"$ref": "#/definitions/Decision"}
            }
          },
          "400": {"description": "Invalid limit"},
          "500": {"description": "Internal server error"}
        }
      }
    }
  },
  "definitions": {
    "Field": {
      "type": "object",
      "properties": {
        "key": {"type": "string"},
        "label": {"type": "string"},
        "group": {"type": "string"},
        "kind": {"type": "string", "enum": ["text", "image"]},
        "optional": {"type": "boolean"}
      }
    },
    "DriversPage": {
      "type": "object",
      "properties": {
        "count": {"type": "integer"},
        "next": {"type": "string", "x-nullable": true},
        "previous": {"type": "string", "x-nullable": true},
        "results": {"type": "array", "items": {"type": "object"}}
      }
    },
    "Decision": {
      "type": "object",
      "properties": {
        "id": {"type": "integer"},
        "driver_id": {"type": "integer"},
        "telegram_id": {"type": "integer"},
        "fullname": {"type": "string"},
        "approved": {"type": "boolean"},
        "reasons": {"type": "array", "items": {"type": "string"}},
        "decided_at": {"type": "string", "format": "date-time"}
      }
    }
  }
}`
