// Package docs registers the frequency OpenAPI document with swag so the
// swagger UI (build tag `swagger`) can serve it. Regenerate with `make swagger-gen`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {"name": "frequency maintainers"},
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/v1": {"get": {"tags": ["meta"], "summary": "API info", "produces": ["application/json"],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.InfoResponse"}}}}},
        "/v1/health": {"get": {"tags": ["meta"], "summary": "Health check", "produces": ["application/json"],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HealthResponse"}}}}},
        "/v1/status": {"get": {"tags": ["meta"], "summary": "Manager status", "produces": ["application/json"],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}}},
        "/v1/models": {
            "get": {"tags": ["models"], "summary": "List registered models", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}}}},
            "post": {"tags": ["models"], "summary": "Load a model", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.LoadModelRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Model"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}}},
        "/v1/models/available": {"get": {"tags": ["models"], "summary": "List model files under the models directory", "produces": ["application/json"],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.AvailableModelsResponse"}}}}},
        "/v1/models/{name}": {
            "get": {"tags": ["models"], "summary": "Get a model", "produces": ["application/json"],
                "parameters": [{"type": "string", "in": "path", "name": "name", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Model"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}},
            "delete": {"tags": ["models"], "summary": "Delete a model",
                "parameters": [{"type": "string", "in": "path", "name": "name", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}}},
        "/v1/models/{name}/chat": {"post": {"tags": ["models"], "summary": "Chat with a loaded model",
            "consumes": ["application/json"], "produces": ["application/json", "application/x-ndjson"],
            "parameters": [
                {"type": "string", "in": "path", "name": "name", "required": true},
                {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.ChatRequest"}}],
            "responses": {
                "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ChatResponse"}},
                "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}}},
        "/v1/models/{name}/chat/ws": {"get": {"tags": ["models"], "summary": "Chat over a websocket",
            "parameters": [{"type": "string", "in": "path", "name": "name", "required": true}],
            "responses": {"101": {"description": "Switching Protocols"}}}},
        "/v1/models/{name}/adapters/{adapter}": {"delete": {"tags": ["adapters"], "summary": "Detach an adapter from a loaded model",
            "parameters": [
                {"type": "string", "in": "path", "name": "name", "required": true},
                {"type": "string", "in": "path", "name": "adapter", "required": true}],
            "responses": {
                "204": {"description": "No Content"},
                "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}}},
        "/v1/adapters": {
            "get": {"tags": ["adapters"], "summary": "List adapters", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.AdaptersResponse"}}}},
            "post": {"tags": ["adapters"], "summary": "Load an adapter", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.Adapter"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Adapter"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}}},
        "/v1/adapters/{name}": {
            "get": {"tags": ["adapters"], "summary": "Get an adapter", "produces": ["application/json"],
                "parameters": [{"type": "string", "in": "path", "name": "name", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Adapter"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}},
            "delete": {"tags": ["adapters"], "summary": "Delete an adapter record",
                "parameters": [{"type": "string", "in": "path", "name": "name", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}}}
    },
    "definitions": {
        "types.Adapter": {"type": "object", "properties": {
            "name": {"type": "string", "example": "adapter_1"},
            "model": {"type": "string", "example": "opt"},
            "hf_repo": {"type": "string"},
            "uri": {"type": "string", "example": "gs://my-bucket/adapters/opt-lora.bin"}}},
        "types.AdaptersResponse": {"type": "object", "properties": {
            "adapters": {"type": "array", "items": {"$ref": "#/definitions/types.Adapter"}}}},
        "types.AvailableModel": {"type": "object", "properties": {
            "id": {"type": "string"}, "name": {"type": "string"}, "path": {"type": "string"}}},
        "types.AvailableModelsResponse": {"type": "object", "properties": {
            "models": {"type": "array", "items": {"$ref": "#/definitions/types.AvailableModel"}}}},
        "types.ChatRequest": {"type": "object", "properties": {
            "query": {"type": "string", "example": "Hello"},
            "history": {"type": "array", "items": {"$ref": "#/definitions/types.ChatTurn"}},
            "adapters": {"type": "array", "items": {"type": "string"}},
            "stream": {"type": "boolean"},
            "max_tokens": {"type": "integer"},
            "temperature": {"type": "number"},
            "top_p": {"type": "number"},
            "top_k": {"type": "integer"},
            "stop": {"type": "array", "items": {"type": "string"}},
            "seed": {"type": "integer"}}},
        "types.ChatResponse": {"type": "object", "properties": {
            "id": {"type": "string"},
            "text": {"type": "string"},
            "history": {"type": "array", "items": {"$ref": "#/definitions/types.ChatTurn"}},
            "adapter": {"type": "string"},
            "finish_reason": {"type": "string"},
            "usage": {"$ref": "#/definitions/types.Usage"}}},
        "types.ChatTurn": {"type": "object", "properties": {
            "query": {"type": "string"}, "response": {"type": "string"}}},
        "types.ErrorResponse": {"type": "object", "properties": {
            "error": {"type": "string", "example": "invalid JSON body"},
            "code": {"type": "integer", "example": 400}}},
        "types.HealthResponse": {"type": "object", "properties": {"status": {"type": "string", "example": "ok"}}},
        "types.InfoResponse": {"type": "object", "properties": {"version": {"type": "string", "example": "0.1.0"}}},
        "types.LoadModelRequest": {"type": "object", "properties": {
            "name": {"type": "string", "example": "opt"},
            "type": {"type": "string", "example": "AutoModelForCausalLM"},
            "hf_repo": {"type": "string"},
            "cuda": {"type": "boolean"}}},
        "types.LoadedModelStatus": {"type": "object", "properties": {
            "name": {"type": "string"}, "type": {"type": "string"}, "path": {"type": "string"},
            "cuda": {"type": "boolean"},
            "adapters": {"type": "array", "items": {"type": "string"}},
            "active_adapter": {"type": "string"},
            "loaded_at_unix": {"type": "integer"}, "last_used_unix": {"type": "integer"}}},
        "types.Model": {"type": "object", "properties": {
            "name": {"type": "string", "example": "opt"},
            "type": {"type": "string", "example": "AutoModelForCausalLM"},
            "hf_repo": {"type": "string"},
            "cuda": {"type": "boolean"},
            "adapters": {"type": "array", "items": {"type": "string"}}}},
        "types.ModelsResponse": {"type": "object", "properties": {
            "models": {"type": "array", "items": {"$ref": "#/definitions/types.Model"}}}},
        "types.StatusResponse": {"type": "object", "properties": {
            "state": {"type": "string", "example": "ready"},
            "models": {"type": "array", "items": {"$ref": "#/definitions/types.LoadedModelStatus"}},
            "last_error": {"type": "string"},
            "uptime_seconds": {"type": "integer"},
            "server_time_unix": {"type": "integer"},
            "loads_total": {"type": "integer"},
            "generations_total": {"type": "integer"}}},
        "types.Usage": {"type": "object", "properties": {
            "prompt_tokens": {"type": "integer"},
            "completion_tokens": {"type": "integer"},
            "total_tokens": {"type": "integer"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "frequency API",
	Description:      "HTTP API for loading models and LoRA adapters and chatting with them.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
