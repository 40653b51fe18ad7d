package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the ledger service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>wikichain ledger - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document for the ledger and content endpoints. Transaction
// routes need a bearer token and accept an optional Idempotency-Key header.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "wikichain-ledger", "version": "v0.1.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer" } },
    "schemas": {
      "Receipt": {"type":"object","properties":{"txId":{"type":"string"},"seq":{"type":"integer"},"op":{"type":"string"},"timestamp":{"type":"string","format":"date-time"},"designated":{"type":"array","items":{"type":"string"}},"purged":{"type":"array","items":{"type":"string"}}}},
      "Error": {"type":"object","properties":{"error":{"type":"string"},"code":{"type":"string"}}},
      "Article": {"type":"object","properties":{"title":{"type":"string"},"contentId":{"type":"string"}}}
    }
  },
  "paths": {
    "/api/v1/accounts": {
      "get": { "summary": "List registered addresses", "responses": { "200": { "description": "users" } } },
      "post": { "summary": "Register the caller", "security": [{"bearer": []}], "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"username":{"type":"string"}}}}}}, "responses": { "201": { "description": "registered" }, "409": { "description": "already_registered" } } }
    },
    "/api/v1/accounts/{address}": {
      "get": { "summary": "Get a registered account", "responses": { "200": { "description": "account" }, "404": { "description": "not_registered" } } }
    },
    "/api/v1/articles": {
      "post": { "summary": "Publish a new article", "security": [{"bearer": []}], "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/Article"}}}}, "responses": { "201": { "description": "published" }, "400": { "description": "invalid_input" }, "409": { "description": "document_exists" } } }
    },
    "/api/v1/articles/update": {
      "post": { "summary": "Append a version to an article", "security": [{"bearer": []}], "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/Article"}}}}, "responses": { "200": { "description": "updated" }, "404": { "description": "article_not_found" } } }
    },
    "/api/v1/articles/vote": {
      "post": { "summary": "Vote for an article once", "security": [{"bearer": []}], "responses": { "200": { "description": "voted" }, "404": { "description": "article_not_found" }, "409": { "description": "already_voted" } } }
    },
    "/api/v1/articles/verify": {
      "post": { "summary": "Verify an article as a consortium member", "security": [{"bearer": []}], "responses": { "200": { "description": "verified" }, "403": { "description": "forbidden" }, "404": { "description": "article_not_found" } } }
    },
    "/api/v1/articles/query": {
      "get": { "summary": "Get one version of an article (version defaults to latest)", "parameters": [{"name":"title","in":"query","required":true,"schema":{"type":"string"}},{"name":"version","in":"query","schema":{"type":"integer"}}], "responses": { "200": { "description": "article view" }, "404": { "description": "article_not_found" } } }
    },
    "/api/v1/articles/document": {
      "get": { "summary": "Get the full document record", "parameters": [{"name":"title","in":"query","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "document" } } }
    },
    "/api/v1/articles/cids": { "get": { "summary": "First-version content ids of live articles", "responses": { "200": { "description": "contentIds" } } } },
    "/api/v1/articles/by-cid/{cid}": { "get": { "summary": "Titles referencing a content id", "responses": { "200": { "description": "titles" } } } },
    "/api/v1/articles/count": { "get": { "summary": "Number of live articles", "responses": { "200": { "description": "count" } } } },
    "/api/v1/consortium": { "get": { "summary": "Consortium members and threshold", "responses": { "200": { "description": "consortium" } } } },
    "/api/v1/consortium/designate": {
      "post": { "summary": "Promote voters of articles at the threshold", "security": [{"bearer": []}], "responses": { "200": { "description": "designated" }, "403": { "description": "forbidden" } } }
    },
    "/api/v1/audit/purge": {
      "post": { "summary": "Remove articles referencing missing content", "security": [{"bearer": []}], "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"contentIds":{"type":"array","items":{"type":"string"}}}}}}}, "responses": { "200": { "description": "purged" } } }
    },
    "/api/v1/audit/reports/latest": { "get": { "summary": "Latest existence audit report", "responses": { "200": { "description": "report" }, "404": { "description": "none yet" } } } },
    "/store": { "post": { "summary": "Store content and return its cid", "responses": { "200": { "description": "cid" } } } },
    "/retrieve/{cid}": { "get": { "summary": "Retrieve stored content", "responses": { "200": { "description": "content" }, "404": { "description": "not found" } } } },
    "/checkAvailability": { "post": { "summary": "Report missing cids", "responses": { "200": { "description": "missingCids" }, "400": { "description": "cids must be an array" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
