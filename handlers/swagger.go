package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
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
    <title>the-archive — Swagger</title>
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

// Minimal OpenAPI document for the archive API surface.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "the-archive", "version": "v0.1.0" },
  "paths": {
    "/api/v1/entries": {
      "get": { "summary": "List entries (filter: type=all|text|image, q=search)", "responses": { "200": { "description": "filtered entries" } } },
      "post": { "summary": "Create an entry", "responses": { "201": { "description": "created" }, "401": { "description": "sign in required" } } }
    },
    "/api/v1/entries/{id}": {
      "get": { "summary": "Get one entry", "responses": { "200": { "description": "entry" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Edit entry content (admin)", "responses": { "200": { "description": "updated" }, "403": { "description": "admin only" } } },
      "delete": { "summary": "Delete entry (admin, idempotent)", "responses": { "204": { "description": "deleted" }, "403": { "description": "admin only" } } }
    },
    "/api/v1/entries/{id}/next": {
      "get": { "summary": "Next entry in the filtered view (wraps around)", "responses": { "200": { "description": "entry" }, "404": { "description": "not found" } } }
    },
    "/api/v1/entries/{id}/previous": {
      "get": { "summary": "Previous entry in the filtered view (wraps around)", "responses": { "200": { "description": "entry" }, "404": { "description": "not found" } } }
    },
    "/api/v1/entries/{id}/like": {
      "post": { "summary": "Toggle like", "responses": { "200": { "description": "toggled" }, "401": { "description": "sign in required" } } }
    },
    "/api/v1/entries/{id}/comments": {
      "get": { "summary": "List comments oldest-first", "responses": { "200": { "description": "comments" } } },
      "post": { "summary": "Add comment", "responses": { "201": { "description": "created" }, "400": { "description": "empty text" } } }
    },
    "/api/v1/feed/live": {
      "get": { "summary": "Websocket live feed (full snapshots)", "responses": { "101": { "description": "switching protocols" } } }
    },
    "/api/v1/media": {
      "post": { "summary": "Upload artwork (admin)", "responses": { "201": { "description": "mediaRef returned" } } }
    },
    "/auth/login": {
      "post": {
        "summary": "Exchange authorization code / login",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"mode":{"type":"string"},"username":{"type":"string"},"password":{"type":"string"},"code":{"type":"string"},"redirect_uri":{"type":"string"}}}}}},
        "responses": { "200": { "description": "tokens returned" } }
      }
    },
    "/auth/refresh": {
      "post": { "summary": "Refresh access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "new access token" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Logout and invalidate refresh token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "logged out" } } }
    },
    "/api/v1/me": {
      "get": { "summary": "Get current actor", "responses": { "200": { "description": "actor or claims" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
