package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// endpointDoc describes one documented route
type endpointDoc struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
	Permission  string `json:"permission,omitempty"`
	Example     string `json:"example,omitempty"`
}

// docsHandler serves the endpoint catalogue with curl examples built
// against the public base URL
func docsHandler(publicURL string) gin.HandlerFunc {
	base := strings.TrimRight(publicURL, "/")
	// bodies are single-quoted, so ids inside them are <PLACEHOLDER>s, not shell variables
	curl := func(method, path, body string) string {
		cmd := fmt.Sprintf("curl -X %s %s%s -H \"apikey: $API_KEY\"", method, base, path)
		if body != "" {
			cmd += fmt.Sprintf(" -H \"Content-Type: application/json\" -d '%s'", body)
		}
		return cmd
	}

	endpoints := []endpointDoc{
		{Method: "POST", Path: "/v1/auth/login", Description: "Exchange email and password for a session token",
			Example: fmt.Sprintf("curl -X POST %s/v1/auth/login -H \"Content-Type: application/json\" -d '{\"email\":\"voce@empresa.com\",\"password\":\"********\"}'", base)},
		{Method: "GET", Path: "/v1/contacts", Description: "List contacts, optionally filtered with q",
			Example: curl("GET", "/v1/contacts?q=acme", "")},
		{Method: "POST", Path: "/v1/contacts", Description: "Create a contact",
			Example: curl("POST", "/v1/contacts", `{"name":"Ana Souza","email":"ana@acme.com.br","phone":"+55 11 98888-0001","company":"Acme"}`)},
		{Method: "GET", Path: "/v1/contacts/:id", Description: "Get a contact",
			Example: curl("GET", "/v1/contacts/$CONTACT_ID", "")},
		{Method: "PUT", Path: "/v1/contacts/:id", Description: "Replace a contact",
			Example: curl("PUT", "/v1/contacts/$CONTACT_ID", `{"name":"Ana Souza","company":"Acme Brasil"}`)},
		{Method: "DELETE", Path: "/v1/contacts/:id", Description: "Delete a contact", Permission: "contacts_delete",
			Example: curl("DELETE", "/v1/contacts/$CONTACT_ID", "")},
		{Method: "POST", Path: "/v1/cards", Description: "Create a card with optional tasks",
			Example: curl("POST", "/v1/cards", `{"title":"Novo site","stage_id":"<STAGE_ID>","value":2500,"tasks":[{"text":"Enviar proposta","priority":"high"}]}`)},
		{Method: "GET", Path: "/v1/cards/:id", Description: "Get a card with its tasks and status",
			Example: curl("GET", "/v1/cards/$CARD_ID", "")},
		{Method: "PATCH", Path: "/v1/cards/:id", Description: "Edit card fields",
			Example: curl("PATCH", "/v1/cards/$CARD_ID", `{"value":3000}`)},
		{Method: "POST", Path: "/v1/cards/:id/move", Description: "Move a card to a stage and index",
			Example: curl("POST", "/v1/cards/$CARD_ID/move", `{"stage_id":"<STAGE_ID>","to_index":0}`)},
		{Method: "DELETE", Path: "/v1/cards/:id", Description: "Delete a card",
			Example: curl("DELETE", "/v1/cards/$CARD_ID", "")},
		{Method: "GET", Path: "/v1/funnels/:id/board", Description: "Board with stages and decorated cards"},
		{Method: "GET", Path: "/v1/calendar", Description: "Tasks grouped by due date"},
		{Method: "POST", Path: "/v1/imports", Description: "Upload a contacts CSV (multipart field file)", Permission: "contacts_import",
			Example: fmt.Sprintf("curl -X POST %s/v1/imports -H \"apikey: $API_KEY\" -F resource=contacts -F file=@contatos.csv", base)},
		{Method: "GET", Path: "/v1/exports", Description: "Stream contacts or cards as csv, json or ndjson",
			Example: curl("GET", "/v1/exports?resource=contacts&format=csv", "")},
		{Method: "GET", Path: "/v1/dashboard", Description: "Monthly revenue, goal progress and pipeline counts"},
		{Method: "POST", Path: "/v1/settings/api-key", Description: "Generate a new API key, replacing the previous one", Permission: "settings_update"},
	}

	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"base_url":  base,
			"auth":      "Send a session token as 'Authorization: Bearer <token>' or an API key in the 'apikey' header.",
			"endpoints": endpoints,
		})
	}
}
