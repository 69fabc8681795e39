package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/unseen-britain/internal/auth"
	"github.com/isdelr/unseen-britain/internal/web"
	"github.com/rs/zerolog/log"
)

// Page carries the fields every layout render needs.
type Page struct {
	Title    string
	LoggedIn bool
}

func newPage(r *http.Request, title string) Page {
	_, ok := auth.UserID(r.Context())
	return Page{Title: title, LoggedIn: ok}
}

// PageHandler serves the static pages and the health check.
type PageHandler struct {
	render *web.Renderer
	db     *sql.DB
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(render *web.Renderer, db *sql.DB) *PageHandler {
	return &PageHandler{render: render, db: db}
}

// Home renders the landing page.
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, http.StatusOK, "home", struct{ Page }{newPage(r, "")})
}

// Hello greets the name in the path.
func (h *PageHandler) Hello(w http.ResponseWriter, r *http.Request) {
	writeText(w, "Hello "+chi.URLParam(r, "name"))
}

func (h *PageHandler) Goodbye(w http.ResponseWriter, r *http.Request) {
	writeText(w, "Goodbye world!")
}

// Health reports whether the database answers a ping.
func (h *PageHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := h.db.PingContext(ctx); err != nil {
		log.Error().Err(err).Msg("Health check database ping failed")
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// writeText sends plain text so path input is never interpreted as markup.
func writeText(w http.ResponseWriter, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(s))
}
