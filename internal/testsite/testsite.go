// Package testsite serves a small Script Studio page whose episode pane can
// be made to misbehave in the ways a verification has to catch.
package testsite

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

// PagePath is where the page is served, matching the production layout.
const PagePath = "/public/index.html"

//go:embed index.html
var indexHTML string

// Variant selects how the page behaves.
type Variant struct {
	// Seed holds the titles of the episodes present on load.
	Seed []string `json:"seed"`
	// AppendNew adds new episodes at the end instead of the front.
	AppendNew bool `json:"appendNew"`
	// NoFocus skips focusing the new episode's title input.
	NoFocus bool `json:"noFocus"`
	// DeleteLabel is the aria-label of every delete button.
	DeleteLabel string `json:"deleteLabel"`
	// OmitDeleteLabel drops the aria-label attribute altogether.
	OmitDeleteLabel bool `json:"omitDeleteLabel"`
	// HideEpisodesTab hides the Episodes tab, as the app does for films.
	HideEpisodesTab bool `json:"hideEpisodesTab"`
	// RenderDelayMS postpones the re-render after "Add Episode".
	RenderDelayMS int `json:"renderDelayMs"`
}

// Correct is the page that passes every check: one seeded episode, new
// episodes prepended and focused, delete buttons labelled "Delete Episode".
func Correct() Variant {
	return Variant{
		Seed:        []string{"Pilot"},
		DeleteLabel: "Delete Episode",
	}
}

// Render returns the page HTML for v.
func Render(v Variant) ([]byte, error) {
	cfg, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []byte(strings.Replace(indexHTML, "{{VARIANT}}", string(cfg), 1)), nil
}

// Handler serves the page for v at PagePath.
func Handler(v Variant) http.Handler {
	r := chi.NewRouter()
	r.Get(PagePath, func(w http.ResponseWriter, req *http.Request) {
		page, err := Render(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	})
	return r
}

// Start serves v on a loopback port for the duration of the test and
// returns the page URL.
func Start(t testing.TB, v Variant) string {
	t.Helper()

	srv := httptest.NewServer(Handler(v))
	t.Cleanup(srv.Close)
	return srv.URL + PagePath
}
