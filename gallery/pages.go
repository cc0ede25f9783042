package gallery

import (
	"embed"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/galerie-tech/galerie/core/access"
	"github.com/galerie-tech/galerie/core/render"
)

//go:embed web/*.html
var pageFS embed.FS

// pageData builds the placeholder values available to every page template.
func pageData(session *access.Session) map[string]interface{} {
	if session == nil {
		return map[string]interface{}{
			"first_name": "",
			"last_name":  "",
			"email":      "",
			"phone":      "",
			"user_id":    "",
		}
	}
	return map[string]interface{}{
		"first_name": session.FirstName,
		"last_name":  session.LastName,
		"email":      session.Email,
		"phone":      session.Phone,
		"user_id":    session.UserID,
	}
}

func (b *Backend) servePage(name string) http.HandlerFunc {
	template, err := pageFS.ReadFile("web/" + name)
	if err != nil {
		panic("missing page template " + name)
	}
	page := string(template)
	return func(w http.ResponseWriter, r *http.Request) {
		session := access.SessionFromContext(r.Context())
		writeHTML(w, http.StatusOK, render.Fragment(page, pageData(session)))
	}
}

// handlePages registers the top-level pages. The profile page requires a
// session and redirects to the login page otherwise.
func (b *Backend) handlePages(router *mux.Router) {
	pages := map[string]string{
		"/":        "index.html",
		"/catalog": "catalog.html",
		"/auth":    "auth.html",
		"/cart":    "cart.html",
		"/events":  "events.html",
	}
	for path, name := range pages {
		router.HandleFunc(path, b.servePage(name)).Methods(http.MethodGet)
	}

	profile := b.servePage("profile.html")
	router.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		if access.SessionFromContext(r.Context()) == nil {
			http.Redirect(w, r, "/auth", http.StatusFound)
			return
		}
		profile(w, r)
	}).Methods(http.MethodGet)
}
