/*Package gallery implements the art gallery web shop backend.

The backend wires the HTTP routes to the generic data-access facade. All
persistent state lives in the relational store; no entity survives a
request in memory.
*/
package gallery

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/lib/pq"

	"github.com/galerie-tech/galerie/core/access"
	"github.com/galerie-tech/galerie/core/csql"
	"github.com/galerie-tech/galerie/core/facade"
	"github.com/galerie-tech/galerie/core/filestore"
	"github.com/galerie-tech/galerie/core/logger"
	"github.com/galerie-tech/galerie/core/notify"
)

// Backend is the gallery rest backend.
type Backend struct {
	db       *csql.DB
	facade   *facade.Facade
	router   *mux.Router
	secret   []byte
	notifier notify.Notifier
	images   filestore.Driver
}

// Builder is a builder helper for the Backend.
type Builder struct {
	// DB is a postgres database. This is mandatory.
	DB *csql.DB
	// Router is a mux router. This is mandatory.
	Router *mux.Router
	// SessionSecret signs session cookies. This is mandatory.
	SessionSecret []byte
	// Notifier receives order events after commit. This is optional.
	Notifier notify.Notifier
	// Images stores painting images. This is optional; without it the
	// image upload route is not registered.
	Images filestore.Driver
}

// New realizes the actual backend. It seeds the database schema (if it
// does not exist yet) and adds the routes to the router.
func New(bb *Builder) (*Backend, error) {
	if bb.DB == nil {
		panic("DB is missing")
	}
	if bb.Router == nil {
		panic("Router is missing")
	}
	if len(bb.SessionSecret) == 0 {
		panic("SessionSecret is missing")
	}

	if err := bb.DB.EnsureSeed(context.Background(), "painting", seedSQL); err != nil {
		return nil, err
	}

	notifier := bb.Notifier
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}

	b := &Backend{
		db:       bb.DB,
		facade:   facade.New(bb.DB, Tables()),
		router:   bb.Router,
		secret:   bb.SessionSecret,
		notifier: notifier,
		images:   bb.Images,
	}

	logger.AddRequestID(bb.Router)
	bb.Router.Use(access.NewSessionMiddleware(&access.SessionMiddlewareBuilder{
		DB:     bb.DB,
		Secret: bb.SessionSecret,
	}))
	b.handleRoutes(bb.Router)
	return b, nil
}

// MustNew is New, but panics on error.
func MustNew(bb *Builder) *Backend {
	b, err := New(bb)
	if err != nil {
		panic(err)
	}
	return b
}

// handleRoutes adds all handlers. The generic table routes come last so
// the specific resource routes win.
func (b *Backend) handleRoutes(router *mux.Router) {
	nillog := logger.Default()
	nillog.Debugln("gallery: handle routes")

	b.handlePages(router)

	api := []struct {
		path    string
		handler http.HandlerFunc
		methods []string
	}{
		{"/api/painting", b.listPaintings, []string{http.MethodGet}},
		{"/api/review", b.listReviews, []string{http.MethodGet}},
		{"/api/review", b.createReview, []string{http.MethodPost}},
		{"/api/auth/register", b.register, []string{http.MethodPost}},
		{"/api/auth/login", b.login, []string{http.MethodPost}},
		{"/api/login", b.login, []string{http.MethodPost}},
		{"/api/auth/check", b.checkAuth, []string{http.MethodGet}},
		{"/api/logout", b.logout, []string{http.MethodPost}},
		{"/api/cart/add", b.addToCart, []string{http.MethodPost}},
		{"/api/cart", b.listCart, []string{http.MethodGet}},
		{"/api/cart/{id}", b.deleteFromCart, []string{http.MethodDelete}},
		{"/api/user/info", b.userInfo, []string{http.MethodGet}},
		{"/api/orders", b.listOrders, []string{http.MethodGet}},
		{"/api/order/create", b.createOrder, []string{http.MethodPost}},
		{"/api/events", b.listEvents, []string{http.MethodGet}},
	}
	for _, route := range api {
		nillog.Debugln("  handle route:", route.path, route.methods)
		router.HandleFunc(route.path, route.handler).Methods(route.methods...)
	}

	if b.images != nil {
		nillog.Debugln("  handle route: /api/painting/{id}/image POST")
		router.HandleFunc("/api/painting/{id:[0-9]+}/image", b.uploadPaintingImage).
			Methods(http.MethodPost)
	}

	nillog.Debugln("  handle route: /api/{table} GET,POST,PUT,DELETE")
	router.HandleFunc("/api/{table}", b.genericRead).Methods(http.MethodGet)
	router.HandleFunc("/api/{table}", b.genericCreate).Methods(http.MethodPost)
	router.HandleFunc("/api/{table}", b.genericUpdate).Methods(http.MethodPut)
	router.HandleFunc("/api/{table}", b.genericDelete).Methods(http.MethodDelete)
}

func writeJSON(w http.ResponseWriter, status int, object interface{}) {
	jsonData, _ := json.Marshal(object)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(jsonData)
}

func writeHTML(w http.ResponseWriter, status int, fragment string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(fragment))
}

func readJSON(r *http.Request, object interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(object)
}

// storeStatus maps a facade or driver error to an HTTP status.
func storeStatus(err error) int {
	if errors.Is(err, facade.ErrUnknownTable) {
		return http.StatusNotFound
	}
	if errors.Is(err, facade.ErrUnknownColumn) {
		return http.StatusBadRequest
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "23505" { // unique_violation
			return http.StatusConflict
		}
		if pqErr.Code.Class() == "23" { // other integrity violations
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// writeStoreError logs the error and answers with a status derived from
// it. Store internals only ever reach the log, clients get a generic
// message for server-side failures.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	status := storeStatus(err)
	rlog := logger.FromContext(r.Context())
	if status == http.StatusInternalServerError {
		rlog.WithError(err).Errorln("store error")
		http.Error(w, "store error", status)
		return
	}
	rlog.WithError(err).Debugln("request rejected")
	http.Error(w, err.Error(), status)
}

// requireSession answers 401 and returns nil when the request is
// anonymous.
func requireSession(w http.ResponseWriter, r *http.Request) *access.Session {
	session := access.SessionFromContext(r.Context())
	if session == nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return nil
	}
	return session
}
