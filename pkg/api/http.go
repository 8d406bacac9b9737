// Package api assembles the service's HTTP surface over the thread store.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"coachchat/pkg/api/handlers"
	"coachchat/pkg/store"
)

// Handler builds the versioned API router.
func Handler(st *store.Store, dbPath string) http.Handler {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	handlers.RegisterThreads(v1, st)
	handlers.RegisterAdmin(v1, st, dbPath)
	return r
}
