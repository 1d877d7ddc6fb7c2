package httpserver

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes groups handlers.
type Routes struct {
	Health     http.HandlerFunc
	State      http.HandlerFunc
	Session    http.HandlerFunc
	Foreground http.HandlerFunc
	Scan       http.HandlerFunc
	Rescan     http.HandlerFunc
	Stop       http.HandlerFunc
	Dismiss    http.HandlerFunc
}

// NewRouter registers endpoints. Unknown methods on a known path get 405.
func NewRouter(routes Routes) http.Handler {
	r := mux.NewRouter()
	if routes.Health != nil {
		r.HandleFunc("/health", routes.Health).Methods(http.MethodGet)
	}
	if routes.State != nil {
		r.HandleFunc("/state", routes.State).Methods(http.MethodGet)
	}
	if routes.Session != nil {
		r.HandleFunc("/session", routes.Session).Methods(http.MethodGet)
	}
	if routes.Foreground != nil {
		r.HandleFunc("/foreground", routes.Foreground).Methods(http.MethodPost)
	}
	if routes.Scan != nil {
		r.HandleFunc("/scan", routes.Scan).Methods(http.MethodPost)
	}
	if routes.Rescan != nil {
		r.HandleFunc("/rescan", routes.Rescan).Methods(http.MethodPost)
	}
	if routes.Stop != nil {
		r.HandleFunc("/stop", routes.Stop).Methods(http.MethodPost)
	}
	if routes.Dismiss != nil {
		r.HandleFunc("/dismiss", routes.Dismiss).Methods(http.MethodPost)
	}
	return r
}
