// pkg/transport/httpx/router.go
package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router is the minimal HTTP router contract core.BuildRouter depends on.
// Routes are registered by method so manifest entries map onto it directly.
type Router interface {
	Handle(method, path string, h http.Handler)
	Use(mw ...func(http.Handler) http.Handler)
	Mux() http.Handler
}

type chiRouter struct{ r *chi.Mux }

// NewChi returns a chi/v5 backed Router whose 404 and 405 answers are JSON,
// matching the bodies the auth endpoints return.
func NewChi() Router {
	r := chi.NewRouter()
	r.NotFound(jsonStatus(http.StatusNotFound))
	r.MethodNotAllowed(jsonStatus(http.StatusMethodNotAllowed))
	return &chiRouter{r: r}
}

func (c *chiRouter) Handle(method, path string, h http.Handler) { c.r.Method(method, path, h) }
func (c *chiRouter) Use(mw ...func(http.Handler) http.Handler)  { c.r.Use(mw...) }
func (c *chiRouter) Mux() http.Handler                          { return c.r }

func jsonStatus(code int) http.HandlerFunc {
	body := []byte(`{"error":"` + http.StatusText(code) + `"}`)
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write(body)
	}
}
