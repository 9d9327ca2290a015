package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// corsPolicy is the CORS policy for the whole API. The daemon serves
// browser dashboards on the local network, so the policy is permissive;
// basic auth gates the endpoints, not origin.
type corsPolicy struct {
	allowOrigin  string
	allowMethods string
	allowHeaders string
	maxAge       string
}

func defaultCORSPolicy() corsPolicy {
	return corsPolicy{
		allowOrigin:  "*",
		allowMethods: strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", "),
		allowHeaders: strings.Join([]string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin"}, ", "),
		maxAge:       strconv.Itoa(24 * 60 * 60),
	}
}

// middleware sets the policy headers on routed requests and
// short-circuits preflights that matched an operation.
func (p corsPolicy) middleware(ctx huma.Context, next func(huma.Context)) {
	ctx.SetHeader("Access-Control-Allow-Origin", p.allowOrigin)
	ctx.SetHeader("Access-Control-Allow-Methods", p.allowMethods)
	ctx.SetHeader("Access-Control-Allow-Headers", p.allowHeaders)
	ctx.SetHeader("Access-Control-Max-Age", p.maxAge)

	if ctx.Method() == http.MethodOptions {
		ctx.SetStatus(http.StatusNoContent)
		return
	}
	next(ctx)
}

// registerPreflight answers OPTIONS on the mux itself. Huma middleware
// only runs for operations Huma routed, and preflights arrive with the
// OPTIONS method for any path.
func (p corsPolicy) registerPreflight(mux *http.ServeMux) {
	mux.HandleFunc("OPTIONS /", func(w http.ResponseWriter, _ *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", p.allowOrigin)
		h.Set("Access-Control-Allow-Methods", p.allowMethods)
		h.Set("Access-Control-Allow-Headers", p.allowHeaders)
		h.Set("Access-Control-Max-Age", p.maxAge)
		w.WriteHeader(http.StatusNoContent)
	})
}
