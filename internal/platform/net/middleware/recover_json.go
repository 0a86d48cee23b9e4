package middleware

import (
	"net/http"
	"runtime/debug"

	perr "github.com/tumbig251800/atlas-wise-spark/internal/platform/errors"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/logger"
	phttp "github.com/tumbig251800/atlas-wise-spark/internal/platform/net/http"
)

// RecoverJSON turns a handler panic into a 500 envelope and logs the stack
func RecoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			logger.C(r.Context()).Error().
				Interface("panic", v).
				Bytes("stack", debug.Stack()).
				Str("path", r.URL.Path).
				Msg("panic recovered")

			env := phttp.ErrorEnvelope(r, perr.PanicErrf("panic recovered"))
			phttp.JSON(w, env.StatusCode, env)
		}()
		next.ServeHTTP(w, r)
	})
}
