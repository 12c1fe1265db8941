// internal/app/system/recovery/recovery.go
package recovery

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	"github.com/kneetrack/kneetrack/internal/app/system/auditlog"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
)

// Middleware converts downstream handler panics into the standard 500
// JSON envelope. The panic value and stack go to the zap log, and a
// failure audit entry is recorded when the request carried a signed-in
// actor. http.ErrAbortHandler is re-raised so deliberate aborts keep
// their net/http semantics.
func Middleware(logger *zap.Logger, audits *auditlog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.ByteString("stack", debug.Stack()))

				if actor, ok := sysauth.CurrentUser(r); ok {
					audits.Failure(r.Context(), r, actor,
						audit.ActionPanicRecovered, audit.EntitySystem,
						http.StatusInternalServerError, fmt.Sprint(rec))
				}

				httpjson.Error(w, r, http.StatusInternalServerError, "Internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
