package respond

import (
	"net/http"

	"github.com/dalemusser/waffle/logging"
	werrors "github.com/dalemusser/waffle/pantry/errors"
	"go.uber.org/zap"
)

// Middleware is the outer chain every API request passes through: request id,
// access log, and panic recovery. A handler panic becomes a 500 envelope;
// logging.Recoverer only catches what escapes the envelope writer.
func Middleware(logger *zap.Logger) func(http.Handler) http.Handler {
	recoverer := logging.Recoverer(logger)
	access := logging.RequestLogger(logger)
	return func(next http.Handler) http.Handler {
		return RequestID(recoverer(access(werrors.Middleware(logger)(next))))
	}
}
