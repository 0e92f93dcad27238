// Package respond writes JSON responses and the error envelope used by every
// API endpoint, and carries the per-request id.
package respond

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"

	werrors "github.com/dalemusser/waffle/pantry/errors"
	"github.com/dalemusser/waffle/pantry/requestid"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/wastehub/wastehub/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrorResponse is the error envelope:
// {"error":{"code","message","details":{"request_id"}}}.
type ErrorResponse = werrors.Response

// HeaderRequestID is echoed back on every response.
const HeaderRequestID = requestid.DefaultHeader

var assignRequestID = requestid.Middleware(requestid.Config{
	Header:            HeaderRequestID,
	Generator:         requestid.GenerateUUID,
	TrustProxy:        true,
	Validator:         requestid.ValidateUUID,
	SetResponseHeader: true,
})

// RequestID assigns a request id, reusing a well-formed inbound one. The id is
// also stored under chi's key so the access log picks it up.
func RequestID(next http.Handler) http.Handler {
	return assignRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), chimw.RequestIDKey, requestid.FromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	}))
}

// GetRequestID returns the id set by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	return requestid.Get(ctx)
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorCode writes the envelope with an explicit status and code.
func ErrorCode(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	write(w, r, werrors.New(code, message, status))
}

// Error maps err onto its HTTP status and writes the envelope. Unclassified
// errors become a 500 without leaking their text.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	write(w, r, apperr.HTTP(err))
}

func write(w http.ResponseWriter, r *http.Request, e *werrors.Error) {
	werrors.Write(w, e.WithDetail("request_id", GetRequestID(r.Context())))
}

// Decode reads a JSON body into v, rejecting other content types, unknown
// fields and bodies over 1 MiB.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mt != "application/json" {
		return apperr.New(apperr.KindUnsupportedMedia, "Content-Type must be application/json")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("malformed JSON body")
	}
	return nil
}

// PathID parses the chi URL parameter name as an ObjectID.
func PathID(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("%s is not a valid id", name)
	}
	return id, nil
}
