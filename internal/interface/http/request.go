package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeJSON reads the body into dst and validates it.
func (s *Server) decodeJSON(r *http.Request, domain, op string, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return shared.NewDomainError(domain, op, shared.ErrValidation, "Request body too large")
		case errors.Is(err, io.EOF):
			return shared.NewDomainError(domain, op, shared.ErrValidation, "Request body is required")
		default:
			return shared.WrapError(domain, op, shared.ErrValidation, "Malformed JSON body", err)
		}
	}
	return s.deps.Validator.Struct(domain, op, dst)
}

// pathID parses a positive integer path parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.NewDomainError("http", "ParsePath", shared.ErrNotFound, "Resource not found")
	}
	return id, nil
}

// queryInt64 parses an optional positive integer query parameter.
func queryInt64(r *http.Request, key string, errs shared.FieldErrors) *int64 {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		errs.Add(key, "The "+strings.ReplaceAll(key, "_", " ")+" must be a positive integer.")
		return nil
	}
	return &v
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, key string, errs shared.FieldErrors) *time.Time {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil
	}
	d, err := timeutil.ParseDate(raw)
	if err != nil {
		errs.Add(key, "The "+key+" does not match the format Y-m-d.")
		return nil
	}
	return &d
}

// parseDate parses a validated YYYY-MM-DD string; empty yields the zero time.
func parseDate(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	d, _ := timeutil.ParseDate(raw)
	return d
}

// caller returns the identity stored by authenticate.
func caller(r *http.Request) shared.Identity {
	id, _ := identityFrom(r.Context())
	return id
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
