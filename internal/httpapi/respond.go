package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const maxBodyBytes = 1 << 20

// writeJSON encodes v with status. Successful GET responses carry an ETag and
// are answered with 304 when If-None-Match already names it.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"` + codeInternal + `","message":"` + messageInternal + `"}`)
	}
	body = append(body, '\n')

	h := w.Header()
	h.Set("Content-Type", "application/json")

	if r != nil && r.Method == http.MethodGet && status == http.StatusOK {
		tag := etag(body)
		h.Set("ETag", tag)
		if etagMatches(r.Header.Get("If-None-Match"), tag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func etag(body []byte) string {
	return `"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
}

// etagMatches implements the weak comparison used by If-None-Match.
func etagMatches(header, tag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == tag {
			return true
		}
	}
	return false
}

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return badRequest("request body must be a JSON object", nil)
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return badRequest("could not read request body", err)
	}
	if len(raw) > maxBodyBytes {
		return badRequest("request body too large", nil)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return badRequest("request body must be a JSON object", nil)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return badRequest("invalid value for field "+typeErr.Field, err)
		}
		return badRequest("malformed JSON body", err)
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON object", nil)
	}
	return nil
}

// noCache reports whether the client asked to skip caches.
func noCache(r *http.Request) bool {
	for _, v := range r.Header.Values("Cache-Control") {
		for _, directive := range strings.Split(v, ",") {
			switch strings.ToLower(strings.TrimSpace(directive)) {
			case "no-cache", "no-store", "max-age=0":
				return true
			}
		}
	}
	return strings.EqualFold(r.Header.Get("Pragma"), "no-cache")
}
