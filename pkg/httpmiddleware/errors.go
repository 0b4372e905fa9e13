package httpmiddleware

import (
	"context"
	"net/http"

	"github.com/go-faster/jx"
)

// WriteError writes the JSON error envelope shared by every API response:
// {"code": status, "error": code, "message": message, "requestId": id}.
// requestId is omitted when the request carries none.
func WriteError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("error")
	e.Str(code)
	e.FieldStart("message")
	e.Str(message)
	if id := RequestIDFromContext(ctx); id != "" {
		e.FieldStart("requestId")
		e.Str(id)
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
