//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestProbes(t *testing.T) {
	for _, path := range []string{"/livez", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			resp := doGet(t, path)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("%s: status %d, want 200", path, resp.StatusCode)
			}
			if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
				t.Errorf("Cache-Control = %q, want no-store", cc)
			}
			if got := decodeJSON[healthResponse](t, resp); got.Status != "ok" {
				t.Errorf("status = %q, want ok", got.Status)
			}
		})
	}
}

func TestProbes_MethodNotAllowed(t *testing.T) {
	resp := doPostWithAuth(t, "/readyz", nil, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST /readyz: status %d, want 405", resp.StatusCode)
	}
	if got := decodeJSON[errorResponse](t, resp); got.Code != "method_not_allowed" {
		t.Errorf("code = %q, want method_not_allowed", got.Code)
	}
}
