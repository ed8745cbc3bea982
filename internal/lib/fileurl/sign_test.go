package fileurl

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

func parseSigned(t *testing.T, signed string) (fileID, expires, sig string) {
	t.Helper()
	u, err := url.Parse(signed)
	if err != nil {
		t.Fatalf("parse signed url %q: %v", signed, err)
	}
	fileID = strings.TrimPrefix(u.Path, "/api/v1/files/")
	return fileID, u.Query().Get("expires"), u.Query().Get("sig")
}

func TestSignAndVerify(t *testing.T) {
	signed := SignURL("att-1", "secret", time.Minute)
	fileID, expires, sig := parseSigned(t, signed)

	if fileID != "att-1" {
		t.Fatalf("file id in url = %q; want att-1", fileID)
	}
	if !Verify(fileID, expires, sig, "secret") {
		t.Error("freshly signed url must verify")
	}
}

func TestVerifyRejects(t *testing.T) {
	signed := SignURL("att-1", "secret", time.Minute)
	fileID, expires, sig := parseSigned(t, signed)

	tests := []struct {
		name    string
		fileID  string
		expires string
		sig     string
		secret  string
	}{
		{"wrong secret", fileID, expires, sig, "other"},
		{"different file id", "att-2", expires, sig, "secret"},
		{"tampered signature", fileID, expires, sig[:len(sig)-1] + "x", "secret"},
		{"non-numeric expiry", fileID, "soon", sig, "secret"},
		{"shifted expiry", fileID, "9999999999", sig, "secret"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if Verify(tc.fileID, tc.expires, tc.sig, tc.secret) {
				t.Error("verification must fail")
			}
		})
	}
}

func TestVerifyExpired(t *testing.T) {
	signed := SignURL("att-1", "secret", -time.Minute)
	fileID, expires, sig := parseSigned(t, signed)

	if Verify(fileID, expires, sig, "secret") {
		t.Error("expired url must not verify")
	}
}
