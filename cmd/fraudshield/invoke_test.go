package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pedro-hbl/fraudshield-stream/internal/app"
	"github.com/pedro-hbl/fraudshield-stream/pkg/archive"
)

func TestInvokeSession(t *testing.T) {
	var got app.SessionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != invocationPath {
			t.Errorf("path = %s, want %s", r.URL.Path, invocationPath)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(app.SessionResponse{
			SessionID:    "s-1",
			Success:      true,
			Transactions: 12,
			Counters:     map[string]int64{"fraud": 3},
			Archive:      &archive.RecorderStats{Written: 3},
		})
	}))
	defer server.Close()

	resp, err := invokeSession(context.Background(), server.Client(), server.URL+"/",
		app.SessionRequest{DurationMs: 500, ArchiveType: "immudb"}, false)
	if err != nil {
		t.Fatalf("invokeSession() error = %v", err)
	}

	if got.DurationMs != 500 || got.ArchiveType != "immudb" {
		t.Errorf("request = %+v", got)
	}
	if resp.SessionID != "s-1" || resp.ArchiveType != "immudb" || resp.Archive.Written != 3 {
		t.Errorf("response = %+v", resp)
	}

	dir := t.TempDir()
	if err := saveResponse(dir, resp); err != nil {
		t.Fatalf("saveResponse() error = %v", err)
	}
	files, _ := filepath.Glob(filepath.Join(dir, "session-immudb-*.json"))
	if len(files) != 1 {
		t.Fatalf("expected one saved response, got %v", files)
	}
	if data, _ := os.ReadFile(files[0]); !bytes.Contains(data, []byte(`"sessionId": "s-1"`)) {
		t.Errorf("unexpected file content:\n%s", data)
	}

	var out bytes.Buffer
	printResponses(&out, []*app.SessionResponse{resp, {ErrorMessage: "boom"}})
	for _, want := range []string{"immudb", "s-1", "12", "ok", "boom"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("table missing %q:\n%s", want, out.String())
		}
	}
}

func TestInvokeSessionErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-200",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "no function", http.StatusBadGateway)
			},
		},
		{
			name: "bad json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("{"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := invokeSession(context.Background(), server.Client(), server.URL, app.SessionRequest{DurationMs: 1}, false)
			if err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
