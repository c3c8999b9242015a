package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// runCLI executes the root command against host with an isolated HOME and
// returns stdout, stderr and the command error.
func runCLI(t *testing.T, host string, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PIM_HOST", "")
	t.Setenv("PIM_API_KEY", "")
	t.Setenv("PIM_OUTPUT", "")

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	if host != "" {
		args = append([]string{"--host", host}, args...)
	}
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

// fakeDaemon serves canned JSON per "METHOD /path" pattern and records the
// request bodies it received.
type fakeDaemon struct {
	*httptest.Server
	mu     sync.Mutex
	bodies map[string][]byte
}

func newFakeDaemon(t *testing.T, routes map[string]string) *fakeDaemon {
	t.Helper()
	fd := &fakeDaemon{bodies: map[string][]byte{}}
	mux := http.NewServeMux()
	for pattern, resp := range routes {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			var buf bytes.Buffer
			_, _ = buf.ReadFrom(r.Body)
			fd.mu.Lock()
			fd.bodies[pattern] = buf.Bytes()
			fd.mu.Unlock()
			if resp == "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(resp))
		})
	}
	fd.Server = httptest.NewServer(mux)
	t.Cleanup(fd.Close)
	return fd
}

func (fd *fakeDaemon) body(t *testing.T, pattern string, v interface{}) {
	t.Helper()
	fd.mu.Lock()
	data, ok := fd.bodies[pattern]
	fd.mu.Unlock()
	if !ok {
		t.Fatalf("no request for %s", pattern)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %s body: %v", pattern, err)
	}
}
