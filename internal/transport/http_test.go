package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"prettify/internal/document"
	"prettify/internal/storage/memory"
	"prettify/internal/worker"
	"prettify/internal/xmlfmt"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	hub := document.NewHub(
		func() document.Runtime { return worker.New(xmlfmt.Engine{}) },
		document.WithStore(memory.New()),
	)
	srv := httptest.NewServer(NewHTTPHandler(hub))
	t.Cleanup(func() {
		srv.Close()
		_ = hub.Close()
	})
	return srv
}

func do(t *testing.T, method, url, reqBody string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(reqBody))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func TestHTTP_CreateEditAndWait(t *testing.T) {
	srv := newAPI(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/documents", "<a><b>x</b></a>")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d: %s", resp.StatusCode, body)
	}
	var created editResult
	if err := json.Unmarshal(body, &created); err != nil || created.ID == "" || created.Seq != 1 {
		t.Fatalf("created = %+v, %v", created, err)
	}

	resp, _ = do(t, http.MethodPut, srv.URL+"/documents/"+created.ID, "<a/>")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("PUT status = %d", resp.StatusCode)
	}

	resp, body = do(t, http.MethodGet, srv.URL+"/documents/"+created.ID+"?wait=5s", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET status = %d", resp.StatusCode)
	}
	var got DocumentView
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Seq != 2 || got.State != "settled" || got.Output != "<a/>" || got.Error != "" {
		t.Fatalf("snapshot = %+v", got)
	}
}

func TestHTTP_MalformedKeepsPreviousOutput(t *testing.T) {
	srv := newAPI(t)
	do(t, http.MethodPut, srv.URL+"/documents/d1", "<ok/>")
	do(t, http.MethodGet, srv.URL+"/documents/d1?wait=5s", "")
	do(t, http.MethodPut, srv.URL+"/documents/d1", "test</test>")

	_, body := do(t, http.MethodGet, srv.URL+"/documents/d1?wait=5s", "")
	var got DocumentView
	_ = json.Unmarshal(body, &got)
	if got.Output != "<ok/>" || got.Error == "" {
		t.Fatalf("snapshot = %+v", got)
	}
}

func TestHTTP_NotFoundAndBadWait(t *testing.T) {
	srv := newAPI(t)
	if resp, _ := do(t, http.MethodGet, srv.URL+"/documents/missing", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET missing = %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodDelete, srv.URL+"/documents/missing", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("DELETE missing = %d", resp.StatusCode)
	}
	do(t, http.MethodPut, srv.URL+"/documents/x", "<x/>")
	if resp, _ := do(t, http.MethodGet, srv.URL+"/documents/x?wait=soon", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad wait = %d", resp.StatusCode)
	}
}

func TestHTTP_ListAndHealth(t *testing.T) {
	srv := newAPI(t)
	do(t, http.MethodPut, srv.URL+"/documents/b", "<b/>")
	do(t, http.MethodPut, srv.URL+"/documents/a", "<a/>")

	_, body := do(t, http.MethodGet, srv.URL+"/documents", "")
	var list map[string][]string
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ids := list["documents"]; len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("documents = %v", ids)
	}
	if resp, _ := do(t, http.MethodGet, srv.URL+"/healthz", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz = %d", resp.StatusCode)
	}
}
