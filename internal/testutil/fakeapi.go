package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/api"
)

// Request is one call received by FakeAPI.
type Request struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   string
}

// FakeAPI is an in-memory lab API served over httptest.
type FakeAPI struct {
	Server *httptest.Server

	mu          sync.Mutex
	labs        []api.Lab
	sessions    []api.Session
	inventories map[string]*api.ResourceInventory
	stats       api.Stats
	identity    api.Identity
	failures    map[string]int
	requests    []Request
}

// NewFakeAPI starts a fake API seeded from the fixtures. The server is
// closed when the test ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		inventories: make(map[string]*api.ResourceInventory),
		failures:    make(map[string]int),
	}

	var err error
	if f.labs, err = Labs(); err != nil {
		t.Fatalf("Failed to load labs fixture: %v", err)
	}
	if f.sessions, err = Sessions(); err != nil {
		t.Fatalf("Failed to load sessions fixture: %v", err)
	}
	inv, err := Inventory()
	if err != nil {
		t.Fatalf("Failed to load inventory fixture: %v", err)
	}
	f.inventories[ActiveSessionID] = inv
	st, err := Stats()
	if err != nil {
		t.Fatalf("Failed to load stats fixture: %v", err)
	}
	f.stats = *st
	id, err := Identity()
	if err != nil {
		t.Fatalf("Failed to load identity fixture: %v", err)
	}
	f.identity = *id

	f.Server = httptest.NewServer(f.routes())
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the API root.
func (f *FakeAPI) URL() string {
	return f.Server.URL
}

// Fail makes every request matching method and path answer with status.
func (f *FakeAPI) Fail(method, path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = status
}

// Requests returns the calls received so far.
func (f *FakeAPI) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.requests)
}

// Calls counts the requests matching method and path.
func (f *FakeAPI) Calls(method, path string) int {
	n := 0
	for _, r := range f.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Session returns a copy of the stored session with id.
func (f *FakeAPI) Session(id string) (api.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.ID == id {
			return s, true
		}
	}
	return api.Session{}, false
}

// AddSession stores a session.
func (f *FakeAPI) AddSession(s api.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, s)
}

// SetInventory replaces the resources of a session.
func (f *FakeAPI) SetInventory(id string, inv *api.ResourceInventory) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inventories[id] = inv
}

// SetIdentity replaces the /me response.
func (f *FakeAPI) SetIdentity(id api.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identity = id
}

func (f *FakeAPI) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /labs", f.listLabs)
	mux.HandleFunc("GET /labs/{id}", f.getLab)
	mux.HandleFunc("POST /sessions", f.createSession)
	mux.HandleFunc("GET /sessions/me", f.mySessions)
	mux.HandleFunc("POST /sessions/{id}/extend", f.extendSession)
	mux.HandleFunc("POST /sessions/{id}/complete", f.setStatus(api.StatusCompleted))
	mux.HandleFunc("DELETE /sessions/{id}", f.setStatus(api.StatusTerminated))
	mux.HandleFunc("POST /sessions/{id}/apply-manifest", f.manifest("applied"))
	mux.HandleFunc("POST /sessions/{id}/delete-manifest", f.manifest("deleted"))
	mux.HandleFunc("GET /admin/stats", f.adminStats)
	mux.HandleFunc("GET /admin/sessions", f.adminSessions)
	mux.HandleFunc("DELETE /admin/sessions/{id}", f.setStatus(api.StatusTerminated))
	mux.HandleFunc("GET /admin/sessions/{id}/resources", f.resources)
	mux.HandleFunc("DELETE /admin/sessions/{id}/resources/{kind}/{name}", f.deleteResource)
	mux.HandleFunc("GET /me", f.me)
	return f.record(mux)
}

func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		f.mu.Lock()
		f.requests = append(f.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
			Body:   string(body),
		})
		status, failing := f.failures[r.Method+" "+r.URL.Path]
		f.mu.Unlock()

		if failing {
			writeDetail(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func (f *FakeAPI) listLabs(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	persona := r.URL.Query().Get("persona")

	f.mu.Lock()
	defer f.mu.Unlock()
	out := []api.Lab{}
	for _, l := range f.labs {
		if category != "" && l.Category != category {
			continue
		}
		if persona != "" && !slices.Contains(l.Persona, persona) {
			continue
		}
		out = append(out, l)
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) findLab(id string) (api.Lab, bool) {
	for _, l := range f.labs {
		if l.ID == id {
			return l, true
		}
	}
	return api.Lab{}, false
}

func (f *FakeAPI) getLab(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.findLab(r.PathValue("id"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Lab not found")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (f *FakeAPI) createSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LabID string `json:"lab_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LabID == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "lab_id is required")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.findLab(req.LabID); !ok {
		writeDetail(w, http.StatusNotFound, "Lab not found")
		return
	}
	id := uuid.NewString()
	s := api.Session{
		ID:               id,
		UserID:           f.identity.UserID,
		LabID:            req.LabID,
		SandboxNamespace: "lab-" + id[:8],
		Status:           api.StatusActive,
	}
	f.sessions = append(f.sessions, s)
	f.inventories[id] = &api.ResourceInventory{Namespace: s.SandboxNamespace}
	writeJSON(w, http.StatusCreated, s)
}

func (f *FakeAPI) mySessions(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []api.Session{}
	for _, s := range f.sessions {
		if s.UserID == f.identity.UserID {
			out = append(out, s)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) index(id string) int {
	return slices.IndexFunc(f.sessions, func(s api.Session) bool { return s.ID == id })
}

func (f *FakeAPI) extendSession(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index(r.PathValue("id")) < 0 {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":    "Session extended",
		"new_expiry": "2026-10-14T12:00:00Z",
	})
}

func (f *FakeAPI) setStatus(status api.SessionStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		i := f.index(r.PathValue("id"))
		if i < 0 {
			writeDetail(w, http.StatusNotFound, "Session not found")
			return
		}
		f.sessions[i].Status = status
		w.WriteHeader(http.StatusNoContent)
	}
}

func (f *FakeAPI) manifest(verb string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Manifest string `json:"manifest"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Manifest == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"detail": []map[string]string{{"msg": "manifest is required"}},
			})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.index(r.PathValue("id")) < 0 {
			writeDetail(w, http.StatusNotFound, "Session not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Manifest " + verb})
	}
}

func (f *FakeAPI) adminStats(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.stats
	st.ActiveSessions = 0
	for _, s := range f.sessions {
		if s.Status.IsActive() {
			st.ActiveSessions++
		}
	}
	writeJSON(w, http.StatusOK, st)
}

func (f *FakeAPI) adminSessions(w http.ResponseWriter, r *http.Request) {
	status := api.SessionStatus(r.URL.Query().Get("status"))

	f.mu.Lock()
	defer f.mu.Unlock()
	out := []api.Session{}
	for _, s := range f.sessions {
		if status == "" || s.Status == status {
			out = append(out, s)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) resources(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.inventories[r.PathValue("id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (f *FakeAPI) deleteResource(w http.ResponseWriter, r *http.Request) {
	kind, err := api.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	name := r.PathValue("name")

	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.inventories[r.PathValue("id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	names := inv.Names(kind)
	i := slices.Index(names, name)
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Resource not found")
		return
	}
	names = slices.Delete(slices.Clone(names), i, i+1)
	switch kind {
	case api.KindPod:
		inv.Pods = names
	case api.KindService:
		inv.Services = names
	case api.KindDeployment:
		inv.Deployments = names
	case api.KindPVC:
		inv.PVCs = names
	case api.KindSecret:
		inv.Secrets = names
	}
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeAPI) me(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, f.identity)
}
