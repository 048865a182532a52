package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/model"
)

// mockOAuth2Server mimics the Google token and userinfo endpoints.
type mockOAuth2Server struct {
	*httptest.Server
	Config           *oauth2.Config
	MockInfoEndpoint string

	mu        sync.Mutex
	users     map[string]model.GoogleUserInfo
	exchanged map[string]bool
}

func newMockOAuth2Server(users []model.GoogleUserInfo) *mockOAuth2Server {
	m := &mockOAuth2Server{
		users:     make(map[string]model.GoogleUserInfo),
		exchanged: make(map[string]bool),
	}
	for _, u := range users {
		m.users[u.GID] = u
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", m.handleToken)
	mux.HandleFunc("/userinfo", m.handleUserInfo)
	m.Server = httptest.NewServer(mux)

	m.Config = &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:   m.URL + "/auth",
			TokenURL:  m.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: "http://localhost/callback",
	}
	m.MockInfoEndpoint = m.URL + "/userinfo"
	return m
}

// authCode returns the code a browser would receive for gid.
func (m *mockOAuth2Server) authCode(gid string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[gid]; !ok {
		return "", fmt.Errorf("unknown user %s", gid)
	}
	return "code-" + gid, nil
}

func (m *mockOAuth2Server) isExchanged(gid string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exchanged[gid]
}

func (m *mockOAuth2Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	gid := strings.TrimPrefix(r.Form.Get("code"), "code-")

	m.mu.Lock()
	_, ok := m.users[gid]
	if ok {
		m.exchanged[gid] = true
	}
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token": "tok-" + gid,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (m *mockOAuth2Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	gid := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer tok-")

	m.mu.Lock()
	u, ok := m.users[gid]
	m.mu.Unlock()

	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"id":          u.GID,
		"email":       u.Email,
		"given_name":  u.FirstName,
		"family_name": u.LastName,
	})
}
