// Package sheettest provides an in-process stand-in for the spreadsheet web
// app, for tests that exercise the remote client end to end.
package sheettest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/erazemk/cautela/internal/model"
)

// Email is one sendEmail request the server received.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Server holds one table. A save replaces the table wholesale, like the
// real web app clearing the sheet before writing.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	rows     []model.Movement
	emails   []Email
	failing  bool
	readBody string
	reads    int
	saves    int
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	s := &Server{rows: []model.Movement{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Endpoint returns the URL clients should be configured with.
func (s *Server) Endpoint() string {
	return s.URL + "/macros/s/test/exec"
}

// Seed replaces the table without going through the client.
func (s *Server) Seed(rows ...model.Movement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append([]model.Movement{}, rows...)
}

// Rows returns a copy of the table.
func (s *Server) Rows() []model.Movement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Movement{}, s.rows...)
}

// Emails returns the emails received so far.
func (s *Server) Emails() []Email {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Email{}, s.emails...)
}

// SetFailing makes every request answer 500 while on is true.
func (s *Server) SetFailing(on bool) {
	s.mu.Lock()
	s.failing = on
	s.mu.Unlock()
}

// SetReadBody makes reads answer body verbatim. An empty body restores the
// table.
func (s *Server) SetReadBody(body string) {
	s.mu.Lock()
	s.readBody = body
	s.mu.Unlock()
}

// Counts returns how many reads and saves were served.
func (s *Server) Counts() (reads, saves int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads, s.saves
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failing {
		http.Error(w, "Service unavailable", http.StatusInternalServerError)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if r.URL.Query().Get("action") != "read" {
			io.WriteString(w, "[]")
			return
		}
		s.reads++
		w.Header().Set("Content-Type", "application/json")
		if s.readBody != "" {
			io.WriteString(w, s.readBody)
			return
		}
		json.NewEncoder(w).Encode(s.rows)

	case http.MethodPost:
		var req struct {
			Action    string           `json:"action"`
			Movements []model.Movement `json:"movements"`
			Email
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			io.WriteString(w, "Error: "+err.Error())
			return
		}
		switch req.Action {
		case "save":
			if req.Movements == nil {
				io.WriteString(w, "Error: movements missing")
				return
			}
			s.saves++
			s.rows = req.Movements
			io.WriteString(w, "Success")
		case "sendEmail":
			s.emails = append(s.emails, req.Email)
			io.WriteString(w, "Success")
		default:
			io.WriteString(w, "Error: unknown action")
		}

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
