package receipt

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// TokenVerifier authenticates a bearer token and resolves the organization
// it belongs to.
type TokenVerifier interface {
	Verify(token string) (orgID string, ok bool)
}

// StaticToken verifies requests against a single preconfigured token. An
// empty token disables authentication; every request then maps to OrgID.
type StaticToken struct {
	Token string
	OrgID string
}

// Verify implements TokenVerifier
func (t StaticToken) Verify(token string) (string, bool) {
	if t.Token == "" {
		return t.OrgID, true
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(t.Token)) == 1 {
		return t.OrgID, true
	}
	return "", false
}

type ctxKey int

const orgIDKey ctxKey = 0

// orgIDFromContext returns the authenticated organization ID for a request
func orgIDFromContext(ctx context.Context) string {
	orgID, _ := ctx.Value(orgIDKey).(string)
	return orgID
}

// Server handles HTTP requests for records
type Server struct {
	service  *Service
	verifier TokenVerifier
	mux      *http.ServeMux
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, verifier TokenVerifier) *Server {
	return NewServerWithMux(service, verifier, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, verifier TokenVerifier, mux *http.ServeMux) *Server {
	s := &Server{
		service:  service,
		verifier: verifier,
		mux:      mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks the bearer token and returns the owning organization
func (s *Server) authenticate(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	token := ""
	if strings.HasPrefix(auth, "Bearer ") {
		token = strings.TrimPrefix(auth, "Bearer ")
	}
	return s.verifier.Verify(token)
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		// Handle preflight OPTIONS requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := s.authenticate(r)
		if !ok {
			// Ensure CORS headers are set before error response
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Bearer realm="Scouter"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), orgIDKey, orgID)))
	}
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all API routes on the server's mux
// Routes must be registered from most specific to least specific to avoid conflicts
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/receipts/{id}/progress", s.requireAuth(s.handleGetProgress))
	s.mux.HandleFunc("POST /api/receipts/{id}/verify", s.requireAuth(s.handleVerifyRecord))
	s.mux.HandleFunc("GET /api/receipts/{id}", s.requireAuth(s.handleGetRecord))
	s.mux.HandleFunc("DELETE /api/receipts/{id}", s.requireAuth(s.handleDeleteRecord))
	s.mux.HandleFunc("GET /api/receipts", s.requireAuth(s.handleListRecords))
	s.mux.HandleFunc("POST /api/receipts", s.requireAuth(s.handleUploadReceipt))

	s.mux.HandleFunc("GET /health", s.handleHealth)
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	// Wrap the mux with CORS middleware to handle all requests including OPTIONS
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			s.mux.ServeHTTP(w, r)
		})(w, r)
	}))
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
