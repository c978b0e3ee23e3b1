package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dmkolesov/snaprate/internal/auth"
	"github.com/dmkolesov/snaprate/internal/logging"
	"github.com/dmkolesov/snaprate/internal/session"
)

// SessionAPI exposes the server-held session flow. Each call returns the
// session snapshot so the client can render without tracking state itself.
type SessionAPI struct {
	sessions       *session.Manager
	controller     *session.Controller
	authMiddleware *auth.Middleware
	maxUploadSize  int64
	logger         *logging.Logger
}

// NewSessionAPI creates the session flow handler.
func NewSessionAPI(sessions *session.Manager, controller *session.Controller, authMiddleware *auth.Middleware, maxUploadSize int64, logger *logging.Logger) *SessionAPI {
	return &SessionAPI{
		sessions:       sessions,
		controller:     controller,
		authMiddleware: authMiddleware,
		maxUploadSize:  maxUploadSize,
		logger:         logger,
	}
}

// RegisterRoutes registers session routes.
func (api *SessionAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	wrap := func(h http.HandlerFunc) http.HandlerFunc {
		if api.authMiddleware != nil {
			h = api.authMiddleware.OptionalAuth(h)
		}
		return corsMiddleware(h)
	}

	mux.HandleFunc("/api/session/start", wrap(api.handleStart))
	mux.HandleFunc("/api/session", wrap(api.handleGet))
	mux.HandleFunc("/api/session/file", wrap(api.handleFile))
	mux.HandleFunc("/api/session/upload", wrap(api.handleUpload))
	mux.HandleFunc("/api/session/rating", wrap(api.handleRating))
	mux.HandleFunc("/api/session/submit-rating", wrap(api.handleSubmitRating))
	mux.HandleFunc("/api/session/next", wrap(api.handleNext))
	mux.HandleFunc("/api/session/refresh", wrap(api.handleRefresh))
}

// resolveUserID prefers the authenticated token subject and falls back to
// the opaque bridge-supplied userId.
func (api *SessionAPI) resolveUserID(r *http.Request) string {
	if userID := auth.GetUserID(r.Context()); userID != "" {
		return userID
	}
	if userID := strings.TrimSpace(r.URL.Query().Get("userId")); userID != "" {
		return userID
	}
	return strings.TrimSpace(r.FormValue("userId"))
}

func (api *SessionAPI) writeState(w http.ResponseWriter, sess *session.Session, err error) {
	var sessionErr *session.Error
	if err != nil && errors.As(err, &sessionErr) {
		status := http.StatusOK
		if sessionErr.Kind == session.KindValidation {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]interface{}{
			"error":   sessionErr.Message,
			"kind":    string(sessionErr.Kind),
			"session": sess.Snapshot(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": sess.Snapshot(),
	})
}

func (api *SessionAPI) sessionFor(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	userID := api.resolveUserID(r)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id_required")
		return nil, false
	}
	return api.sessions.GetOrCreate(userID), true
}

func (api *SessionAPI) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := api.resolveUserID(r)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id_required")
		return
	}

	// Starting always resets to a fresh upload screen.
	api.sessions.Delete(userID)
	sess := api.sessions.GetOrCreate(userID)
	api.writeState(w, sess, nil)
}

func (api *SessionAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, ok := api.sessionFor(w, r)
	if !ok {
		return
	}
	api.writeState(w, sess, nil)
}

func (api *SessionAPI) handleFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	maxSize := api.maxUploadSize
	if maxSize <= 0 {
		maxSize = 10 * 1024 * 1024
	}
	// The size ceiling is enforced by the controller so too-large files get
	// a proper validation error, not a dropped connection.
	r.Body = http.MaxBytesReader(w, r.Body, 2*maxSize)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_upload_payload")
		return
	}

	sess, ok := api.sessionFor(w, r)
	if !ok {
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "photo_required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "upload_failed")
		return
	}

	contentType := header.Header.Get("Content-Type")
	err = api.controller.SelectFile(sess, header.Filename, contentType, header.Size, data)
	api.writeState(w, sess, err)
}

func (api *SessionAPI) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, ok := api.sessionFor(w, r)
	if !ok {
		return
	}
	api.writeState(w, sess, api.controller.SubmitUpload(r.Context(), sess))
}

type ratingRequest struct {
	Value int `json:"value"`
}

func (api *SessionAPI) handleRating(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, ok := api.sessionFor(w, r)
	if !ok {
		return
	}

	var req ratingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	api.writeState(w, sess, api.controller.SetRating(sess, req.Value))
}

func (api *SessionAPI) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, ok := api.sessionFor(w, r)
	if !ok {
		return
	}
	api.writeState(w, sess, api.controller.SubmitRating(r.Context(), sess))
}

func (api *SessionAPI) handleNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, ok := api.sessionFor(w, r)
	if !ok {
		return
	}
	api.writeState(w, sess, api.controller.RateAnother(r.Context(), sess))
}

func (api *SessionAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, ok := api.sessionFor(w, r)
	if !ok {
		return
	}
	api.writeState(w, sess, api.controller.Refresh(r.Context(), sess))
}
