// Package session implements the screen flow of the Mini App: upload a
// photo, rate someone else's, say thanks, repeat. The engine degrades to
// local demo data whenever the backend fails, so the flow never stalls.
package session

import (
	"sync"
	"time"

	"github.com/dmkolesov/snaprate/internal/models"
)

// Screen is the screen a session is currently showing.
type Screen string

const (
	ScreenUpload Screen = "upload"
	ScreenRate   Screen = "rate"
	ScreenThanks Screen = "thanks"
)

// PendingFile is a file the user picked but has not uploaded yet.
type PendingFile struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// Session holds one user's flow state. All access goes through the
// controller, which serializes actions per session under mu.
type Session struct {
	mu sync.Mutex

	userID       string
	screen       Screen
	exhausted    bool
	status       string
	pendingFile  *PendingFile
	currentPhoto *models.Photo
	draftRating  int
	ratedIDs     map[string]struct{}
	uploads      int
	lastTouched  time.Time
}

// NewSession creates a session on the upload screen.
func NewSession(userID string) *Session {
	return &Session{
		userID:      userID,
		screen:      ScreenUpload,
		status:      "Ready",
		ratedIDs:    make(map[string]struct{}),
		lastTouched: time.Now(),
	}
}

// UserID returns the session owner.
func (s *Session) UserID() string {
	return s.userID
}

func (s *Session) touch() {
	s.lastTouched = time.Now()
}

func (s *Session) rated(photoID string) bool {
	_, ok := s.ratedIDs[photoID]
	return ok
}

// State is a read-only snapshot of a session, shaped for JSON responses.
type State struct {
	UserID       string        `json:"user_id"`
	Screen       Screen        `json:"screen"`
	Exhausted    bool          `json:"exhausted"`
	Status       string        `json:"status"`
	PendingFile  string        `json:"pending_file,omitempty"`
	CurrentPhoto *models.Photo `json:"current_photo,omitempty"`
	DraftRating  int           `json:"draft_rating"`
	RatedCount   int           `json:"rated_count"`
	Uploads      int           `json:"uploads"`
}

// Snapshot returns the session state under the session lock.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{
		UserID:       s.userID,
		Screen:       s.screen,
		Exhausted:    s.exhausted,
		Status:       s.status,
		CurrentPhoto: s.currentPhoto,
		DraftRating:  s.draftRating,
		RatedCount:   len(s.ratedIDs),
		Uploads:      s.uploads,
	}
	if s.pendingFile != nil {
		state.PendingFile = s.pendingFile.Name
	}
	return state
}
