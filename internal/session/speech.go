package session

import (
	"golang.org/x/net/html"

	"github.com/starford/dysedit/internal/document"
	"github.com/starford/dysedit/internal/speech"
)

// SpeechStatus is the playback state with the current highlight and trail.
type SpeechStatus struct {
	State   speech.PlayState  `json:"state"`
	Current *speech.Highlight `json:"current,omitempty"`
	Trail   []speech.Mark     `json:"trail"`
}

// SetVoice sets the voice used by the next utterance.
func (s *Session) SetVoice(v speech.Voice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voice = v
}

// StartSpeech reads the document aloud from the top. In markdown view the
// projection comes from the markdown source and boundaries are not
// highlighted.
func (s *Session) StartSpeech() (speech.Utterance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, mode := s.doc.State()
	var text string
	if mode == document.ModeMarkdown {
		text = speech.ProjectMarkdown(content)
	} else {
		s.pull()
		text = speech.Project(s.surf.Root())
	}
	return s.player.Start(text, s.voice)
}

// SpeechBoundary maps a word boundary onto the surface.
func (s *Session) SpeechBoundary(ev speech.BoundaryEvent) (speech.Highlight, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.Boundary(ev)
}

// PauseSpeech suspends playback.
func (s *Session) PauseSpeech() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.Pause()
}

// ResumeSpeech continues paused playback.
func (s *Session) ResumeSpeech() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.Resume()
}

// CancelSpeech stops playback and clears the highlight.
func (s *Session) CancelSpeech() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.Cancel()
}

// EndSpeech is reported when the utterance finished.
func (s *Session) EndSpeech() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.End()
}

// Speech returns the playback status.
func (s *Session) Speech() SpeechStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, trail := s.player.Highlight()
	return SpeechStatus{State: s.player.State(), Current: cur, Trail: trail}
}

// speechRoot is called by the player with the session locked.
func (s *Session) speechRoot() *html.Node {
	if s.doc.Mode() == document.ModeMarkdown {
		return nil
	}
	return s.surf.Root()
}
