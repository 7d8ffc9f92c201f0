package app

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/gesture"
)

// Voice status texts.
const (
	VoiceStatusListening = "Listening"
	VoiceStatusOff       = "Voice off"
)

// SessionInfo describes one modality's processing session.
type SessionInfo struct {
	Source     action.Source `json:"source"`
	ID         string        `json:"id,omitempty"`
	Active     bool          `json:"active"`
	Status     string        `json:"status"`
	InProgress bool          `json:"in_progress"`
	StartedAt  *time.Time    `json:"started_at,omitempty"`
}

// modality is the per-session detector state. A fresh one is built every
// time a session starts.
type modality interface {
	detect(s gesture.Sample, nowMs int64) (action.Event, bool)
	reset()
	status() string
	inProgress() bool
}

// session serializes one modality. Samples of a modality arrive from a
// single producer at a time, but the camera loop and the HTTP feed may both
// be that producer over the process lifetime.
type session struct {
	src   action.Source
	build func() modality

	mu        sync.Mutex
	state     modality
	id        string
	startedAt time.Time
	published string
}

func newSession(src action.Source, build func() modality) *session {
	return &session{src: src, build: build}
}

// start creates fresh detector state. Starting an active session is a no-op.
func (s *session) start(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != nil {
		return false
	}
	s.state = s.build()
	s.id = uuid.New().String()
	s.startedAt = now
	s.published = ""
	return true
}

// stop discards the detector state.
func (s *session) stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return false
	}
	s.state = nil
	s.id = ""
	return true
}

// feed runs one sample. statusText is non-empty when the detector's status
// changed with this sample.
func (s *session) feed(sample gesture.Sample, nowMs int64) (ev action.Event, ok bool, statusText string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return action.Event{}, false, "", ErrSessionStopped
	}

	ev, ok = s.state.detect(sample, nowMs)
	if st := s.state.status(); st != s.published {
		s.published = st
		statusText = st
	}
	return ev, ok, statusText, nil
}

// reset restores the initial detector state without ending the session.
func (s *session) reset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return false
	}
	wasBusy := s.state.inProgress()
	s.state.reset()
	s.published = s.state.status()
	return wasBusy
}

func (s *session) info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := SessionInfo{Source: s.src}
	if s.state == nil {
		return info
	}

	started := s.startedAt
	info.ID = s.id
	info.Active = true
	info.Status = s.state.status()
	info.InProgress = s.state.inProgress()
	info.StartedAt = &started
	return info
}

type faceModality struct{ d *gesture.FaceDetector }

func (m faceModality) detect(s gesture.Sample, nowMs int64) (action.Event, bool) {
	fs, ok := s.(gesture.FaceSample)
	if !ok {
		return action.Event{}, false
	}
	return m.d.Detect(fs, nowMs)
}
func (m faceModality) reset()           { m.d.Reset() }
func (m faceModality) status() string   { return m.d.Status() }
func (m faceModality) inProgress() bool { return m.d.InProgress() }

type handModality struct{ d *gesture.HandDetector }

func (m handModality) detect(s gesture.Sample, nowMs int64) (action.Event, bool) {
	hs, ok := s.(gesture.HandSample)
	if !ok {
		return action.Event{}, false
	}
	return m.d.Detect(hs, nowMs)
}
func (m handModality) reset()           { m.d.Reset() }
func (m handModality) status() string   { return m.d.Status() }
func (m handModality) inProgress() bool { return m.d.InProgress() }

type voiceModality struct {
	r  *gesture.VoiceRouter
	sw *gesture.Switch
}

func (m voiceModality) detect(s gesture.Sample, _ int64) (action.Event, bool) {
	vs, ok := s.(gesture.VoiceSample)
	if !ok {
		return action.Event{}, false
	}
	return m.r.Route(vs.Phrase)
}
func (m voiceModality) reset() {}
func (m voiceModality) status() string {
	if m.sw.Enabled() {
		return VoiceStatusListening
	}
	return VoiceStatusOff
}
func (m voiceModality) inProgress() bool { return false }
