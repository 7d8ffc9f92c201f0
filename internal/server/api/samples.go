package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/gesture"
)

// SamplesHandler feeds samples pushed by external capture pipelines.
type SamplesHandler struct {
	ctrl Controller
}

// NewSamplesHandler creates a new SamplesHandler.
func NewSamplesHandler(ctrl Controller) *SamplesHandler {
	return &SamplesHandler{ctrl: ctrl}
}

// Request types. Exactly one of Face, Hand and Voice is set.

type sampleRequest struct {
	Face  *faceSampleRequest  `json:"face"`
	Hand  *handSampleRequest  `json:"hand"`
	Voice *voiceSampleRequest `json:"voice"`
}

type faceSampleRequest struct {
	MouthOpenDistance float64 `json:"mouth_open_distance"`
	// Missing eye probabilities count as open.
	LeftEyeOpenProb  *float64 `json:"left_eye_open_prob"`
	RightEyeOpenProb *float64 `json:"right_eye_open_prob"`
}

// handSampleRequest carries normalized [x, y] or [x, y, z] points in
// MediaPipe order. No landmarks means no hand in the frame.
type handSampleRequest struct {
	Landmarks [][]float64 `json:"landmarks"`
}

type voiceSampleRequest struct {
	Phrase string `json:"phrase"`
}

// Response types

type sampleResponse struct {
	Source  action.Source `json:"source"`
	Emitted bool          `json:"emitted"`
	Action  *action.Event `json:"action,omitempty"`
	Label   string        `json:"label,omitempty"`
	// Rejected holds the dispatch rejection of an emitted action.
	Rejected string `json:"rejected,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
}

// ServeHTTP handles POST /api/samples.
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req sampleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	sample, err := req.sample()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ev, emitted, err := h.ctrl.Feed(sample)
	if err != nil && !emitted {
		switch {
		case errors.Is(err, app.ErrSessionStopped):
			writeError(w, http.StatusConflict, fmt.Sprintf("%s session is not running", sample.Source()))
		default:
			writeError(w, http.StatusInternalServerError, "Failed to process sample")
		}
		return
	}

	resp := sampleResponse{Source: sample.Source(), Emitted: emitted}
	if emitted {
		resp.Action = &ev
		resp.Label = ev.Label()
		resp.Outcome = string(dispatch.OutcomeFor(err))
		if err != nil {
			resp.Rejected = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (req sampleRequest) sample() (gesture.Sample, error) {
	set := 0
	for _, present := range []bool{req.Face != nil, req.Hand != nil, req.Voice != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, errors.New("exactly one of face, hand or voice is required")
	}

	switch {
	case req.Face != nil:
		return gesture.FaceSample{
			MouthOpenDistance: req.Face.MouthOpenDistance,
			LeftEyeOpenProb:   probOrOpen(req.Face.LeftEyeOpenProb),
			RightEyeOpenProb:  probOrOpen(req.Face.RightEyeOpenProb),
		}, nil

	case req.Hand != nil:
		if len(req.Hand.Landmarks) == 0 {
			return gesture.HandSample{}, nil
		}
		if len(req.Hand.Landmarks) != detector.NumLandmarks {
			return nil, fmt.Errorf("hand needs %d landmarks, got %d", detector.NumLandmarks, len(req.Hand.Landmarks))
		}
		points := make([]detector.Point3D, len(req.Hand.Landmarks))
		for i, p := range req.Hand.Landmarks {
			switch len(p) {
			case 2:
				points[i] = detector.Point3D{X: p[0], Y: p[1]}
			case 3:
				points[i] = detector.Point3D{X: p[0], Y: p[1], Z: p[2]}
			default:
				return nil, fmt.Errorf("landmark %d: want 2 or 3 coordinates, got %d", i, len(p))
			}
		}
		return gesture.HandSample{Landmarks: points}, nil

	default:
		if req.Voice.Phrase == "" {
			return nil, errors.New("voice phrase is required")
		}
		return gesture.VoiceSample{Phrase: req.Voice.Phrase}, nil
	}
}

func probOrOpen(p *float64) float64 {
	if p == nil {
		return 1
	}
	return *p
}
