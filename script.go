package puppet

import (
	"encoding/json"
	"fmt"
)

// scriptStep is a single action in a script.
type scriptStep struct {
	Action string  `json:"action"`
	Target string  `json:"target,omitempty"`
	Name   string  `json:"name,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Frames int     `json:"frames,omitempty"`
}

type scriptFile struct {
	Steps []scriptStep `json:"steps"`
}

// ScriptRunner plays a scripted sequence of clicks, waits, expression
// changes, resizes and screenshots, one step per frame. Attach with
// Scene.SetScript.
type ScriptRunner struct {
	steps     []scriptStep
	cursor    int
	waitCount int
	done      bool
}

// LoadScript parses a JSON script:
//
//	{"steps": [
//	  {"action": "click", "x": 320, "y": 200},
//	  {"action": "wait", "frames": 30},
//	  {"action": "expression", "target": "haru", "name": "random"},
//	  {"action": "resize", "target": "haru", "width": 400, "height": 600},
//	  {"action": "screenshot", "name": "after-resize"}
//	]}
func LoadScript(data []byte) (*ScriptRunner, error) {
	var f scriptFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("parse script: no steps")
	}
	for i, st := range f.Steps {
		switch st.Action {
		case "click", "wait", "screenshot":
		case "expression", "resize":
			if st.Target == "" {
				return nil, fmt.Errorf("parse script: step %d (%s) has no target", i, st.Action)
			}
		default:
			return nil, fmt.Errorf("parse script: step %d: unknown action %q", i, st.Action)
		}
	}
	return &ScriptRunner{steps: f.Steps}, nil
}

// SetScript attaches a ScriptRunner. Its steps run from Scene.Update before
// input processing.
func (s *Scene) SetScript(r *ScriptRunner) {
	s.script = r
}

// Done reports whether every step has run.
func (r *ScriptRunner) Done() bool {
	return r.done
}

// step advances the runner by one frame.
func (r *ScriptRunner) step(s *Scene) {
	if r.done {
		return
	}
	// Let injected clicks drain before the next step.
	if len(s.injectQueue) > 0 {
		return
	}
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++

	switch st.Action {
	case "click":
		s.InjectClick(st.X, st.Y)
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1
		}
	case "expression":
		p := s.PuppetByName(st.Target)
		if p == nil {
			s.log.Warn("script target not found", "target", st.Target)
			break
		}
		if !p.Expressions().Request(st.Name) {
			s.log.Warn("script expression not loaded", "target", st.Target, "expression", st.Name)
		}
	case "screenshot":
		s.Screenshot(st.Name)
	case "resize":
		p := s.PuppetByName(st.Target)
		if p == nil {
			s.log.Warn("script target not found", "target", st.Target)
			break
		}
		p.Resize(st.Width, st.Height)
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 && len(s.injectQueue) == 0 {
		r.done = true
	}
}
