package domain

// State is a pipeline stage. Values are ordered: a job only moves forward.
type State int

const (
	StateQueued State = iota
	StateExtractingAudio
	StateTranscribing
	StateTranslating
	StateSynthesizingVoice
	StateCompositing
	StateMuxing
	StateCompleted
	StateFailed
)

var stateSteps = map[State]string{
	StateQueued:            "queued",
	StateExtractingAudio:   "extracting_audio",
	StateTranscribing:      "transcribing",
	StateTranslating:       "translating",
	StateSynthesizingVoice: "synthesizing_voice",
	StateCompositing:       "compositing",
	StateMuxing:            "muxing",
	StateCompleted:         "completed",
	StateFailed:            "failed",
}

// stateProgress is the percentage reported on entry to each stage.
var stateProgress = map[State]int{
	StateQueued:            5,
	StateExtractingAudio:   15,
	StateTranscribing:      30,
	StateTranslating:       50,
	StateSynthesizingVoice: 70,
	StateCompositing:       85,
	StateMuxing:            90,
	StateCompleted:         100,
}

// Step returns the lowercase snake_case identifier used in progress events.
func (s State) Step() string {
	if step, ok := stateSteps[s]; ok {
		return step
	}
	return "unknown"
}

func (s State) String() string { return s.Step() }

// Progress returns the entry percentage for s. Failed has no percentage of
// its own; the job keeps whatever it last reported.
func (s State) Progress() int { return stateProgress[s] }

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateCompleted || s == StateFailed }

// CanTransition reports whether a job in s may move to next.
func (s State) CanTransition(next State) bool {
	if s.Terminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	return next > s
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.Step()), nil }
