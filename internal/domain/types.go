// Package domain holds the data model shared by the dubbing pipeline:
// transcript segments, translated segments, synthesized clips and the
// error kinds that decide whether a stage failure is fatal.
package domain

// OriginalSegment is a time-bounded span of source speech as produced by
// transcription. Times are seconds from the start of the source.
type OriginalSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End - Start.
func (s OriginalSegment) Duration() float64 { return s.End - s.Start }

// Transcript is the transcription engine's output.
type Transcript struct {
	Text     string            `json:"text"`
	Language string            `json:"language"`
	Duration float64           `json:"duration,omitempty"`
	Segments []OriginalSegment `json:"segments"`
}

// TranslatedSegment carries target-language text over a time range taken
// from one or more adjacent original segments.
type TranslatedSegment struct {
	Text         string  `json:"text"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	OriginalText string  `json:"originalText"`
}

// Duration returns End - Start.
func (s TranslatedSegment) Duration() float64 { return s.End - s.Start }

// AudioClip is one synthesized artifact positioned on the timeline.
type AudioClip struct {
	Path      string  `json:"path"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Duration  float64 `json:"duration"`
}

// Quality is a coarse heuristic score used for observability only.
type Quality struct {
	Score  int      `json:"score"`
	Rating string   `json:"rating"`
	Notes  []string `json:"notes,omitempty"`
}

// TranslationResult is what the translation stage hands to distribution.
type TranslationResult struct {
	OriginalText   string  `json:"originalText"`
	TranslatedText string  `json:"translatedText"`
	SourceLanguage string  `json:"sourceLanguage"`
	TargetLanguage string  `json:"targetLanguage"`
	Quality        Quality `json:"quality"`
	Chunks         int     `json:"chunks,omitempty"`
	// Degraded is set when the text was passed through untranslated.
	Degraded       bool   `json:"degraded,omitempty"`
	DegradedReason string `json:"degradedReason,omitempty"`
}

// PassThrough builds the fallback result that treats text as already
// being in the target language.
func PassThrough(text, source, target, reason string) TranslationResult {
	return TranslationResult{
		OriginalText:   text,
		TranslatedText: text,
		SourceLanguage: source,
		TargetLanguage: target,
		Degraded:       true,
		DegradedReason: reason,
	}
}

// MediaInfo is the subset of probe output the pipeline needs.
type MediaInfo struct {
	Duration float64      `json:"duration"`
	Probed   bool         `json:"probed"`
	Video    *VideoStream `json:"video,omitempty"`
	Audio    *AudioStream `json:"audio,omitempty"`
}

type VideoStream struct {
	Codec  string  `json:"codec"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps"`
}

type AudioStream struct {
	Codec      string `json:"codec"`
	Channels   int    `json:"channels"`
	SampleRate int    `json:"sampleRate"`
}
