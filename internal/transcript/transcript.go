package transcript

// UnknownSpeaker is assigned to words the STT provider did not diarize.
const UnknownSpeaker = "unknown"

// Word is a single spoken token with timing and speaker attribution.
type Word struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"` // seconds
	EndTime   float64 `json:"end_time"`   // seconds
	Speaker   string  `json:"speaker"`
}

// Sentence groups consecutive words closed by terminal punctuation.
// AIProbability is nil until the sentence has been scored, and stays nil
// (with Error set) when scoring failed.
type Sentence struct {
	Text          string   `json:"text"`
	StartTime     float64  `json:"start_time"`
	EndTime       float64  `json:"end_time"`
	Speaker       string   `json:"speaker"`
	Words         []Word   `json:"words"`
	AIProbability *float64 `json:"ai_probability"`
	Error         string   `json:"error,omitempty"`
}

// Transcript is the structured document produced from one STT response.
type Transcript struct {
	Text      string     `json:"text"`
	Words     []Word     `json:"words"`
	Sentences []Sentence `json:"sentences"`
}

// RawResponse is the provider-neutral speech-to-text response: a flat token
// stream including non-word spacing tokens.
type RawResponse struct {
	Text  string     `json:"text"`
	Words []RawToken `json:"words"`
}

// RawToken is one entry of the provider token stream.
type RawToken struct {
	Text      string  `json:"text"`
	Type      string  `json:"type"` // "word", "spacing", "audio_event"
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	SpeakerID string  `json:"speaker_id,omitempty"`
}
