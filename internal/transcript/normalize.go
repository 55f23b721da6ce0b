package transcript

// Normalize converts a raw STT response into a Transcript. Non-word tokens
// (spacing, audio events) are dropped, undiarized words get UnknownSpeaker,
// and sentences are derived from the filtered words.
func Normalize(raw *RawResponse) *Transcript {
	if raw == nil {
		return &Transcript{}
	}

	words := make([]Word, 0, len(raw.Words))
	for _, tok := range raw.Words {
		if tok.Type != "word" {
			continue
		}
		speaker := tok.SpeakerID
		if speaker == "" {
			speaker = UnknownSpeaker
		}
		words = append(words, Word{
			Text:      tok.Text,
			StartTime: tok.Start,
			EndTime:   tok.End,
			Speaker:   speaker,
		})
	}

	return &Transcript{
		Text:      raw.Text,
		Words:     words,
		Sentences: Segment(words),
	}
}
