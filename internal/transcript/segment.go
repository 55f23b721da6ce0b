package transcript

import "strings"

// Segment splits a word stream into sentences. A sentence closes after any
// word ending in '.', '!' or '?'; trailing words without terminal
// punctuation form a final sentence. Word texts are concatenated without
// separators since provider tokens already carry their own spacing.
func Segment(words []Word) []Sentence {
	var (
		sentences []Sentence
		acc       []Word
		speaker   string
	)

	closeSentence := func() {
		var b strings.Builder
		for _, w := range acc {
			b.WriteString(w.Text)
		}
		sentences = append(sentences, Sentence{
			Text:      b.String(),
			StartTime: acc[0].StartTime,
			EndTime:   acc[len(acc)-1].EndTime,
			Speaker:   speaker,
			Words:     acc,
		})
		acc = nil
	}

	for _, w := range words {
		if len(acc) == 0 {
			speaker = w.Speaker
		}
		acc = append(acc, w)
		if endsSentence(w.Text) {
			closeSentence()
		}
	}
	if len(acc) > 0 {
		closeSentence()
	}
	return sentences
}

func endsSentence(text string) bool {
	if text == "" {
		return false
	}
	switch text[len(text)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}
