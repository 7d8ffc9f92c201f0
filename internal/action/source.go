package action

// Source names the modality that produced an event.
type Source string

const (
	SourceFace  Source = "face"
	SourceHand  Source = "hand"
	SourceVoice Source = "voice"
)

// Sources lists every modality in face, hand, voice order.
func Sources() []Source {
	return []Source{SourceFace, SourceHand, SourceVoice}
}

// ParseSource returns the Source named name.
func ParseSource(name string) (Source, bool) {
	for _, s := range Sources() {
		if string(s) == name {
			return s, true
		}
	}
	return "", false
}
