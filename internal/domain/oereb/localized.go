package oereb

// LocalisedString is one language variant.
type LocalisedString struct {
	Language string `json:"language,omitempty"`
	Text     string `json:"text"`
}

// LocalisedText is an ordered list of language variants.
type LocalisedText []LocalisedString

// Text builds a single-variant LocalisedText without language.
func Text(s string) LocalisedText {
	if s == "" {
		return nil
	}
	return LocalisedText{{Text: s}}
}

// Resolve returns the variant in lang, falling back to the first variant in
// document order. An empty text resolves to "".
func (t LocalisedText) Resolve(lang string) string {
	if len(t) == 0 {
		return ""
	}
	for _, v := range t {
		if v.Language == lang {
			return v.Text
		}
	}
	return t[0].Text
}

// IsEmpty reports whether t has no non-empty variant.
func (t LocalisedText) IsEmpty() bool {
	for _, v := range t {
		if v.Text != "" {
			return false
		}
	}
	return true
}
