package plot

// Payload is the raw body of an info query response.
type Payload struct {
	Data        []byte
	ContentType string
}

// Binary is a downloaded document with the headers needed to save it.
type Binary struct {
	Data        []byte
	ContentType string
	Disposition string
}

// Filename returns the name announced by the Content-Disposition header, or
// fallback.
func (b Binary) Filename(fallback string) string {
	return FilenameFromDisposition(b.Disposition, fallback)
}
