package plot

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// dispositionFilename extracts the filename of a Content-Disposition header.
// The quoted alternative needs a backreference, which RE2 lacks.
var dispositionFilename = regexp2.MustCompile(`filename[^;=\n]*=((['"]).*?\2|[^;\n]*)`, regexp2.None)

// FilenameFromDisposition returns the filename announced by a
// Content-Disposition header, or fallback when there is none.
func FilenameFromDisposition(header, fallback string) string {
	if header == "" {
		return fallback
	}
	m, err := dispositionFilename.FindStringMatch(header)
	if err != nil || m == nil {
		return fallback
	}
	g := m.GroupByNumber(1)
	if g == nil {
		return fallback
	}
	name := strings.TrimSpace(g.String())
	if len(name) >= 2 && (name[0] == '"' || name[0] == '\'') && name[len(name)-1] == name[0] {
		name = name[1 : len(name)-1]
	}
	if name == "" {
		return fallback
	}
	return name
}

// DefaultPDFName is the fallback filename of a query's PDF.
func DefaultPDFName(queryKey string) string {
	return queryKey + ".pdf"
}
