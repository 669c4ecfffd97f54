package plot

import "strings"

// EGRIDToken is the placeholder substituted in query URL templates.
const EGRIDToken = "$egrid$"

// InfoQuery is an expandable information query offered for every plot.
type InfoQuery struct {
	Key        string
	Title      string
	TitleMsgID string
	Query      string
	PDFQuery   string
	PDFTooltip string
	URLKey     string
	ScrollMode string
	Cfg        map[string]interface{}
}

// HasPDF reports whether the query offers a PDF download.
func (q InfoQuery) HasPDF() bool {
	return q.PDFQuery != ""
}

// QueryURL resolves the query template for egrid against serviceURL.
func (q InfoQuery) QueryURL(serviceURL, egrid string) string {
	return ResolveURL(serviceURL, q.Query, egrid)
}

// PDFURL resolves the PDF template for egrid against serviceURL. It returns
// "" when the query has no PDF.
func (q InfoQuery) PDFURL(serviceURL, egrid string) string {
	if !q.HasPDF() {
		return ""
	}
	return ResolveURL(serviceURL, q.PDFQuery, egrid)
}

// ResolveURL substitutes the first EGRIDToken in template and prefixes the
// result with serviceURL unless it is already absolute.
func ResolveURL(serviceURL, template, egrid string) string {
	u := strings.Replace(template, EGRIDToken, egrid, 1)
	if IsAbsoluteURL(u) {
		return u
	}
	return strings.TrimRight(serviceURL, "/") + u
}

// IsAbsoluteURL reports whether u carries an http(s) scheme.
func IsAbsoluteURL(u string) bool {
	l := strings.ToLower(u)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// QuerySet is an ordered, key-indexed collection of info queries.
type QuerySet struct {
	queries []InfoQuery
	byKey   map[string]int
}

// NewQuerySet indexes queries by key. Later duplicates are ignored.
func NewQuerySet(queries []InfoQuery) QuerySet {
	s := QuerySet{byKey: make(map[string]int, len(queries))}
	for _, q := range queries {
		if _, dup := s.byKey[q.Key]; dup {
			continue
		}
		s.byKey[q.Key] = len(s.queries)
		s.queries = append(s.queries, q)
	}
	return s
}

// Get returns the query with key.
func (s QuerySet) Get(key string) (InfoQuery, bool) {
	i, ok := s.byKey[key]
	if !ok {
		return InfoQuery{}, false
	}
	return s.queries[i], true
}

// All returns the queries in configured order.
func (s QuerySet) All() []InfoQuery {
	return append([]InfoQuery(nil), s.queries...)
}
