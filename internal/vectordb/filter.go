package vectordb

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/finsight/finsight/internal/schema"
)

// Filter narrows a vector search to one ticker and/or a set of filing types.
type Filter struct {
	Ticker   string
	DocTypes []string
}

var validDocTypes = map[string]struct{}{
	"balance_sheet":    {},
	"cash_flow":        {},
	"income_statement": {},
	"10k":              {},
}

var tickerPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9.\-]{0,9}$`)

// Validate rejects malformed filter input before any external call is made.
func (f Filter) Validate() error {
	if f.Ticker != "" && !tickerPattern.MatchString(f.Ticker) {
		return fmt.Errorf("%w: ticker %q", schema.ErrInvalidFilter, f.Ticker)
	}
	for _, dt := range f.DocTypes {
		if _, ok := validDocTypes[strings.ToLower(dt)]; !ok {
			return fmt.Errorf("%w: doc_type %q", schema.ErrInvalidFilter, dt)
		}
	}
	return nil
}

// Expr renders the filter as a Milvus boolean expression. An empty filter
// yields an empty expression (no restriction).
func (f Filter) Expr() string {
	var clauses []string
	if f.Ticker != "" {
		clauses = append(clauses, fmt.Sprintf(`ticker == %q`, strings.ToUpper(f.Ticker)))
	}
	if len(f.DocTypes) > 0 {
		quoted := make([]string, len(f.DocTypes))
		for i, dt := range f.DocTypes {
			quoted[i] = fmt.Sprintf("%q", strings.ToLower(dt))
		}
		clauses = append(clauses, fmt.Sprintf("doc_type in [%s]", strings.Join(quoted, ", ")))
	}
	return strings.Join(clauses, " and ")
}
