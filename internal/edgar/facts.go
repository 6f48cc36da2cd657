// Package edgar fetches and parses XBRL company-facts documents from the
// SEC EDGAR disclosure API.
package edgar

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// Taxonomy namespaces used by the disclosure source.
const (
	TaxonomyUSGAAP = "us-gaap"
	TaxonomyDEI    = "dei"
)

// CompanyFacts is the EDGAR company facts JSON document: one per company,
// keyed taxonomy -> tag -> units -> values.
type CompanyFacts struct {
	CIK        int               `json:"cik"`
	EntityName string            `json:"entityName"`
	Facts      map[string]FactNS `json:"facts"`
}

// FactNS groups facts by tag name within one taxonomy namespace.
type FactNS map[string]Fact

// Fact is a single tagged concept with its per-unit value lists.
type Fact struct {
	Label       string                 `json:"label"`
	Description string                 `json:"description"`
	Units       map[string][]FactValue `json:"units"`
}

// FactValue is one data point for a fact: one period in one filing.
type FactValue struct {
	Start string  `json:"start,omitempty"` // absent for instant (balance sheet) facts
	End   string  `json:"end"`
	Val   float64 `json:"val"`
	Accn  string  `json:"accn"`
	FY    int     `json:"fy"`
	FP    string  `json:"fp"` // "Q1".."Q4" or "FY"
	Form  string  `json:"form"`
	Filed string  `json:"filed"`
}

// ParseCompanyFacts decodes a company facts document from a reader.
// A decode failure means the document is malformed and must not be retried.
func ParseCompanyFacts(r io.Reader) (*CompanyFacts, error) {
	var facts CompanyFacts
	if err := json.NewDecoder(r).Decode(&facts); err != nil {
		return nil, eris.Wrap(err, "edgar: parse company facts")
	}
	if facts.Facts == nil {
		return nil, eris.New("edgar: company facts document has no facts section")
	}
	return &facts, nil
}

// TagValues returns the value list for a tag in the given taxonomy and unit.
// Missing taxonomy, tag, or unit all yield nil — absent data is not an error.
func (cf *CompanyFacts) TagValues(taxonomy, tag, unit string) []FactValue {
	ns, ok := cf.Facts[taxonomy]
	if !ok {
		return nil
	}
	fact, ok := ns[tag]
	if !ok {
		return nil
	}
	return fact.Units[unit]
}
