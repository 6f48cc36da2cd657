package concept

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prachitbhike/insurintel-sub000/internal/edgar"
	"github.com/prachitbhike/insurintel-sub000/internal/model"
)

const dateLayout = "2006-01-02"

// acceptedForm reports whether a filing form carries official annual or
// quarterly data. Amendments (10-K/A, 10-Q/A) are the same periodic reports,
// restated, so they pass too; everything else (8-K, S-1, ...) is comparative
// noise for our purposes.
func acceptedForm(form string) bool {
	return strings.HasPrefix(form, "10-K") || strings.HasPrefix(form, "10-Q")
}

// periodKey identifies one reported period within one form type. Two
// observations with the same key are duplicate reports of the same fact.
type periodKey struct {
	form  string
	start string
	end   string
}

// Resolver merges a metric's tag aliases into one deduplicated observation
// set per company document.
type Resolver struct {
	lookbackYears int
	now           func() time.Time
}

// NewResolver creates a Resolver with the given lookback window in years.
func NewResolver(lookbackYears int) *Resolver {
	if lookbackYears <= 0 {
		lookbackYears = 5
	}
	return &Resolver{lookbackYears: lookbackYears, now: time.Now}
}

// Resolve walks the mapping's aliases in preference order and merges their
// observations into one set, keyed by (form, period start, period end).
//
// Every alias is visited, not just the first with data: a company that
// migrated from one tag to another mid-history needs the later alias to fill
// the years the preferred one is missing. When two observations collide on
// the same key, the one with the strictly later filing date wins; on a filing
// date tie the earlier-inserted (higher-preference) value is kept.
func (r *Resolver) Resolve(facts *edgar.CompanyFacts, m Mapping) []model.RawObservation {
	minYear := r.now().Year() - r.lookbackYears

	merged := make(map[periodKey]model.RawObservation)

	for _, alias := range m.Aliases {
		for _, v := range facts.TagValues(m.Taxonomy, alias, m.Unit) {
			if !acceptedForm(v.Form) {
				continue
			}
			// Raw-label year filter; the attributed year is filtered again
			// later from a different source.
			if v.FY < minYear {
				continue
			}

			end, err := time.Parse(dateLayout, v.End)
			if err != nil {
				continue
			}
			filed, err := time.Parse(dateLayout, v.Filed)
			if err != nil {
				continue
			}
			var start *time.Time
			if v.Start != "" {
				if s, err := time.Parse(dateLayout, v.Start); err == nil {
					start = &s
				}
			}

			key := periodKey{form: v.Form, start: v.Start, end: v.End}
			if prev, ok := merged[key]; ok && !filed.After(prev.FiledDate) {
				// Stale or same-day duplicate: preference order holds.
				continue
			}

			merged[key] = model.RawObservation{
				Metric:      m.Metric,
				Value:       v.Val,
				Unit:        m.Unit,
				PeriodStart: start,
				PeriodEnd:   end,
				Accession:   v.Accn,
				FiscalYear:  v.FY,
				FiscalLabel: v.FP,
				Form:        v.Form,
				FiledDate:   filed,
			}
		}
	}

	if len(merged) == 0 {
		zap.L().Debug("concept: no observations resolved",
			zap.String("metric", m.Metric),
			zap.Int("cik", facts.CIK),
		)
		return nil
	}

	out := make([]model.RawObservation, 0, len(merged))
	for _, obs := range merged {
		out = append(out, obs)
	}
	// Map iteration order is random; sort for deterministic downstream runs.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PeriodEnd.Equal(out[j].PeriodEnd) {
			return out[i].PeriodEnd.Before(out[j].PeriodEnd)
		}
		if out[i].Form != out[j].Form {
			return out[i].Form < out[j].Form
		}
		si, sj := "", ""
		if out[i].PeriodStart != nil {
			si = out[i].PeriodStart.Format(dateLayout)
		}
		if out[j].PeriodStart != nil {
			sj = out[j].PeriodStart.Format(dateLayout)
		}
		return si < sj
	})
	return out
}

// ResolveAll resolves every mapping in the concept table against one company
// document.
func (r *Resolver) ResolveAll(facts *edgar.CompanyFacts) map[string][]model.RawObservation {
	out := make(map[string][]model.RawObservation, len(Mappings))
	for _, m := range Mappings {
		if obs := r.Resolve(facts, m); len(obs) > 0 {
			out[m.Metric] = obs
		}
	}
	return out
}
