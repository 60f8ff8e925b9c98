// Package routing maps a submitter's country to the CRM pipeline that owns it.
package routing

import (
	"strings"
	"unicode"

	"diagnostico_backend/platform/config"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Target is where a deal for one country lands in the CRM.
type Target struct {
	CountryCode string
	PipelineID  int64
	StageID     int64
	Currency    string
	// Degraded is set when the input matched no known country and the
	// fallback was used.
	Degraded bool
}

// labelMatch pairs a folded country label with its code. Order matters: the
// first label contained in the input wins.
type labelMatch struct {
	label string
	code  string
}

var labels = []labelMatch{
	{label: "GUATEMALA", code: "GT"},
	{label: "EL SALVADOR", code: "SV"},
	{label: "SALVADOR", code: "SV"},
	{label: "HONDURAS", code: "HN"},
	{label: "REPUBLICA DOMINICANA", code: "DO"},
	{label: "DOMINICANA", code: "DO"},
	{label: "ECUADOR", code: "EC"},
	{label: "PANAMA", code: "PA"},
}

// Names gives the display name for each supported code.
var Names = map[string]string{
	"GT": "Guatemala",
	"SV": "El Salvador",
	"HN": "Honduras",
	"DO": "República Dominicana",
	"EC": "Ecuador",
	"PA": "Panamá",
}

// Router resolves countries against a table fixed at construction.
type Router struct {
	routes   map[string]config.CountryRoute
	fallback string
	def      config.CountryRoute
}

// New copies the configured table so later mutation of cfg cannot leak in.
func New(cfg config.RoutingConfig) *Router {
	routes := make(map[string]config.CountryRoute, len(cfg.GetCountryRoutes()))
	for code, r := range cfg.GetCountryRoutes() {
		routes[strings.ToUpper(code)] = r
	}

	return &Router{
		routes:   routes,
		fallback: strings.ToUpper(cfg.GetFallbackCountry()),
		def:      cfg.GetDefaultRoute(),
	}
}

// Normalize returns the canonical two-letter code for a free-form country
// value, and whether the value was recognised.
func (r *Router) Normalize(value string) (string, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return r.fallback, false
	}

	if len(trimmed) == 2 {
		code := strings.ToUpper(trimmed)
		if _, ok := Names[code]; ok {
			return code, true
		}
	}

	folded := Fold(trimmed)
	for _, m := range labels {
		if strings.Contains(folded, m.label) {
			return m.code, true
		}
	}

	return r.fallback, false
}

// Resolve never fails: unknown countries route to the fallback code, and a
// code without a table entry routes to the deployment default.
func (r *Router) Resolve(value string) Target {
	code, known := r.Normalize(value)

	route, ok := r.routes[code]
	if !ok {
		route = r.def
	}

	return Target{
		CountryCode: code,
		PipelineID:  route.PipelineID,
		StageID:     route.StageID,
		Currency:    route.Currency,
		Degraded:    !known || !ok,
	}
}

// Fold upper-cases s and strips diacritics so "Panamá" and "panama" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(strings.Join(strings.Fields(out), " "))
}
