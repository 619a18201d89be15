package pagespeed

// Response is the subset of the PageSpeed Insights v5 runPagespeed payload
// this service consumes.
type Response struct {
	ID               string            `json:"id"`
	LighthouseResult *LighthouseResult `json:"lighthouseResult"`
}

// LighthouseResult holds category scores and per-check audit records.
type LighthouseResult struct {
	RequestedURL string              `json:"requestedUrl"`
	FinalURL     string              `json:"finalUrl"`
	FetchTime    string              `json:"fetchTime"`
	Categories   map[string]Category `json:"categories"`
	Audits       map[string]Audit    `json:"audits"`
	RuntimeError *RuntimeError       `json:"runtimeError,omitempty"`
}

// Category is a Lighthouse category such as "performance" or "best-practices".
// Score is nil when Lighthouse could not compute it.
type Category struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Score       *float64   `json:"score"`
	AuditRefs   []AuditRef `json:"auditRefs"`
}

// AuditRef links a category to one of the audits it is computed from.
type AuditRef struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
	Group  string  `json:"group,omitempty"`
}

// Audit is a single named check. Score is nil for informative or
// not-applicable audits.
type Audit struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Score            *float64 `json:"score"`
	ScoreDisplayMode string   `json:"scoreDisplayMode"`
	DisplayValue     string   `json:"displayValue,omitempty"`
	Warnings         []any    `json:"warnings,omitempty"`
}

// RuntimeError is set when Lighthouse could not finish the run cleanly.
type RuntimeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Category identifiers used in requests and responses.
const (
	CategoryPerformance   = "performance"
	CategorySEO           = "seo"
	CategoryAccessibility = "accessibility"
	CategoryBestPractices = "best-practices"
)

// AllCategories lists the categories requested from the provider.
var AllCategories = []string{
	CategoryPerformance,
	CategoryAccessibility,
	CategoryBestPractices,
	CategorySEO,
}

// CategoryScore returns the raw 0-1 score for the category, or 0 when the
// category is absent or unscored.
func (r *LighthouseResult) CategoryScore(id string) float64 {
	cat, ok := r.Categories[id]
	if !ok || cat.Score == nil {
		return 0
	}
	return *cat.Score
}

// StringWarnings returns the audit warnings that are plain strings.
func (a Audit) StringWarnings() []string {
	out := make([]string, 0, len(a.Warnings))
	for _, w := range a.Warnings {
		if s, ok := w.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
