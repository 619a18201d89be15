package analyzer

import "time"

// Impact is the coarse severity bucket derived from an audit score.
type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// Category is a requested issue category.
type Category string

const (
	CategoryPerformance   Category = "performance"
	CategorySEO           Category = "seo"
	CategoryBestPractices Category = "best-practices"
	CategoryAccessibility Category = "accessibility"
)

// Label is the category name shown on issues. Best practices are presented
// as "technical".
func (c Category) Label() string {
	if c == CategoryBestPractices {
		return "technical"
	}
	return string(c)
}

// AnalysisResult is the normalized report for one website. It is never
// modified after it has been returned or cached.
type AnalysisResult struct {
	WebsiteURL           string            `json:"websiteUrl"`
	Timestamp            time.Time         `json:"timestamp"`
	Scores               Scores            `json:"scores"`
	Audits               Audits            `json:"audits"`
	CategoryDescriptions map[string]string `json:"categoryDescriptions"`
	Page                 *PageInfo         `json:"page,omitempty"`
	Note                 string            `json:"note,omitempty"`

	raw rawScores
}

// Scores are 0-100 integers.
type Scores struct {
	Overall       int `json:"overall"`
	Performance   int `json:"performance"`
	SEO           int `json:"seo"`
	Accessibility int `json:"accessibility"`
	BestPractices int `json:"bestPractices"`
}

// rawScores keeps the provider's 0-1 category scores for the status
// endpoint's overall formula.
type rawScores struct {
	performance, accessibility, seo, bestPractices float64
}

// Audits partitions issues by output category.
type Audits struct {
	Performance   []Issue `json:"performance"`
	SEO           []Issue `json:"seo"`
	Accessibility []Issue `json:"accessibility"`
	BestPractices []Issue `json:"bestPractices"`
}

// ByName returns the issue list for a category name as used by clients
// ("performance", "seo", "accessibility", "bestPractices" or "technical").
func (a Audits) ByName(name string) ([]Issue, bool) {
	switch name {
	case "performance":
		return a.Performance, true
	case "seo":
		return a.SEO, true
	case "accessibility":
		return a.Accessibility, true
	case "bestPractices", "best-practices", "technical":
		return a.BestPractices, true
	}
	return nil, false
}

// Issue is the UI-facing form of a provider audit.
type Issue struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Score            float64  `json:"score"`
	DisplayValue     string   `json:"displayValue,omitempty"`
	ScoreDisplayMode string   `json:"scoreDisplayMode,omitempty"`
	Category         string   `json:"category"`
	Impact           Impact   `json:"impact"`
	Warnings         []string `json:"warnings"`
	Recommendations  []string `json:"recommendations"`
	SimpleSummary    string   `json:"simple_summary"`
	CurrentValue     string   `json:"current_value"`
	SuggestedValue   string   `json:"suggested_value"`
}

// PageInfo describes the analyzed page as fetched directly.
type PageInfo struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// CacheStats provides statistics about the analysis cache.
type CacheStats struct {
	Backend    string        `json:"backend"`
	Entries    int           `json:"entries"`
	MaxEntries int           `json:"maxEntries"`
	Hits       int64         `json:"hits"`
	Misses     int64         `json:"misses"`
	TTL        time.Duration `json:"ttl"`
}
