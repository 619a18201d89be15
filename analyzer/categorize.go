package analyzer

import (
	"sort"
	"strings"

	"github.com/seo-optimizer/insights/pagespeed"
)

// suggestedValuePlaceholder is shown until a remediation is requested.
const suggestedValuePlaceholder = "See recommendations"

var categoryKeywords = map[Category][]string{
	CategoryPerformance:   {"speed", "timing", "size"},
	CategorySEO:           {"seo", "meta", "description"},
	CategoryBestPractices: {"best-practices", "security", "accessibility", "errors"},
}

// matchOrder fixes the order categoriesFor reports memberships in.
var matchOrder = []Category{CategoryPerformance, CategorySEO, CategoryBestPractices}

// matches reports whether an audit identifier falls into category c.
// Best practices also claim every identifier the SEO rule does not contain,
// so an audit can belong to more than one category.
func matches(auditID string, c Category) bool {
	id := strings.ToLower(auditID)
	for _, kw := range categoryKeywords[c] {
		if strings.Contains(id, kw) {
			return true
		}
	}
	return c == CategoryBestPractices && !strings.Contains(id, "seo")
}

// CategoriesFor returns every keyword-selected category the audit belongs to.
func CategoriesFor(auditID string) []Category {
	var out []Category
	for _, c := range matchOrder {
		if matches(auditID, c) {
			out = append(out, c)
		}
	}
	return out
}

// ImpactOf classifies a score: below 0.5 is high, below 0.9 medium, the rest
// low. A missing score is medium.
func ImpactOf(score *float64) Impact {
	switch {
	case score == nil:
		return ImpactMedium
	case *score < 0.5:
		return ImpactHigh
	case *score < 0.9:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

// BuildIssues selects the audits belonging to category c and converts them
// into issues, ordered by audit identifier.
func BuildIssues(audits map[string]pagespeed.Audit, c Category) []Issue {
	ids := make([]string, 0, len(audits))
	for id := range audits {
		if matches(id, c) {
			ids = append(ids, id)
		}
	}
	return buildIssues(audits, ids, c)
}

// BuildIssuesFromRefs converts the audits a provider category references,
// skipping references to audits missing from the payload.
func BuildIssuesFromRefs(audits map[string]pagespeed.Audit, refs []pagespeed.AuditRef, c Category) []Issue {
	seen := make(map[string]bool, len(refs))
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if _, ok := audits[ref.ID]; !ok || seen[ref.ID] {
			continue
		}
		seen[ref.ID] = true
		ids = append(ids, ref.ID)
	}
	return buildIssues(audits, ids, c)
}

func buildIssues(audits map[string]pagespeed.Audit, ids []string, c Category) []Issue {
	sort.Strings(ids)
	issues := make([]Issue, 0, len(ids))
	for _, id := range ids {
		issues = append(issues, toIssue(id, audits[id], c))
	}
	return issues
}

func toIssue(id string, a pagespeed.Audit, c Category) Issue {
	score := 0.0
	if a.Score != nil {
		score = *a.Score
	}
	current := a.DisplayValue
	if current == "" {
		current = "N/A"
	}

	return Issue{
		ID:               id,
		Title:            a.Title,
		Description:      a.Description,
		Score:            score,
		DisplayValue:     a.DisplayValue,
		ScoreDisplayMode: a.ScoreDisplayMode,
		Category:         c.Label(),
		Impact:           ImpactOf(a.Score),
		Warnings:         a.StringWarnings(),
		Recommendations:  []string{a.Description},
		SimpleSummary:    a.Title,
		CurrentValue:     current,
		SuggestedValue:   suggestedValuePlaceholder,
	}
}
