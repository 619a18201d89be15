package analyzer

import (
	"time"

	"github.com/seo-optimizer/insights/pagespeed"
)

var defaultCategoryDescriptions = map[string]string{
	"performance":   "How quickly the page loads and becomes usable.",
	"seo":           "How well search engines can crawl, index and present the page.",
	"accessibility": "How usable the page is for people relying on assistive technology.",
	"bestPractices": "Security, modern web standards and runtime errors.",
}

// outputCategoryKeys maps provider category ids to report keys.
var outputCategoryKeys = map[string]string{
	pagespeed.CategoryPerformance:   "performance",
	pagespeed.CategorySEO:           "seo",
	pagespeed.CategoryAccessibility: "accessibility",
	pagespeed.CategoryBestPractices: "bestPractices",
}

// BuildResult turns a Lighthouse result into the report for websiteURL.
func BuildResult(websiteURL string, lr *pagespeed.LighthouseResult, now time.Time) *AnalysisResult {
	raw := rawScores{
		performance:   lr.CategoryScore(pagespeed.CategoryPerformance),
		accessibility: lr.CategoryScore(pagespeed.CategoryAccessibility),
		seo:           lr.CategoryScore(pagespeed.CategorySEO),
		bestPractices: lr.CategoryScore(pagespeed.CategoryBestPractices),
	}

	result := &AnalysisResult{
		WebsiteURL: websiteURL,
		Timestamp:  now,
		Scores: Scores{
			Overall:       WeightedOverall(raw.performance, raw.accessibility, raw.seo, raw.bestPractices),
			Performance:   percent(raw.performance),
			SEO:           percent(raw.seo),
			Accessibility: percent(raw.accessibility),
			BestPractices: percent(raw.bestPractices),
		},
		Audits: Audits{
			Performance:   BuildIssues(lr.Audits, CategoryPerformance),
			SEO:           BuildIssues(lr.Audits, CategorySEO),
			Accessibility: BuildIssuesFromRefs(lr.Audits, lr.Categories[pagespeed.CategoryAccessibility].AuditRefs, CategoryAccessibility),
			BestPractices: BuildIssues(lr.Audits, CategoryBestPractices),
		},
		CategoryDescriptions: categoryDescriptions(lr),
		raw:                  raw,
	}

	if lr.RuntimeError != nil && lr.RuntimeError.Code != "" {
		result.Note = "Detailed analysis incomplete: " + lr.RuntimeError.Message
	}
	return result
}

func categoryDescriptions(lr *pagespeed.LighthouseResult) map[string]string {
	out := make(map[string]string, len(defaultCategoryDescriptions))
	for k, v := range defaultCategoryDescriptions {
		out[k] = v
	}
	for id, cat := range lr.Categories {
		if key, ok := outputCategoryKeys[id]; ok && cat.Description != "" {
			out[key] = cat.Description
		}
	}
	return out
}

// StatusOverall is the overall score reported by the status endpoint.
func (r *AnalysisResult) StatusOverall() int {
	return AverageOverall(r.raw.performance, r.raw.accessibility, r.raw.seo, r.raw.bestPractices)
}
