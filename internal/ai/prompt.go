package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// BuildPrompt renders the gather step's PromptMetrics into the single
// text prompt both provider clients send, and asks for a fenced JSON
// reply so ParseFencedJSON can recover an Insight from either vendor's
// response format.
func BuildPrompt(m PromptMetrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are reviewing delivery metrics for project %q.\n", m.ProjectID)
	fmt.Fprintf(&b, "Average cycle time: %.1f days. Latest compliance rate: %.1f%%.\n", m.AvgCycleTimeDays, m.LatestComplianceRate)

	if len(m.AssigneeDistribution) > 0 {
		b.WriteString("Assignee distribution:\n")
		for _, a := range m.AssigneeDistribution {
			fmt.Fprintf(&b, "- %s (%s): %d in progress, %d completed\n", a.Name, a.Email, a.InProgress, a.Completed)
		}
	}

	if len(m.StagnantItemTitles) > 0 {
		b.WriteString("Items with no update in 5+ days:\n")
		for _, title := range m.StagnantItemTitles {
			fmt.Fprintf(&b, "- %s\n", title)
		}
	}

	if len(m.RecentDeveloperSummaries) > 0 {
		b.WriteString("Recent developer metrics:\n")
		for _, s := range m.RecentDeveloperSummaries {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	b.WriteString("Reply with exactly one fenced json code block matching this shape: ")
	b.WriteString(`{"summary": string, "forecast": string, "suggestions": [{"title": string, "impact": string, "description": string}]}`)
	b.WriteString("\n")
	return b.String()
}

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ParseFencedJSON extracts the first ```json fenced block from raw text
// and unmarshals it into an Insight. Falls back to treating the whole
// response as JSON when no fence is present.
func ParseFencedJSON(raw string) (Insight, error) {
	body := raw
	if m := fencedJSONPattern.FindStringSubmatch(raw); m != nil {
		body = m[1]
	}

	var decoded struct {
		Summary     string `json:"summary"`
		Forecast    string `json:"forecast"`
		Suggestions []struct {
			Title       string `json:"title"`
			Impact      string `json:"impact"`
			Description string `json:"description"`
		} `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &decoded); err != nil {
		return Insight{}, fmt.Errorf("ai: parse fenced json response: %w", err)
	}

	insight := Insight{Summary: decoded.Summary, Forecast: decoded.Forecast}
	for _, s := range decoded.Suggestions {
		insight.Suggestions = append(insight.Suggestions, SuggestionDraft{
			Title:       s.Title,
			Impact:      s.Impact,
			Description: s.Description,
		})
	}
	return insight, nil
}
