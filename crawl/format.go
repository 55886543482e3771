package crawl

import "fmt"

// TruncateURL shortens a URL for display, keeping the end which is more informative.
func TruncateURL(url string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if maxLen < 4 {
		return url[:min(len(url), maxLen)]
	}
	if len(url) <= maxLen {
		return url
	}
	return "..." + url[len(url)-maxLen+3:]
}

// FormatSummary renders the per-state counts of a crawl result.
func FormatSummary(r *Result) string {
	return fmt.Sprintf("%d changed, %d unchanged, %d denied, %d failed, %d skipped",
		r.Changed, r.Unchanged, r.Denied, r.Failed, r.Skipped)
}
