package browser

// DownloadItem is the download event payload forwarded by the extension at
// the moment the browser asks for a filename suggestion.
type DownloadItem struct {
	ID        int64  `json:"id"`
	Filename  string `json:"filename"`
	URL       string `json:"url"`
	Referrer  string `json:"referrer"`
	Initiator string `json:"initiator"`
}

// Suggestion is the response to a download event. The zero value means "use
// the browser's default location".
type Suggestion struct {
	Filename       string `json:"filename,omitempty"`
	ConflictAction string `json:"conflict_action,omitempty"`
}

// IsDefault reports whether the suggestion leaves placement to the browser.
func (s Suggestion) IsDefault() bool {
	return s.Filename == ""
}

// ConflictUniquify asks the browser to de-duplicate colliding filenames.
const ConflictUniquify = "uniquify"

// TabInfo mirrors the browser tab state the extension forwards.
type TabInfo struct {
	ID       int64  `json:"id"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	OpenerID int64  `json:"opener_id,omitempty"`
	Active   bool   `json:"active,omitempty"`
}

// HistoryItem is one recent page visit used as scoring evidence when no tab
// resolves for a download.
type HistoryItem struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// KeywordStats holds the keyword counts one page reported for one rule.
type KeywordStats struct {
	TotalMatches   int            `json:"total_matches"`
	KeywordMatches map[string]int `json:"keyword_matches"`
}

// KeywordReport is the payload of a page keyword analysis event, produced by
// the content script after a page load.
type KeywordReport struct {
	TabID   int64                   `json:"tab_id"`
	URL     string                  `json:"url"`
	Title   string                  `json:"title"`
	Results map[string]KeywordStats `json:"results"`
}
