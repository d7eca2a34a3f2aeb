package bulletin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"zjubulletin/lib/scrapers/webplus"
)

// field order here is load-bearing: the static frontend consuming
// data.json relies on it, as does its git diff noise level

type CollegeResult struct {
	Id        string               `json:"id"`
	Name      string               `json:"name"`
	SourceURL string               `json:"source_url"`
	Items     []webplus.NoticeItem `json:"items"`
	Note      string               `json:"note,omitempty"`
}

type RunResult struct {
	UpdatedAt string          `json:"updated_at"`
	Colleges  []CollegeResult `json:"colleges"`
}

// WriteRunResult writes the aggregated document to path, creating
// parent directories as needed. Failing here is the one fatal outcome
// of a run.
func WriteRunResult(path string, result RunResult) error {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	// keep CJK text readable in the raw file
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}
