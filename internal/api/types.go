package api

import (
	"time"

	"github.com/aatumaykin/cronkeeper/internal/crontab"
)

type contentRequest struct {
	Content *string `json:"content"`
}

type contentResponse struct {
	Content string `json:"content"`
}

type messageResponse struct {
	Message string      `json:"message"`
	Errors  []lineError `json:"errors,omitempty"`
}

// lineError is one invalid line in a rejected save.
type lineError struct {
	LineNumber int    `json:"lineNumber"`
	Line       string `json:"line"`
	Field      string `json:"field,omitempty"`
	Error      string `json:"error"`
}

type validateResponse struct {
	Valid  bool        `json:"valid"`
	Errors []lineError `json:"errors"`
}

type toggleRequest struct {
	LineNumber int `json:"lineNumber"`
}

type toggleResponse struct {
	Message string `json:"message"`
	Line    string `json:"line"`
}

type scheduleResponse struct {
	From    time.Time       `json:"from"`
	Entries []crontab.Entry `json:"entries"`
}

type commandRequest struct {
	Command string `json:"command"`
}

type commandResponse struct {
	Output     string `json:"output"`
	ExitCode   int    `json:"exitCode"`
	Status     string `json:"status"`
	Truncated  bool   `json:"truncated,omitempty"`
	DurationMS int64  `json:"durationMs"`
}

type aliasInfo struct {
	Key         string   `json:"key"`
	Description string   `json:"description"`
	Argv        []string `json:"argv"`
}

type commandsResponse struct {
	Commands   []aliasInfo `json:"commands"`
	PrefixMode bool        `json:"prefixMode"`
}

type batchRequest struct {
	Commands []string `json:"commands"`
}

type batchResponse struct {
	Success bool          `json:"success"`
	Results []batchResult `json:"results"`
}

// batchResult mirrors one batch item. Stdout and Stderr are present only for
// commands that ran.
type batchResult struct {
	Command  string  `json:"command"`
	Status   string  `json:"status"`
	Stdout   *string `json:"stdout,omitempty"`
	Stderr   *string `json:"stderr,omitempty"`
	ExitCode *int    `json:"exitCode,omitempty"`
	Error    string  `json:"error,omitempty"`
}

type errorResponse struct {
	Error      string         `json:"error"`
	Kind       string         `json:"kind,omitempty"`
	Suggestion string         `json:"suggestion,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}
