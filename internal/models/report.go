package models

import (
	"time"
)

// PipelineState identifies the stage a report request reached.
type PipelineState string

const (
	StateIdle              PipelineState = "idle"
	StateCategorySelecting PipelineState = "category_selecting"
	StateRetrieving        PipelineState = "retrieving"
	StateFiltering         PipelineState = "filtering"
	StateReportGenerating  PipelineState = "report_generating"
	StateReasoningProvided PipelineState = "reasoning_provided"
	StatePresenting        PipelineState = "presenting"
)

// MarketImpact is the projected index impact derived from the closest
// historical precedent. Impacts are decimals (0.02 means a 2% gain).
type MarketImpact struct {
	HistoricalEvent string  `json:"historical_event"`
	MarketIndex     string  `json:"market_index"`
	Impact1D        float64 `json:"impact_1d"`
	Impact1W        float64 `json:"impact_1w"`
	Impact1M        float64 `json:"impact_1m"`
}

// PipelineResult is the outcome of one report request. When the pipeline
// terminates early, Notice carries the plain-language message and Report
// and Articles are empty; Presenting always renders from this struct and
// never fails.
type PipelineResult struct {
	ReportID   string              `json:"report_id,omitempty"`
	State      PipelineState       `json:"state"`
	Notice     string              `json:"notice,omitempty"`
	Report     string              `json:"report,omitempty"`
	Impact     *MarketImpact       `json:"impact,omitempty"`
	Categories []CategorySelection `json:"categories,omitempty"`
	Articles   []RelevantArticle   `json:"articles,omitempty"`
}

// CachedReport is a generated report persisted to the local store so the
// PDF endpoint can re-render it after the request completes.
type CachedReport struct {
	ID          string            `json:"id" badgerhold:"key"`
	Input       string            `json:"input"`
	Report      string            `json:"report"`
	Articles    []RelevantArticle `json:"articles"`
	GeneratedAt time.Time         `json:"generated_at"`
}
