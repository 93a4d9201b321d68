package api

import (
	"time"

	"github.com/starford/liblearn/internal/deckservice"
	"github.com/starford/liblearn/internal/report"
)

// DeckDetail is the full deck response type (aliased from the domain layer).
type DeckDetail = deckservice.DeckDetail

// CycleResponse lists prompts in presentation order.
type CycleResponse struct {
	Path    string   `json:"path" example:"calc.Calculator" validate:"required"`
	Prompts []string `json:"prompts" validate:"required"`
}

// BatchRequest is the request body for a batch quality run.
type BatchRequest struct {
	Paths     []string `json:"paths" example:"json,os.path" validate:"required"`
	Ascending bool     `json:"ascending"`
	Record    bool     `json:"record"`
	Full      *bool    `json:"full,omitempty"`
	Private   *bool    `json:"private,omitempty"`
	Special   *bool    `json:"special,omitempty"`
}

// ResultItem is the outcome for one path of a batch run.
type ResultItem struct {
	Rank     int     `json:"rank" example:"1" validate:"required"`
	Path     string  `json:"path" example:"json" validate:"required"`
	Quality  float64 `json:"quality" example:"87.5" validate:"required"`
	Eligible int     `json:"eligible" example:"8"`
	Cards    int     `json:"cards" example:"7"`
	Error    string  `json:"error,omitempty"`
}

// RunResponse is a batch run with its ranked results.
type RunResponse struct {
	ID        int64        `json:"id,omitempty" example:"3"`
	StartedAt time.Time    `json:"started_at"`
	Source    string       `json:"source" example:"python"`
	Options   string       `json:"options" example:"short,unresolved=drop"`
	Total     int          `json:"total" example:"2"`
	Failures  int          `json:"failures" example:"0"`
	Mean      float64      `json:"mean" example:"75"`
	Results   []ResultItem `json:"results,omitempty"`
}

// RunListResponse wraps recorded runs.
type RunListResponse struct {
	Runs []RunResponse `json:"runs" validate:"required"`
}

// HistoryItem is one recorded result of a single path.
type HistoryItem struct {
	RunID     int64     `json:"run_id" example:"3" validate:"required"`
	StartedAt time.Time `json:"started_at"`
	ResultItem
}

// HistoryResponse wraps the history of a path.
type HistoryResponse struct {
	Path    string        `json:"path" validate:"required"`
	Results []HistoryItem `json:"results" validate:"required"`
}

func resultItem(r report.Result) ResultItem {
	return ResultItem{
		Rank:     r.Rank,
		Path:     r.Path,
		Quality:  r.Quality,
		Eligible: r.Eligible,
		Cards:    r.Cards,
		Error:    r.Error,
	}
}

func runResponse(r report.Run) RunResponse {
	out := RunResponse{
		ID:        r.ID,
		StartedAt: r.StartedAt,
		Source:    r.Source,
		Options:   r.Options,
		Total:     r.Total,
		Failures:  r.Failures,
		Mean:      r.Mean,
	}
	for _, res := range r.Results {
		out.Results = append(out.Results, resultItem(res))
	}
	return out
}
