// Package imagegen provides generation dispatch and task polling.
//
// status.go normalizes the provider's task status payloads into one
// canonical TaskStatus value. The provider reports status fields
// sometimes at the top level and sometimes nested under "data"; this is
// the only place that knows about both shapes.
package imagegen

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Provider status flags. Anything other than the three known flags is
// treated as still-pending.
const (
	// FlagPending means the task has not reached a terminal state.
	FlagPending = 0

	// FlagSuccess means the task finished and a result URL should be present.
	FlagSuccess = 1

	// FlagFailed means the task failed during generation.
	FlagFailed = 2

	// FlagRejected means the provider rejected the task (moderation,
	// malformed input).
	FlagRejected = 3
)

// Polling errors.
var (
	// ErrTaskFailed wraps a provider-reported terminal failure.
	ErrTaskFailed = errors.New("imagegen: generation task failed")

	// ErrMissingResultURL is returned when a task reports success but
	// carries no result URL. Success without a URL is a failure, never a
	// silent pass.
	ErrMissingResultURL = errors.New("imagegen: task succeeded but no result URL was returned")

	// ErrPollTimeout is returned when the polling budget is exhausted.
	// The message is distinct so callers can tell "still might succeed"
	// from "definitely failed".
	ErrPollTimeout = errors.New("Timeout waiting for results")
)

// TaskStatus is the canonical view of one generation task's state.
type TaskStatus struct {
	// TaskID echoes the provider's task identifier when present.
	TaskID string

	// Flag is one of the Flag* constants above.
	Flag int

	// Message carries the provider's error description for failed tasks.
	Message string

	// ResultURL is the generated image URL. Only trustworthy when Flag
	// is FlagSuccess.
	ResultURL string
}

// Terminal reports whether no further transition can occur.
func (s *TaskStatus) Terminal() bool {
	return s.Flag == FlagSuccess || s.Flag == FlagFailed || s.Flag == FlagRejected
}

// statusResponse holds result URLs wherever the provider chose to put them.
type statusResponse struct {
	ResultURLs     []string `json:"resultUrls"`
	ResultImageURL string   `json:"resultImageUrl"`
}

func (r *statusResponse) url() string {
	if r == nil {
		return ""
	}
	if len(r.ResultURLs) > 0 {
		return r.ResultURLs[0]
	}
	return r.ResultImageURL
}

// statusData is the nested "data" object of the record-info payload.
type statusData struct {
	TaskID         string          `json:"taskId"`
	SuccessFlag    *int            `json:"successFlag"`
	ErrorMessage   string          `json:"errorMessage"`
	Response       *statusResponse `json:"response"`
	ResultImageURL string          `json:"resultImageUrl"`
}

// statusEnvelope is the outer record-info payload. Older provider
// responses put successFlag and response at the top level.
type statusEnvelope struct {
	Msg          string          `json:"msg"`
	TaskID       string          `json:"taskId"`
	SuccessFlag  *int            `json:"successFlag"`
	ErrorMessage string          `json:"errorMessage"`
	Response     *statusResponse `json:"response"`
	Data         *statusData     `json:"data"`
}

// ParseStatusPayload normalizes a raw record-info payload into a
// TaskStatus. Unknown or absent flags map to FlagPending so the poller
// keeps waiting rather than misreading an intermediate state.
func ParseStatusPayload(raw []byte) (*TaskStatus, error) {
	var env statusEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("imagegen: malformed status payload: %w", err)
	}

	status := &TaskStatus{Flag: FlagPending}

	if env.Data != nil {
		status.TaskID = env.Data.TaskID
		if env.Data.SuccessFlag != nil {
			status.Flag = *env.Data.SuccessFlag
		}
		status.Message = env.Data.ErrorMessage
		status.ResultURL = env.Data.Response.url()
		if status.ResultURL == "" {
			status.ResultURL = env.Data.ResultImageURL
		}
	}

	// Top-level fields fill whatever the nested object left empty.
	if status.TaskID == "" {
		status.TaskID = env.TaskID
	}
	if env.Data == nil || env.Data.SuccessFlag == nil {
		if env.SuccessFlag != nil {
			status.Flag = *env.SuccessFlag
		}
	}
	if status.ResultURL == "" {
		status.ResultURL = env.Response.url()
	}
	if status.Message == "" {
		status.Message = env.ErrorMessage
	}
	if status.Message == "" && status.Flag != FlagSuccess {
		status.Message = env.Msg
	}

	return status, nil
}
