package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrResultParse is returned when an agent's structured result is missing
// or malformed. Callers treat it as "not logged in".
var ErrResultParse = errors.New("session: unparseable login report")

// TaskKind identifies which bounded login task an Agent is asked to run.
type TaskKind string

const (
	TaskVerify          TaskKind = "verify"
	TaskCredentialLogin TaskKind = "credential_login"
	TaskOpenLogin       TaskKind = "open_login"
	TaskCheck           TaskKind = "check"
)

// Task is one bounded unit of work for an Agent. MaxSteps caps the number
// of browser actions the agent may take before giving up.
type Task struct {
	Kind        TaskKind
	Description string
	MaxSteps    int
	Params      map[string]string
}

// Outcome is what an agent hands back: whether it finished, and its final
// structured result serialized as JSON.
type Outcome struct {
	Done    bool
	Payload string
}

// Agent runs login tasks against a browser session. Implementations are
// opaque: the bootstrapper only reads the LoginReport in the payload.
type Agent interface {
	Run(ctx context.Context, task Task) (Outcome, error)
}

// LoginReport is the structured result every login task ends with.
type LoginReport struct {
	IsLoggedIn bool   `json:"is_logged_in"`
	Message    string `json:"message"`
}

// ParseLoginReport validates an outcome and extracts its report. An
// unfinished task, invalid JSON, or a missing or non-boolean is_logged_in
// all yield ErrResultParse.
func ParseLoginReport(out Outcome) (LoginReport, error) {
	if !out.Done || out.Payload == "" {
		return LoginReport{}, fmt.Errorf("%w: task did not finish", ErrResultParse)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(out.Payload), &raw); err != nil {
		return LoginReport{}, fmt.Errorf("%w: %v", ErrResultParse, err)
	}
	flag, ok := raw["is_logged_in"]
	if !ok {
		return LoginReport{}, fmt.Errorf("%w: is_logged_in missing", ErrResultParse)
	}

	var report LoginReport
	if err := json.Unmarshal(flag, &report.IsLoggedIn); err != nil {
		return LoginReport{}, fmt.Errorf("%w: is_logged_in: %v", ErrResultParse, err)
	}
	if msg, ok := raw["message"]; ok {
		// A malformed message is not worth failing the report over.
		_ = json.Unmarshal(msg, &report.Message)
	}
	return report, nil
}

func (r LoginReport) payload() string {
	data, _ := json.Marshal(r)
	return string(data)
}
