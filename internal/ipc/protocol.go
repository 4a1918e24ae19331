package ipc

import (
	"github.com/aatumaykin/agentpilot/internal/dispatch"
	"github.com/aatumaykin/agentpilot/internal/scheduler"
	"github.com/aatumaykin/agentpilot/internal/session"
)

// Request types.
const (
	TypeSubmit = "submit"
	TypeStatus = "status"
	TypeStart  = "start"
	TypeStop   = "stop"
)

// Request структура запроса от CLI
type Request struct {
	Type string `json:"type"`

	// submit
	Text string `json:"text,omitempty"`
	Wait bool   `json:"wait,omitempty"` // ждать завершения доставки

	// start
	Background     bool   `json:"background,omitempty"`
	Pro            bool   `json:"pro,omitempty"`
	IDE            string `json:"ide,omitempty"`
	PollIntervalMS int    `json:"poll_interval_ms,omitempty"`
}

// Response структура ответа CLI
type Response struct {
	Success       bool            `json:"success"`
	Error         string          `json:"error,omitempty"`
	CommandID     string          `json:"command_id,omitempty"`
	CommandStatus dispatch.Status `json:"command_status,omitempty"`
	SessionID     uint64          `json:"session_id,omitempty"`
	Status        *Status         `json:"status,omitempty"`
}

// Status is the daemon state reported by the status request.
type Status struct {
	Version   string            `json:"version" yaml:"version"`
	Session   session.Snapshot  `json:"session" yaml:"session"`
	Queue     dispatch.Snapshot `json:"queue" yaml:"queue"`
	Scheduler scheduler.Status  `json:"scheduler" yaml:"scheduler"`
}
