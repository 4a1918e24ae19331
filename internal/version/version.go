package version

import "fmt"

var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GoVersion = "unknown"
)

func SetInfo(v, bt, gc, gv string) {
	if v != "" {
		Version = v
	}
	if bt != "" {
		BuildTime = bt
	}
	if gc != "" {
		GitCommit = gc
	}
	if gv != "" {
		GoVersion = gv
	}
}

// FormatStartupMessage is sent to the notification channel when the daemon starts.
func FormatStartupMessage() string {
	return fmt.Sprintf("agentpilot запущен\nВерсия: %s\nСборка: %s", Version, BuildTime)
}

// String returns a one-line version summary.
func String() string {
	return fmt.Sprintf("agentpilot %s (commit %s, built %s, %s)", Version, GitCommit, BuildTime, GoVersion)
}
