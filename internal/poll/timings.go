package poll

import "time"

// Timings are the pauses between loop stages.
type Timings struct {
	AfterAccept          time.Duration
	AfterNewConversation time.Duration
	AfterTabSwitch       time.Duration
}

// DefaultTimings are the production stage pauses.
var DefaultTimings = Timings{
	AfterAccept:          500 * time.Millisecond,
	AfterNewConversation: 1000 * time.Millisecond,
	AfterTabSwitch:       3000 * time.Millisecond,
}

// DefaultPollInterval is the simple loop period.
const DefaultPollInterval = 1000 * time.Millisecond
