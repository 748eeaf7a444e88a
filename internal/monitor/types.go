package monitor

// Session is one agent conversation as reported by the gateway. Token
// counters are cumulative and may drop back to zero when a session restarts.
type Session struct {
	Key            string `json:"key"`
	Kind           string `json:"kind,omitempty"`
	DisplayName    string `json:"displayName,omitempty"`
	Channel        string `json:"channel,omitempty"`
	SessionID      string `json:"sessionId"`
	UpdatedAt      int64  `json:"updatedAt"` // epoch ms
	ThinkingLevel  string `json:"thinkingLevel,omitempty"`
	InputTokens    int64  `json:"inputTokens,omitempty"`
	OutputTokens   int64  `json:"outputTokens,omitempty"`
	TotalTokens    int64  `json:"totalTokens,omitempty"`
	ModelProvider  string `json:"modelProvider,omitempty"`
	Model          string `json:"model,omitempty"`
	ContextTokens  int64  `json:"contextTokens,omitempty"`
	AbortedLastRun bool   `json:"abortedLastRun,omitempty"`
	LastChannel    string `json:"lastChannel,omitempty"`
}

// Label is the human-facing name used in alert messages.
func (s Session) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Key
}

// Agent is a registered identity. It may have no sessions at all.
type Agent struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Label   string `json:"label,omitempty"`
	Model   string `json:"model,omitempty"`
	Channel string `json:"channel,omitempty"`
	Status  string `json:"status,omitempty"`
}

// Schedule kinds.
const (
	ScheduleCron  = "cron"
	ScheduleAt    = "at"
	ScheduleEvery = "every"
)

// Cron job run statuses.
const (
	RunStatusOK    = "ok"
	RunStatusError = "error"
)

// CronSchedule describes when a job fires.
type CronSchedule struct {
	Kind string `json:"kind"`
	Expr string `json:"expr,omitempty"`
	TZ   string `json:"tz,omitempty"`
}

// CronDelivery describes where a job's output is announced.
type CronDelivery struct {
	Mode    string `json:"mode"` // announce, none
	Channel string `json:"channel,omitempty"`
	To      string `json:"to,omitempty"`
}

// CronState is the scheduler's bookkeeping for a job.
type CronState struct {
	NextRunAtMs    int64  `json:"nextRunAtMs"`
	LastRunAtMs    int64  `json:"lastRunAtMs,omitempty"`
	LastStatus     string `json:"lastStatus,omitempty"`
	LastDurationMs *int64 `json:"lastDurationMs,omitempty"`
	LastError      string `json:"lastError,omitempty"`
}

// CronJob is a scheduled task definition. Read-only to this service.
type CronJob struct {
	ID          string        `json:"id"`
	AgentID     string        `json:"agentId"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Enabled     bool          `json:"enabled"`
	CreatedAtMs int64         `json:"createdAtMs,omitempty"`
	UpdatedAtMs int64         `json:"updatedAtMs,omitempty"`
	Schedule    CronSchedule  `json:"schedule"`
	Delivery    *CronDelivery `json:"delivery,omitempty"`
	State       CronState     `json:"state"`
}

// Failed reports whether the last run ended in error.
func (j CronJob) Failed() bool {
	return j.State.LastStatus == RunStatusError
}

// Snapshot is one poll of the gateway.
type Snapshot struct {
	Connected bool      `json:"connected"`
	Sessions  []Session `json:"sessions"`
	Agents    []Agent   `json:"agents"`
	CronJobs  []CronJob `json:"cronJobs"`
	Timestamp int64     `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// TokenTotals holds summed token counters.
type TokenTotals struct {
	Input  int64 `json:"input"`
	Output int64 `json:"output"`
	Total  int64 `json:"total"`
}

// Add returns the counter-wise sum of t and o.
func (t TokenTotals) Add(o TokenTotals) TokenTotals {
	return TokenTotals{
		Input:  t.Input + o.Input,
		Output: t.Output + o.Output,
		Total:  t.Total + o.Total,
	}
}
