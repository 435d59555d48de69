package models

// GenerationJob is the status message published for an asynchronous generation.
type GenerationJob struct {
	Type    string `json:"type"` // always "job_status"
	JobID   string `json:"job_id"`
	SkillID int64  `json:"skill_id"`
	Status  string `json:"status"` // queued|processing|done|failed
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Idea    *Idea  `json:"idea,omitempty"`
}

const (
	JobQueued     = "queued"
	JobProcessing = "processing"
	JobDone       = "done"
	JobFailed     = "failed"
)
