package pipeline

// Stage is one of the four fixed pipeline steps, in execution order.
type Stage string

const (
	StageResearch Stage = "research"
	StageBrief    Stage = "brief"
	StageFacts    Stage = "facts"
	StageContent  Stage = "content"
)

// Stages returns the fixed execution order. Stages never repeat and never
// run backward; retries happen inside a stage call, not by re-entering it.
func Stages() []Stage {
	return []Stage{StageResearch, StageBrief, StageFacts, StageContent}
}

// Status is the lifecycle state of a workflow.
type Status string

const (
	StatusPending            Status = "pending"
	StatusQueued             Status = "queued"
	StatusResearchInProgress Status = "research_in_progress"
	StatusResearchComplete   Status = "research_complete"
	StatusBriefInProgress    Status = "brief_in_progress"
	StatusBriefComplete      Status = "brief_complete"
	StatusFactsInProgress    Status = "facts_in_progress"
	StatusFactsComplete      Status = "facts_complete"
	StatusContentInProgress  Status = "content_in_progress"
	StatusContentComplete    Status = "content_complete"
	StatusCompleted          Status = "completed"
	StatusFailed             Status = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == StatusFailed
}

// InProgress returns the in-progress status for a stage.
func (st Stage) InProgress() Status {
	switch st {
	case StageResearch:
		return StatusResearchInProgress
	case StageBrief:
		return StatusBriefInProgress
	case StageFacts:
		return StatusFactsInProgress
	default:
		return StatusContentInProgress
	}
}

// Complete returns the complete status for a stage.
func (st Stage) Complete() Status {
	switch st {
	case StageResearch:
		return StatusResearchComplete
	case StageBrief:
		return StatusBriefComplete
	case StageFacts:
		return StatusFactsComplete
	default:
		return StatusContentComplete
	}
}

// statusRank orders the linear progression; failed is outside the line and
// has no rank.
var statusRank = map[Status]int{
	StatusPending:            0,
	StatusQueued:             0,
	StatusResearchInProgress: 1,
	StatusResearchComplete:   2,
	StatusBriefInProgress:    3,
	StatusBriefComplete:      4,
	StatusFactsInProgress:    5,
	StatusFactsComplete:      6,
	StatusContentInProgress:  7,
	StatusContentComplete:    8,
	StatusCompleted:          9,
}

// reached reports whether s has reached or passed the given milestone in the
// linear progression.
func (s Status) reached(milestone Status) bool {
	rank, ok := statusRank[s]
	if !ok {
		return false
	}
	return rank >= statusRank[milestone]
}
