package v1

import "time"

// Traffic light values carried in feedback responses.
const (
	TrafficLightInsufficientData int32 = -2
	TrafficLightRed              int32 = -1
	TrafficLightYellow           int32 = 0
	TrafficLightGreen            int32 = 1
)

type Answer struct {
	MilestoneID      int64 `json:"milestone_id"`
	MilestoneGroupID int64 `json:"milestone_group_id"`
	Answer           int32 `json:"answer"`
}

type Session struct {
	ID                   int64     `json:"id"`
	ChildID              int64     `json:"child_id"`
	RespondentID         int64     `json:"respondent_id"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
	Expired              bool      `json:"expired"`
	Completed            bool      `json:"completed"`
	IncludedInStatistics bool      `json:"included_in_statistics"`
	SuspiciousState      string    `json:"suspicious_state"`
	Answers              []*Answer `json:"answers"`
}

type GetOrCreateCurrentSessionRequest struct {
	RespondentID int64 `json:"respondent_id"`
	ChildID      int64 `json:"child_id"`
}

func (r *GetOrCreateCurrentSessionRequest) GetRespondentID() int64 {
	if r == nil {
		return 0
	}
	return r.RespondentID
}

func (r *GetOrCreateCurrentSessionRequest) GetChildID() int64 {
	if r == nil {
		return 0
	}
	return r.ChildID
}

type RecordAnswerRequest struct {
	SessionID   int64 `json:"session_id"`
	MilestoneID int64 `json:"milestone_id"`
	Answer      int32 `json:"answer"`
}

type ClassifyGroupFeedbackRequest struct {
	ChildID   int64 `json:"child_id"`
	SessionID int64 `json:"session_id"`
	Detailed  bool  `json:"detailed"`
}

type GroupFeedbackResponse struct {
	Groups     map[int64]int32           `json:"groups"`
	Milestones map[int64]map[int64]int32 `json:"milestones,omitempty"`
}

type ClassifyMilestoneFeedbackRequest struct {
	SessionID   int64 `json:"session_id"`
	MilestoneID int64 `json:"milestone_id"`
}

type MilestoneFeedbackResponse struct {
	TrafficLight int32 `json:"traffic_light"`
}

type RunStatisticsUpdateRequest struct {
	Incremental bool `json:"incremental"`
}

type RunStatisticsUpdateResponse struct {
	RunID           string  `json:"run_id"`
	Summary         string  `json:"summary"`
	SessionsUsed    int64   `json:"sessions_used"`
	DemotedSessions []int64 `json:"demoted_sessions,omitempty"`
	Classified      int64   `json:"classified"`
}

type SetSuspiciousStateRequest struct {
	SessionID  int64 `json:"session_id"`
	Suspicious bool  `json:"suspicious"`
}

type GetMilestoneStatisticsRequest struct {
	MilestoneID int64 `json:"milestone_id"`
}

type AgeStatistic struct {
	Age    int32   `json:"age"`
	Count  int64   `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

type MilestoneStatistics struct {
	MilestoneID      int64           `json:"milestone_id"`
	GroupID          int64           `json:"group_id"`
	ExpectedAge      int32           `json:"expected_age"`
	ExpectedAgeDelta int32           `json:"expected_age_delta"`
	RelevantAgeMin   int32           `json:"relevant_age_min"`
	RelevantAgeMax   int32           `json:"relevant_age_max"`
	Ages             []*AgeStatistic `json:"ages"`
}

type ListAnswerSessionsRequest struct {
	// ChildID zero lists the sessions of every child.
	ChildID int64 `json:"child_id"`
}

type ListAnswerSessionsResponse struct {
	Sessions []*Session `json:"sessions"`
}
