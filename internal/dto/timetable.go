package dto

// TeacherInput is one roster entry in a timetable solve request.
type TeacherInput struct {
	ID                string   `json:"id" validate:"required"`
	Name              string   `json:"name" validate:"required"`
	MaxWeeklyHours    int      `json:"maxWeeklyHours" validate:"required,min=1"`
	QualifiedSubjects []string `json:"qualifiedSubjects" validate:"required,min=1,dive,required"`
}

// BreakPolicyInput carries the parameters for exactly one of the two break
// policy kinds, selected by Kind.
type BreakPolicyInput struct {
	Kind                string `json:"kind" validate:"required,oneof=sliding fixed_global"`
	MaxConsecutiveHours int    `json:"maxConsecutiveHours,omitempty"`
	BreakWindowStart    int    `json:"breakWindowStart"`
	BreakWindowEnd      int    `json:"breakWindowEnd"`
	GlobalBreak         int    `json:"globalBreak,omitempty"`
}

// SettingsInput is the operator-tunable objective/break configuration.
type SettingsInput struct {
	PreferEarlyHours         bool             `json:"preferEarlyHours"`
	AllowBlockScheduling     bool             `json:"allowBlockScheduling"`
	MaxHoursPerDayPerSubject int              `json:"maxHoursPerDayPerSubject" validate:"required,min=1"`
	BreakPolicy              BreakPolicyInput `json:"breakPolicy" validate:"required"`
	WeightBlock              int              `json:"weightBlock" validate:"min=0"`
	WeightTimeOfDay          int              `json:"weightTimeOfDay" validate:"min=0"`
	MaxSolveSeconds          int              `json:"maxSolveSeconds" validate:"omitempty,min=1"`
}

// InstanceInput is the fully materialized solve request payload.
type InstanceInput struct {
	Classes             []string                   `json:"classes" validate:"required,min=1,dive,required"`
	Subjects            []string                   `json:"subjects" validate:"required,min=1,dive,required"`
	HoursPerDay         int                        `json:"hoursPerDay" validate:"required,min=1"`
	Teachers            []TeacherInput             `json:"teachers" validate:"required,min=1,dive"`
	ClassHours          map[string]map[string]int `json:"classHours" validate:"required"`
	ParallelLimits      map[string]int             `json:"parallelLimits"`
	PreferBlockSubjects map[string]int             `json:"preferBlockSubjects"`
	Settings            SettingsInput              `json:"settings" validate:"required"`
}

// CreateTimetableRunRequest starts an asynchronous solve for one school/term.
type CreateTimetableRunRequest struct {
	SchoolID string        `json:"schoolId" validate:"required"`
	TermID   string        `json:"termId" validate:"required"`
	Instance InstanceInput `json:"instance" validate:"required"`
}

// TimetableReport mirrors timetable.Report for the HTTP boundary.
type TimetableReport struct {
	Status   string                         `json:"status"`
	Classes  map[string]map[string][]string `json:"classes,omitempty"`
	Teachers map[string]map[string][]string `json:"teachers,omitempty"`
}

// TimetableRunResponse is returned from both the creation call and the
// polling endpoint.
type TimetableRunResponse struct {
	ID      string           `json:"id"`
	Status  string           `json:"status"`
	Version int              `json:"version,omitempty"`
	Report  *TimetableReport `json:"report,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// SubjectParallelLimitRequest upserts one subject's parallel-class cap.
type SubjectParallelLimitRequest struct {
	SubjectID   string `json:"subjectId" validate:"required"`
	MaxParallel int    `json:"maxParallel" validate:"required,min=1"`
}

// PreferBlockSubjectRequest upserts one subject's block-scheduling weight.
type PreferBlockSubjectRequest struct {
	SubjectID string `json:"subjectId" validate:"required"`
	Weight    int    `json:"weight" validate:"min=0"`
}
