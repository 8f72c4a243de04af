// Package timetable builds and solves the weekly class/teacher timetable
// model: a fixed pipeline of instance validation, CP-SAT-style model
// construction, solver invocation, and solution extraction.
package timetable

// DayNames is the fixed Monday-through-Friday ordering used by every
// timetable table, in both input traversal order and report output.
var DayNames = [5]string{"Mo", "Tu", "We", "Th", "Fr"}

const numDays = 5

// BreakPolicyKind selects which of the two mutually exclusive break
// policies a Settings value carries.
type BreakPolicyKind string

const (
	// BreakSlidingWindow forces a free period inside a configured window
	// every class-day and bounds the longest run of occupied periods.
	BreakSlidingWindow BreakPolicyKind = "sliding"
	// BreakFixedGlobal inserts one shared break hour for every class and
	// teacher at a fixed hour index, plus a single-block-per-day rule.
	BreakFixedGlobal BreakPolicyKind = "fixed_global"
)

// BreakPolicy carries the parameters for exactly one of the two policy
// kinds; which fields are meaningful is determined by Kind.
type BreakPolicy struct {
	Kind BreakPolicyKind

	// Sliding-window fields.
	MaxConsecutiveHours int
	BreakWindowStart    int
	BreakWindowEnd      int

	// Fixed-global-break field.
	GlobalBreak int
}

// Settings are the operator-tunable knobs that shape the objective and the
// break policy.
type Settings struct {
	PreferEarlyHours         bool
	AllowBlockScheduling     bool
	MaxHoursPerDayPerSubject int
	BreakPolicy              BreakPolicy
	WeightBlock              int
	WeightTimeOfDay          int
	MaxSolveSeconds          int
}

// Teacher is one roster entry: a weekly hour cap and the subjects they may
// be assigned to teach.
type Teacher struct {
	ID                string
	Name              string
	MaxWeeklyHours    int
	QualifiedSubjects []string
}

// Qualifies reports whether the teacher may be assigned the given subject.
func (t Teacher) Qualifies(subject string) bool {
	for _, s := range t.QualifiedSubjects {
		if s == subject {
			return true
		}
	}
	return false
}

// Instance is the fully materialized, immutable problem input. Classes and
// Subjects orderings are part of the contract: a subject's index is its
// position in Subjects.
type Instance struct {
	Classes     []string
	Subjects    []string
	HoursPerDay int
	Teachers    []Teacher

	// ClassHours[class][subject] is the required weekly hour count.
	ClassHours map[string]map[string]int

	// ParallelLimits[subject] bounds how many classes may run that subject
	// in the same (day, hour); absent entries are unlimited.
	ParallelLimits map[string]int

	// PreferBlockSubjects[subject] overrides Settings.WeightBlock for that
	// subject's block-scheduling bonus.
	PreferBlockSubjects map[string]int

	Settings Settings
}

// subjectIndex returns the position of subject in i.Subjects, or -1.
func (inst *Instance) subjectIndex(subject string) int {
	for idx, s := range inst.Subjects {
		if s == subject {
			return idx
		}
	}
	return -1
}

// teacherIndex returns the position of a teacher by ID in i.Teachers, or -1.
func (inst *Instance) teacherIndex(id string) int {
	for idx, t := range inst.Teachers {
		if t.ID == id {
			return idx
		}
	}
	return -1
}

// Report is the Solution Extractor's output: a status plus per-class and
// per-teacher weekly tables keyed by day name.
type Report struct {
	Status   string
	Classes  map[string]map[string][]string
	Teachers map[string]map[string][]string
}

const (
	StatusSuccess    = "success"
	StatusNoSolution = "no_solution"
)
