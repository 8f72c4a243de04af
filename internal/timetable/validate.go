package timetable

import (
	"fmt"
	"strings"

	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
)

// Violation is one rejected aspect of a candidate Instance, carrying a
// human-readable locator (e.g. "teachers[2].qualified_subjects[1]").
type Violation struct {
	Locator string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Locator, v.Message)
}

// ValidationError collects every violation found in one pass; the
// validator never stops at the first one.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return "invalid instance: " + strings.Join(parts, "; ")
}

// AsAppError wraps a ValidationError into the teacher's error taxonomy for
// the HTTP boundary, keeping the first violation as the headline message.
func (e *ValidationError) AsAppError() *appErrors.Error {
	msg := "invalid instance"
	if len(e.Violations) > 0 {
		msg = e.Violations[0].String()
	}
	return appErrors.Clone(appErrors.ErrValidation, msg)
}

// Validate rejects malformed instances purely locally, before any decision
// variable is allocated. It never calls the solver.
func Validate(inst *Instance) error {
	var violations []Violation

	classSet := make(map[string]bool, len(inst.Classes))
	for _, c := range inst.Classes {
		classSet[c] = true
	}
	subjectSet := make(map[string]bool, len(inst.Subjects))
	for _, s := range inst.Subjects {
		subjectSet[s] = true
	}

	if inst.HoursPerDay < 1 {
		violations = append(violations, Violation{"hours_per_day", "must be >= 1"})
	}

	for ti, t := range inst.Teachers {
		for qi, q := range t.QualifiedSubjects {
			if !subjectSet[q] {
				violations = append(violations, Violation{
					fmt.Sprintf("teachers[%d].qualified_subjects[%d]", ti, qi),
					fmt.Sprintf("subject %q is not in subjects", q),
				})
			}
		}
	}

	for c, subjectHours := range inst.ClassHours {
		if !classSet[c] {
			violations = append(violations, Violation{
				fmt.Sprintf("class_hours[%s]", c),
				"references a class not in classes",
			})
			continue
		}
		total := 0
		for s, n := range subjectHours {
			if !subjectSet[s] {
				violations = append(violations, Violation{
					fmt.Sprintf("class_hours[%s][%s]", c, s),
					fmt.Sprintf("subject %q is not in subjects", s),
				})
				continue
			}
			total += n
		}
		if cap := 5 * inst.HoursPerDay; total > cap {
			violations = append(violations, Violation{
				fmt.Sprintf("class_hours[%s]", c),
				fmt.Sprintf("total required hours %d exceeds weekly capacity %d", total, cap),
			})
		}
	}

	if inst.Settings.MaxHoursPerDayPerSubject <= 0 {
		violations = append(violations, Violation{
			"settings.max_hours_per_day_per_subject",
			"must be > 0",
		})
	}

	violations = append(violations, validateBreakPolicy(inst)...)
	violations = append(violations, validateWeights(inst)...)

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func validateBreakPolicy(inst *Instance) []Violation {
	var violations []Violation
	h := inst.HoursPerDay
	bp := inst.Settings.BreakPolicy
	inRange := func(v int) bool { return v >= 0 && v < h }

	switch bp.Kind {
	case BreakSlidingWindow:
		if !inRange(bp.BreakWindowStart) || !inRange(bp.BreakWindowEnd) || bp.BreakWindowStart > bp.BreakWindowEnd {
			violations = append(violations, Violation{
				"settings.break_policy.break_window",
				fmt.Sprintf("window [%d, %d] must fall inside [0, %d)", bp.BreakWindowStart, bp.BreakWindowEnd, h),
			})
		}
		if bp.MaxConsecutiveHours < 1 {
			violations = append(violations, Violation{
				"settings.break_policy.max_consecutive_hours",
				"must be >= 1",
			})
		}
	case BreakFixedGlobal:
		if bp.GlobalBreak <= 0 || bp.GlobalBreak >= h {
			violations = append(violations, Violation{
				"settings.break_policy.global_break",
				fmt.Sprintf("must fall in (0, %d)", h),
			})
		}
	default:
		violations = append(violations, Violation{
			"settings.break_policy.kind",
			fmt.Sprintf("unknown break policy kind %q", bp.Kind),
		})
	}
	return violations
}

// validateWeights enforces the Settings.Py weight-non-negativity rule
// (weight_block, weight_time_of_day) at the boundary into the Model
// Builder, independent of whichever settings-write endpoint let a
// malformed row through.
func validateWeights(inst *Instance) []Violation {
	var violations []Violation
	if inst.Settings.WeightBlock < 0 {
		violations = append(violations, Violation{"settings.weight_block", "must be >= 0"})
	}
	if inst.Settings.WeightTimeOfDay < 0 {
		violations = append(violations, Violation{"settings.weight_time_of_day", "must be >= 0"})
	}
	for s, w := range inst.PreferBlockSubjects {
		if w < 0 {
			violations = append(violations, Violation{
				fmt.Sprintf("prefer_block_subjects[%s]", s),
				"must be >= 0",
			})
		}
	}
	return violations
}
