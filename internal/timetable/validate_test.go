package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseInstance() Instance {
	return Instance{
		Classes:     []string{"10A"},
		Subjects:    []string{"math", "art"},
		HoursPerDay: 6,
		Teachers: []Teacher{
			{ID: "t1", Name: "Jane", MaxWeeklyHours: 30, QualifiedSubjects: []string{"math", "art"}},
		},
		ClassHours: map[string]map[string]int{
			"10A": {"math": 4, "art": 2},
		},
		Settings: Settings{
			MaxHoursPerDayPerSubject: 2,
			BreakPolicy: BreakPolicy{
				Kind:                BreakSlidingWindow,
				MaxConsecutiveHours: 3,
				BreakWindowStart:    2,
				BreakWindowEnd:      3,
			},
		},
	}
}

func TestValidateAcceptsWellFormedInstance(t *testing.T) {
	inst := baseInstance()
	assert.NoError(t, Validate(&inst))
}

func TestValidateRejectsUnknownQualifiedSubject(t *testing.T) {
	inst := baseInstance()
	inst.Teachers[0].QualifiedSubjects = append(inst.Teachers[0].QualifiedSubjects, "chemistry")

	err := Validate(&inst)
	require.Error(t, err)
	ve, ok := err.(*ValidationError)
	require.True(t, ok)
	found := false
	for _, v := range ve.Violations {
		if v.Locator == "teachers[0].qualified_subjects[2]" {
			found = true
		}
	}
	assert.True(t, found, "expected a violation for the unknown qualified subject")
}

func TestValidateRejectsClassHoursReferencingUnknownClass(t *testing.T) {
	inst := baseInstance()
	inst.ClassHours["10B"] = map[string]int{"math": 1}

	err := Validate(&inst)
	require.Error(t, err)
}

func TestValidateRejectsOverCapacityWeeklyHours(t *testing.T) {
	inst := baseInstance()
	inst.ClassHours["10A"]["math"] = 100

	err := Validate(&inst)
	require.Error(t, err)
	ve := err.(*ValidationError)
	assert.Contains(t, ve.Error(), "exceeds weekly capacity")
}

func TestValidateRejectsNonPositiveHoursPerDay(t *testing.T) {
	inst := baseInstance()
	inst.HoursPerDay = 0

	err := Validate(&inst)
	require.Error(t, err)
}

func TestValidateSlidingWindowBounds(t *testing.T) {
	inst := baseInstance()
	inst.Settings.BreakPolicy.BreakWindowStart = 5
	inst.Settings.BreakPolicy.BreakWindowEnd = 1

	err := Validate(&inst)
	require.Error(t, err)
}

func TestValidateFixedGlobalBreakRange(t *testing.T) {
	inst := baseInstance()
	inst.Settings.BreakPolicy = BreakPolicy{Kind: BreakFixedGlobal, GlobalBreak: 0}

	err := Validate(&inst)
	require.Error(t, err)
}

func TestValidateFixedGlobalBreakAccepted(t *testing.T) {
	inst := baseInstance()
	inst.Settings.BreakPolicy = BreakPolicy{Kind: BreakFixedGlobal, GlobalBreak: 3}

	assert.NoError(t, Validate(&inst))
}

func TestValidateRejectsNegativeWeights(t *testing.T) {
	inst := baseInstance()
	inst.Settings.WeightBlock = -1

	err := Validate(&inst)
	require.Error(t, err)
	ve := err.(*ValidationError)
	assert.Contains(t, ve.Error(), "weight_block")
}

func TestValidateRejectsNegativePreferBlockSubjectWeight(t *testing.T) {
	inst := baseInstance()
	inst.PreferBlockSubjects = map[string]int{"math": -5}

	err := Validate(&inst)
	require.Error(t, err)
}

func TestValidateCollectsMultipleViolations(t *testing.T) {
	inst := baseInstance()
	inst.HoursPerDay = 0
	inst.Settings.WeightBlock = -1

	err := Validate(&inst)
	require.Error(t, err)
	ve := err.(*ValidationError)
	assert.GreaterOrEqual(t, len(ve.Violations), 2)
}

func TestValidationErrorAsAppError(t *testing.T) {
	inst := baseInstance()
	inst.HoursPerDay = 0

	err := Validate(&inst)
	ve := err.(*ValidationError)
	appErr := ve.AsAppError()
	require.NotNil(t, appErr)
	assert.Contains(t, appErr.Message, "hours_per_day")
}
