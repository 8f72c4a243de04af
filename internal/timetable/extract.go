package timetable

import (
	"fmt"

	"github.com/noah-isme/sma-adp-api/internal/cpsat"
)

// Extract reads decision-variable values out of a solved model and builds
// the per-class and per-teacher weekly tables. It is a pure function of
// the solved values: re-extracting from the same solution always produces
// the same report.
func Extract(bm *BuiltModel, sol cpsat.Solution) *Report {
	inst := bm.Inst
	report := &Report{
		Status:   StatusSuccess,
		Classes:  make(map[string]map[string][]string),
		Teachers: make(map[string]map[string][]string),
	}

	teacherRows := make(map[string]map[string][]string, len(inst.Teachers))
	for _, t := range inst.Teachers {
		rows := make(map[string][]string, numDays)
		for d := 0; d < numDays; d++ {
			rows[DayNames[d]] = newFreeRow(inst.HoursPerDay, inst.Settings.BreakPolicy)
		}
		teacherRows[t.Name] = rows
	}

	for c, className := range inst.Classes {
		rows := make(map[string][]string, numDays)
		for d := 0; d < numDays; d++ {
			row := newFreeRow(inst.HoursPerDay, inst.Settings.BreakPolicy)
			for hr := 0; hr < inst.HoursPerDay; hr++ {
				subjIdx := sol.Value(bm.subject[c][d][hr])
				if subjIdx < 0 {
					continue
				}
				teacherIdx := sol.Value(bm.teacherVar[c][d][hr])
				subjectName := inst.Subjects[subjIdx]
				teacherName := ""
				if teacherIdx >= 0 {
					teacherName = inst.Teachers[teacherIdx].Name
				}
				outHr := shiftedIndex(hr, inst.Settings.BreakPolicy)
				row[outHr] = fmt.Sprintf("%s (%s)", subjectName, teacherName)

				if teacherIdx >= 0 {
					tRow := teacherRows[inst.Teachers[teacherIdx].Name][DayNames[d]]
					tRow[outHr] = fmt.Sprintf("%s (%s)", subjectName, className)
				}
			}
			rows[DayNames[d]] = row
		}
		report.Classes[className] = rows
	}

	report.Teachers = teacherRows
	return report
}

// newFreeRow allocates one day's row, pre-filled "free", sized H or H+1
// under the fixed-global-break policy.
func newFreeRow(h int, bp BreakPolicy) []string {
	n := h
	if bp.Kind == BreakFixedGlobal {
		n = h + 1
	}
	row := make([]string, n)
	for i := range row {
		row[i] = "free"
	}
	return row
}

// shiftedIndex maps a solver hour index to its output row index. Under the
// fixed-global-break policy, the break hour is spliced into the row at
// global_break, so every solver hour at or after it shifts right by one.
func shiftedIndex(hr int, bp BreakPolicy) int {
	if bp.Kind == BreakFixedGlobal && hr >= bp.GlobalBreak {
		return hr + 1
	}
	return hr
}
