package timetable

import (
	"fmt"

	"github.com/noah-isme/sma-adp-api/internal/cpsat"
)

// BuiltModel holds the cpsat.Model plus every decision variable the
// Solution Extractor needs to read back, addressed by dense index
// arithmetic over (classIdx, day, hour) per the Design Note preferring
// arrays over nested maps.
type BuiltModel struct {
	M    *cpsat.Model
	Inst *Instance

	subject      [][][]*cpsat.IntVar // [classIdx][day][hour]
	occupied     [][][]cpsat.BoolVar
	teacherVar   [][][]*cpsat.IntVar
	constTeacher map[[2]int]*cpsat.IntVar // key: {classIdx, subjectIdx}

	reify *cpsat.Reifier
}

// Build constructs the CP-SAT-style model in the fixed order the Model
// Builder specifies: variable allocation and occupancy link first, then
// each hard-constraint family, then the break policy, then the soft
// objective terms.
func Build(inst *Instance) (*BuiltModel, error) {
	m := cpsat.NewModel()
	numClasses := len(inst.Classes)
	numSubjects := len(inst.Subjects)
	numTeachers := len(inst.Teachers)
	h := inst.HoursPerDay

	bm := &BuiltModel{
		M:            m,
		Inst:         inst,
		subject:      make([][][]*cpsat.IntVar, numClasses),
		occupied:     make([][][]cpsat.BoolVar, numClasses),
		teacherVar:   make([][][]*cpsat.IntVar, numClasses),
		constTeacher: make(map[[2]int]*cpsat.IntVar),
		reify:        cpsat.NewReifier(m),
	}

	for c := 0; c < numClasses; c++ {
		bm.subject[c] = make([][]*cpsat.IntVar, numDays)
		bm.occupied[c] = make([][]cpsat.BoolVar, numDays)
		bm.teacherVar[c] = make([][]*cpsat.IntVar, numDays)
		for d := 0; d < numDays; d++ {
			bm.subject[c][d] = make([]*cpsat.IntVar, h)
			bm.occupied[c][d] = make([]cpsat.BoolVar, h)
			bm.teacherVar[c][d] = make([]*cpsat.IntVar, h)
			for hr := 0; hr < h; hr++ {
				sv := m.NewIntVar(-1, numSubjects-1, fmt.Sprintf("subject[%d,%d,%d]", c, d, hr))
				occ := m.NewBoolVar(fmt.Sprintf("occupied[%d,%d,%d]", c, d, hr))
				tv := m.NewIntVar(-1, numTeachers-1, fmt.Sprintf("teacher[%d,%d,%d]", c, d, hr))
				bm.subject[c][d][hr] = sv
				bm.occupied[c][d][hr] = occ
				bm.teacherVar[c][d][hr] = tv

				// I1, I2: occupancy link for subject and teacher.
				m.Add(cpsat.NewExpr(sv), cpsat.OpGE, 0).OnlyEnforceIf(occ.Lit())
				m.Add(cpsat.NewExpr(sv), cpsat.OpEQ, -1).OnlyEnforceIf(occ.Not())
				m.Add(cpsat.NewExpr(tv), cpsat.OpGE, 0).OnlyEnforceIf(occ.Lit())
				m.Add(cpsat.NewExpr(tv), cpsat.OpEQ, -1).OnlyEnforceIf(occ.Not())
			}
		}
	}

	for c, className := range inst.Classes {
		for s := range inst.ClassHours[className] {
			sIdx := inst.subjectIndex(s)
			if sIdx < 0 {
				continue // rejected by Validate before Build is ever called
			}
			bm.constTeacher[[2]int{c, sIdx}] = m.NewIntVar(0, numTeachers-1, fmt.Sprintf("constTeacher[%d,%s]", c, s))
		}
	}

	bm.buildConstantTeacher()
	bm.buildSubjectAllowedInClass()
	bm.buildExactWeeklyCount()
	bm.buildParallelLimit()
	bm.buildTeacherQualification()
	bm.buildTeacherUniqueness()
	bm.buildTeacherWeeklyCap()
	bm.buildDailySubjectCap()
	bm.buildBreakPolicy()
	bm.buildObjective()

	return bm, nil
}

func (bm *BuiltModel) isSubj(c, d, hr, subjectIdx int) cpsat.BoolVar {
	return bm.reify.Eq(bm.subject[c][d][hr], subjectIdx, fmt.Sprintf("isSubj[%d,%d,%d,%d]", c, d, hr, subjectIdx))
}

func (bm *BuiltModel) isTeacher(c, d, hr, teacherIdx int) cpsat.BoolVar {
	return bm.reify.Eq(bm.teacherVar[c][d][hr], teacherIdx, fmt.Sprintf("isTeacher[%d,%d,%d,%d]", c, d, hr, teacherIdx))
}

// buildConstantTeacher installs I4: whenever subject s is scheduled at
// (c,d,h), the slot's teacher equals the class's constant teacher for s.
func (bm *BuiltModel) buildConstantTeacher() {
	inst := bm.Inst
	for c, className := range inst.Classes {
		for s := range inst.ClassHours[className] {
			sIdx := inst.subjectIndex(s)
			ct := bm.constTeacher[[2]int{c, sIdx}]
			for d := 0; d < numDays; d++ {
				for hr := 0; hr < inst.HoursPerDay; hr++ {
					b := bm.isSubj(c, d, hr, sIdx)
					diff := cpsat.LinearExpr{
						Vars:   []*cpsat.IntVar{bm.teacherVar[c][d][hr], ct},
						Coeffs: []int{1, -1},
					}
					bm.M.Add(diff, cpsat.OpEQ, 0).OnlyEnforceIf(b.Lit())
				}
			}
		}
	}
}

// buildSubjectAllowedInClass installs I10: a subject never appears in a
// class's timetable unless it is in that class's required hours.
func (bm *BuiltModel) buildSubjectAllowedInClass() {
	inst := bm.Inst
	for c, className := range inst.Classes {
		required := inst.ClassHours[className]
		for sIdx, s := range inst.Subjects {
			if _, ok := required[s]; ok {
				continue
			}
			for d := 0; d < numDays; d++ {
				for hr := 0; hr < inst.HoursPerDay; hr++ {
					b := bm.isSubj(c, d, hr, sIdx)
					bm.M.AddImplication(bm.occupied[c][d][hr].Lit(), b.Not())
				}
			}
		}
	}
}

// buildExactWeeklyCount installs I3.
func (bm *BuiltModel) buildExactWeeklyCount() {
	inst := bm.Inst
	for c, className := range inst.Classes {
		for s, n := range inst.ClassHours[className] {
			if n <= 0 {
				continue
			}
			sIdx := inst.subjectIndex(s)
			var bools []cpsat.BoolVar
			for d := 0; d < numDays; d++ {
				for hr := 0; hr < inst.HoursPerDay; hr++ {
					bools = append(bools, bm.isSubj(c, d, hr, sIdx))
				}
			}
			bm.M.Exactly(bools, n)
		}
	}
}

// buildParallelLimit installs I8.
func (bm *BuiltModel) buildParallelLimit() {
	inst := bm.Inst
	for s, limit := range inst.ParallelLimits {
		sIdx := inst.subjectIndex(s)
		if sIdx < 0 {
			continue
		}
		for d := 0; d < numDays; d++ {
			for hr := 0; hr < inst.HoursPerDay; hr++ {
				var bools []cpsat.BoolVar
				for c := range inst.Classes {
					bools = append(bools, bm.isSubj(c, d, hr, sIdx))
				}
				bm.M.AtMost(bools, limit)
			}
		}
	}
}

// buildTeacherQualification installs I5.
func (bm *BuiltModel) buildTeacherQualification() {
	inst := bm.Inst
	for c := range inst.Classes {
		for d := 0; d < numDays; d++ {
			for hr := 0; hr < inst.HoursPerDay; hr++ {
				for tIdx, t := range inst.Teachers {
					b := bm.isTeacher(c, d, hr, tIdx)
					var oks []cpsat.BoolVar
					for _, subj := range t.QualifiedSubjects {
						k := inst.subjectIndex(subj)
						if k < 0 {
							continue
						}
						oks = append(oks, bm.isSubj(c, d, hr, k))
					}
					if len(oks) == 0 {
						// Unqualified for everything in this instance: the
						// slot's teacher can never resolve to t.
						bm.M.Add(cpsat.NewExpr(bm.teacherVar[c][d][hr]), cpsat.OpNE, tIdx)
						continue
					}
					bm.M.Add(cpsat.SumBools(oks), cpsat.OpEQ, 1).OnlyEnforceIf(b.Lit())
				}
			}
		}
	}
}

// buildTeacherUniqueness installs I6.
func (bm *BuiltModel) buildTeacherUniqueness() {
	inst := bm.Inst
	for tIdx := range inst.Teachers {
		for d := 0; d < numDays; d++ {
			for hr := 0; hr < inst.HoursPerDay; hr++ {
				var bools []cpsat.BoolVar
				for c := range inst.Classes {
					bools = append(bools, bm.isTeacher(c, d, hr, tIdx))
				}
				bm.M.AtMost(bools, 1)
			}
		}
	}
}

// buildTeacherWeeklyCap installs I7.
func (bm *BuiltModel) buildTeacherWeeklyCap() {
	inst := bm.Inst
	for tIdx, t := range inst.Teachers {
		var bools []cpsat.BoolVar
		for c := range inst.Classes {
			for d := 0; d < numDays; d++ {
				for hr := 0; hr < inst.HoursPerDay; hr++ {
					bools = append(bools, bm.isTeacher(c, d, hr, tIdx))
				}
			}
		}
		bm.M.AtMost(bools, t.MaxWeeklyHours)
	}
}

// buildDailySubjectCap installs I9.
func (bm *BuiltModel) buildDailySubjectCap() {
	inst := bm.Inst
	cap := inst.Settings.MaxHoursPerDayPerSubject
	for c, className := range inst.Classes {
		for s := range inst.ClassHours[className] {
			sIdx := inst.subjectIndex(s)
			for d := 0; d < numDays; d++ {
				var bools []cpsat.BoolVar
				for hr := 0; hr < inst.HoursPerDay; hr++ {
					bools = append(bools, bm.isSubj(c, d, hr, sIdx))
				}
				bm.M.AtMost(bools, cap)
			}
		}
	}
}

// buildBreakPolicy installs I11-I13 depending on Settings.BreakPolicy.Kind.
func (bm *BuiltModel) buildBreakPolicy() {
	switch bm.Inst.Settings.BreakPolicy.Kind {
	case BreakSlidingWindow:
		bm.buildSlidingWindow()
	case BreakFixedGlobal:
		bm.buildFixedGlobalBreak()
	}
}

func (bm *BuiltModel) buildSlidingWindow() {
	inst := bm.Inst
	h := inst.HoursPerDay
	bp := inst.Settings.BreakPolicy
	windowLen := bp.BreakWindowEnd - bp.BreakWindowStart + 1

	for d := 0; d < numDays; d++ {
		// I11a: no run of M+1 consecutive hours is fully occupied, per class.
		for c := range inst.Classes {
			for h0 := 0; h0+bp.MaxConsecutiveHours < h; h0++ {
				var bools []cpsat.BoolVar
				for hr := h0; hr <= h0+bp.MaxConsecutiveHours; hr++ {
					bools = append(bools, bm.occupied[c][d][hr])
				}
				bm.M.AtMost(bools, bp.MaxConsecutiveHours)
			}
		}
		// I11b: same rule applied to each teacher's derived "teaching this
		// hour" count, expressed directly as the sum of is_teacher across
		// classes (no extra boolean needed: I6 already keeps that sum 0/1).
		for tIdx := range inst.Teachers {
			for h0 := 0; h0+bp.MaxConsecutiveHours < h; h0++ {
				var expr cpsat.LinearExpr
				for hr := h0; hr <= h0+bp.MaxConsecutiveHours; hr++ {
					for c := range inst.Classes {
						b := bm.isTeacher(c, d, hr, tIdx)
						expr.Vars = append(expr.Vars, boolAsVar(b))
						expr.Coeffs = append(expr.Coeffs, 1)
					}
				}
				bm.M.Add(expr, cpsat.OpLE, bp.MaxConsecutiveHours)
			}
		}
		// I12: at least one free period inside the window, per class-day
		// and per teacher-day.
		for c := range inst.Classes {
			var bools []cpsat.BoolVar
			for hr := bp.BreakWindowStart; hr <= bp.BreakWindowEnd; hr++ {
				bools = append(bools, bm.occupied[c][d][hr])
			}
			bm.M.AtMost(bools, windowLen-1)
		}
		for tIdx := range inst.Teachers {
			var expr cpsat.LinearExpr
			for hr := bp.BreakWindowStart; hr <= bp.BreakWindowEnd; hr++ {
				for c := range inst.Classes {
					b := bm.isTeacher(c, d, hr, tIdx)
					expr.Vars = append(expr.Vars, boolAsVar(b))
					expr.Coeffs = append(expr.Coeffs, 1)
				}
			}
			bm.M.Add(expr, cpsat.OpLE, windowLen-1)
		}
	}
}

func (bm *BuiltModel) buildFixedGlobalBreak() {
	inst := bm.Inst
	g := inst.Settings.BreakPolicy.GlobalBreak

	for c := range inst.Classes {
		for d := 0; d < numDays; d++ {
			// I13a: subjects at g-1 and g must differ when both occupied.
			occPrev, occNext := bm.occupied[c][d][g-1], bm.occupied[c][d][g]
			both := bm.M.NewAndVar(fmt.Sprintf("bothOccupied[%d,%d]", c, d), occPrev.Lit(), occNext.Lit())
			same := bm.M.NewEqVar(bm.subject[c][d][g-1], bm.subject[c][d][g], fmt.Sprintf("sameSubject[%d,%d]", c, d))
			bm.M.AddImplication(both.Lit(), same.Not())

			// I13b: single block per subject per day per class.
			for s := range inst.ClassHours[inst.Classes[c]] {
				sIdx := inst.subjectIndex(s)
				var starts []cpsat.BoolVar
				starts = append(starts, bm.isSubj(c, d, 0, sIdx))
				for hr := 1; hr < inst.HoursPerDay; hr++ {
					start := bm.M.NewAndVar(
						fmt.Sprintf("start[%d,%d,%d,%d]", c, d, hr, sIdx),
						bm.isSubj(c, d, hr, sIdx).Lit(),
						bm.isSubj(c, d, hr-1, sIdx).Not(),
					)
					starts = append(starts, start)
				}
				bm.M.AtMost(starts, 1)
			}
		}
	}
}

// buildObjective installs the three soft terms: time-of-day preference,
// block-scheduling bonus, and (fixed-global-break only) the inner-gap
// penalty.
func (bm *BuiltModel) buildObjective() {
	inst := bm.Inst
	s := inst.Settings
	h := inst.HoursPerDay

	for c := range inst.Classes {
		for d := 0; d < numDays; d++ {
			for hr := 0; hr < h; hr++ {
				var coeff int
				if s.PreferEarlyHours {
					coeff = (h - hr) * s.WeightTimeOfDay
				} else {
					coeff = hr * s.WeightTimeOfDay
				}
				if coeff != 0 {
					bm.M.AddMaximizeBoolTerm(bm.occupied[c][d][hr], coeff)
				}
			}
		}
	}

	if s.AllowBlockScheduling {
		for c, className := range inst.Classes {
			for subj := range inst.ClassHours[className] {
				sIdx := inst.subjectIndex(subj)
				weight := s.WeightBlock
				if w, ok := inst.PreferBlockSubjects[subj]; ok {
					weight = w
				}
				if weight == 0 {
					continue
				}
				for d := 0; d < numDays; d++ {
					for hr := 0; hr < h-1; hr++ {
						both := bm.M.NewAndVar(
							fmt.Sprintf("block[%d,%d,%d,%d]", c, d, hr, sIdx),
							bm.isSubj(c, d, hr, sIdx).Lit(),
							bm.isSubj(c, d, hr+1, sIdx).Lit(),
						)
						bm.M.AddMaximizeBoolTerm(both, weight)
					}
				}
			}
		}
	}

	if s.BreakPolicy.Kind == BreakFixedGlobal {
		for c := range inst.Classes {
			for d := 0; d < numDays; d++ {
				for hr := 0; hr < h; hr++ {
					if hr == h-1 {
						continue // no "later" hours to be free-before
					}
					var later []cpsat.BoolVar
					for hr2 := hr + 1; hr2 < h; hr2++ {
						later = append(later, bm.occupied[c][d][hr2])
					}
					stillLater := bm.M.NewBoolVar(fmt.Sprintf("stillLater[%d,%d,%d]", c, d, hr))
					bm.M.MaxEquality(stillLater, later...)
					innerGap := bm.M.NewAndVar(
						fmt.Sprintf("innerGap[%d,%d,%d]", c, d, hr),
						bm.occupied[c][d][hr].Not(),
						stillLater.Lit(),
					)
					bm.M.AddMaximizeBoolTerm(innerGap, -2)
				}
			}
		}
	}
}

// boolAsVar exposes the underlying IntVar of a BoolVar for use directly
// inside a LinearExpr built outside the cpsat package.
func boolAsVar(b cpsat.BoolVar) *cpsat.IntVar {
	return b.Var()
}
