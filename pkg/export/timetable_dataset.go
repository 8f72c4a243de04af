package export

import (
	"fmt"

	"github.com/noah-isme/sma-adp-api/internal/timetable"
)

// ClassTimetableDataset builds a printable weekly grid Dataset for one
// class out of a solved Report, one row per hour and one column per day.
func ClassTimetableDataset(report *timetable.Report, class string, hoursPerDay int) (Dataset, error) {
	table, ok := report.Classes[class]
	if !ok {
		return Dataset{}, fmt.Errorf("no timetable entry for class %q", class)
	}
	return buildWeeklyDataset(table, hoursPerDay), nil
}

// TeacherTimetableDataset builds the same weekly grid for one teacher.
func TeacherTimetableDataset(report *timetable.Report, teacherID string, hoursPerDay int) (Dataset, error) {
	table, ok := report.Teachers[teacherID]
	if !ok {
		return Dataset{}, fmt.Errorf("no timetable entry for teacher %q", teacherID)
	}
	return buildWeeklyDataset(table, hoursPerDay), nil
}

func buildWeeklyDataset(byDay map[string][]string, hoursPerDay int) Dataset {
	headers := append([]string{"hour"}, timetable.DayNames[:]...)
	rows := make([]map[string]string, 0, len(byDay["Mo"]))
	rowCount := hoursPerDay
	for _, day := range timetable.DayNames {
		if len(byDay[day]) > rowCount {
			rowCount = len(byDay[day])
		}
	}
	for hour := 0; hour < rowCount; hour++ {
		row := map[string]string{"hour": fmt.Sprintf("%d", hour+1)}
		for _, day := range timetable.DayNames {
			entries := byDay[day]
			if hour < len(entries) {
				row[day] = entries[hour]
			} else {
				row[day] = ""
			}
		}
		rows = append(rows, row)
	}
	return Dataset{Headers: headers, Rows: rows}
}
