package utils

import (
	"fmt"
	"time"
)

var ptWeekdays = [...]string{
	time.Sunday:    "domingo",
	time.Monday:    "segunda-feira",
	time.Tuesday:   "terça-feira",
	time.Wednesday: "quarta-feira",
	time.Thursday:  "quinta-feira",
	time.Friday:    "sexta-feira",
	time.Saturday:  "sábado",
}

var ptMonths = [...]string{
	time.January:   "janeiro",
	time.February:  "fevereiro",
	time.March:     "março",
	time.April:     "abril",
	time.May:       "maio",
	time.June:      "junho",
	time.July:      "julho",
	time.August:    "agosto",
	time.September: "setembro",
	time.October:   "outubro",
	time.November:  "novembro",
	time.December:  "dezembro",
}

// FormatHeaderDate renders t the way the dashboard header shows it,
// e.g. "sábado, 17 de outubro" or "segunda-feira, 05 de outubro".
func FormatHeaderDate(t time.Time) string {
	return fmt.Sprintf("%s, %02d de %s", ptWeekdays[t.Weekday()], t.Day(), ptMonths[t.Month()])
}
