package engine

import "time"

// AddMonths прибавляет n месяцев. Если в целевом месяце нет такого числа,
// используется последний день месяца (31 января + 1 месяц = 28/29 февраля).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

// MonthsBetween возвращает количество полных месяцев между from и to.
// Для to раньше from результат отрицательный либо ноль.
func MonthsBetween(from, to time.Time) int {
	fy, fm, _ := from.Date()
	ty, tm, _ := to.Date()
	months := (ty-fy)*12 + int(tm-fm)

	if months > 0 && AddMonths(from, months).After(to) {
		months--
	}
	return months
}

// Date отбрасывает время суток, оставляя календарную дату в UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
