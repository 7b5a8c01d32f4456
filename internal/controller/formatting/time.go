package formatting

import (
	"fmt"
	"time"
)

// FormatDateTime форматирует дату и время
func FormatDateTime(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}

// FormatDate форматирует только дату
func FormatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

// FormatTimeRange форматирует диапазон времени
func FormatTimeRange(start, end time.Time) string {
	return fmt.Sprintf("%s-%s", start.Format("15:04"), end.Format("15:04"))
}

// FormatInterval форматирует интервал слота: дату один раз, если слот в пределах дня
func FormatInterval(start, end time.Time) string {
	if start.Year() == end.Year() && start.YearDay() == end.YearDay() {
		return fmt.Sprintf("%s %s, %s", GetWeekdayShortName(int(start.Weekday())), FormatDate(start), FormatTimeRange(start, end))
	}
	return fmt.Sprintf("%s - %s", FormatDateTime(start), FormatDateTime(end))
}

// GetWeekdayShortName возвращает краткое название дня недели на русском
func GetWeekdayShortName(weekday int) string {
	names := []string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}
	if weekday >= 0 && weekday < len(names) {
		return names[weekday]
	}
	return "?"
}
