package core

// CategoryStat is one bucket's slice of the monthly report.
type CategoryStat struct {
	Category    Category
	Label       string
	Percent     int // allocated share of income
	LimitAmount Money
	Spent       Money
	PercentUsed float64
	OverLimit   bool
}

// WeekBucket partitions a month by day-of-month: days 1-7, 8-14,
// 15-21 and 22 through the end. The last bucket absorbs whatever the
// month length leaves over.
type WeekBucket struct {
	Index      int
	Label      string // "Sem 1" .. "Sem 4+"
	Total      Money
	ByCategory map[Category]Money
}

var weekLabels = [4]string{"Sem 1", "Sem 2", "Sem 3", "Sem 4+"}

// MonthlyReport is the derived budget health of one calendar month.
type MonthlyReport struct {
	Month         MonthKey
	TotalIncome   Money
	TotalExpenses Money
	Remaining     Money // may be negative, no clamping
	Categories    []CategoryStat
	Weeks         [4]WeekBucket
	// AverageWeekly always divides by four buckets, active or not; a
	// fixed-denominator average, deliberately not a true weekly mean.
	AverageWeekly Money
	HighestWeek   int // bucket index; earliest wins ties
}

// weekIndex maps a day of month to its bucket.
func weekIndex(day int) int {
	switch {
	case day <= 7:
		return 0
	case day <= 14:
		return 1
	case day <= 21:
		return 2
	default:
		return 3
	}
}

// Aggregate computes the monthly report for month from a full
// transaction snapshot, the month's income and the current allocation
// settings. Deterministic and side-effect free: the same inputs always
// yield the same report, and no input is mutated.
func Aggregate(transactions []Transaction, income Income, settings AllocationSettings, month MonthKey) MonthlyReport {
	report := MonthlyReport{
		Month:       month,
		TotalIncome: income.Total(),
	}

	for i := range report.Weeks {
		report.Weeks[i] = WeekBucket{
			Index:      i,
			Label:      weekLabels[i],
			ByCategory: make(map[Category]Money, len(categoryInfo)),
		}
	}

	spentByCategory := make(map[Category]int64, len(categoryInfo))
	for _, t := range transactions {
		if !month.Contains(t.Date) {
			continue
		}
		report.TotalExpenses.Cents += t.Amount.Cents
		spentByCategory[t.Category] += t.Amount.Cents

		w := &report.Weeks[weekIndex(t.Date.Day())]
		w.Total.Cents += t.Amount.Cents
		cat := w.ByCategory[t.Category]
		cat.Cents += t.Amount.Cents
		w.ByCategory[t.Category] = cat
	}

	report.Remaining = Money{Cents: report.TotalIncome.Cents - report.TotalExpenses.Cents}

	for _, c := range Categories() {
		percent := settings[c]
		limit := Money{Cents: report.TotalIncome.Cents * int64(percent) / 100}
		spent := Money{Cents: spentByCategory[c]}

		var used float64
		if limit.Cents > 0 {
			used = float64(spent.Cents) / float64(limit.Cents) * 100
		}

		report.Categories = append(report.Categories, CategoryStat{
			Category:    c,
			Label:       c.Label(),
			Percent:     percent,
			LimitAmount: limit,
			Spent:       spent,
			PercentUsed: used,
			OverLimit:   used > 100,
		})
	}

	report.AverageWeekly = Money{Cents: report.TotalExpenses.Cents / 4}

	for i, w := range report.Weeks {
		if w.Total.Cents > report.Weeks[report.HighestWeek].Total.Cents {
			report.HighestWeek = i
		}
	}

	return report
}
