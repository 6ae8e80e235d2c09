package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/funnel-crm-api/internal/models"
	"github.com/shopspring/decimal"
)

// TopSourcesLimit is the size of the lead source table
const TopSourcesLimit = 5

// ActivityMonths is the length of the monthly activity series
const ActivityMonths = 6

type monthKey struct {
	year  int
	month time.Month
}

func keyOf(t time.Time, loc *time.Location) monthKey {
	y, m, _ := t.In(loc).Date()
	return monthKey{year: y, month: m}
}

func monthLabel(year int, month time.Month) string {
	return fmt.Sprintf("%s/%d", month.String()[:3], year)
}

// revenueByMonth sums card values by the month of closed_at in loc
func revenueByMonth(cards []models.Card, loc *time.Location) map[monthKey]decimal.Decimal {
	out := make(map[monthKey]decimal.Decimal)
	for _, c := range cards {
		if c.ClosedAt == nil {
			continue
		}
		k := keyOf(*c.ClosedAt, loc)
		out[k] = out[k].Add(c.Value)
	}
	return out
}

// MonthlyRevenue sums the values of cards closed in now's calendar month
func MonthlyRevenue(cards []models.Card, now time.Time) decimal.Decimal {
	return revenueByMonth(cards, now.Location())[keyOf(now, now.Location())]
}

// LeadCounts splits cards into open and won leads
func LeadCounts(cards []models.Card) (active, won int) {
	for _, c := range cards {
		if c.ClosedAt == nil {
			active++
		} else {
			won++
		}
	}
	return active, won
}

// LeadsWithoutTasks counts cards that carry no task at all
func LeadsWithoutTasks(cards []models.Card) int {
	n := 0
	for _, c := range cards {
		if len(c.Tasks) == 0 {
			n++
		}
	}
	return n
}

// PendingTasks counts incomplete tasks across all cards
func PendingTasks(cards []models.Card) int {
	n := 0
	for _, c := range cards {
		for _, t := range c.Tasks {
			if !t.Completed {
				n++
			}
		}
	}
	return n
}

// TopSources returns the limit most frequent non-empty lead sources,
// ordered by count then name
func TopSources(cards []models.Card, limit int) []models.SourceCount {
	counts := make(map[string]int)
	for _, c := range cards {
		if c.Source == "" {
			continue
		}
		counts[c.Source]++
	}

	out := make([]models.SourceCount, 0, len(counts))
	for src, n := range counts {
		out = append(out, models.SourceCount{Source: src, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Source < out[j].Source
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// GoalSeries pairs every goal with the revenue closed in its month, oldest first
func GoalSeries(goals []models.Goal, cards []models.Card, loc *time.Location) []models.GoalPoint {
	revenue := revenueByMonth(cards, loc)

	out := make([]models.GoalPoint, 0, len(goals))
	for _, g := range goals {
		m := time.Month(g.Month)
		out = append(out, models.GoalPoint{
			Month:    g.Month,
			Year:     g.Year,
			Label:    monthLabel(g.Year, m),
			Goal:     g.GoalAmount,
			Achieved: revenue[monthKey{year: g.Year, month: m}],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// MonthlyActivity counts new contacts and closed deals for the months
// ending with now's month, oldest first
func MonthlyActivity(contacts []models.Contact, cards []models.Card, now time.Time, months int) []models.ActivityPoint {
	loc := now.Location()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	index := make(map[monthKey]int, months)
	out := make([]models.ActivityPoint, months)
	for i := 0; i < months; i++ {
		m := first.AddDate(0, i-months+1, 0)
		out[i] = models.ActivityPoint{
			Month: int(m.Month()),
			Year:  m.Year(),
			Label: monthLabel(m.Year(), m.Month()),
		}
		index[monthKey{year: m.Year(), month: m.Month()}] = i
	}

	for _, c := range contacts {
		if i, ok := index[keyOf(c.CreatedAt, loc)]; ok {
			out[i].NewContacts++
		}
	}
	for _, c := range cards {
		if c.ClosedAt == nil {
			continue
		}
		if i, ok := index[keyOf(*c.ClosedAt, loc)]; ok {
			out[i].ClosedDeals++
		}
	}
	return out
}

// Summarize builds the dashboard for now's month. cards must carry their tasks.
func Summarize(cards []models.Card, goals []models.Goal, contacts []models.Contact, now time.Time) models.Dashboard {
	d := models.Dashboard{
		Month:          int(now.Month()),
		Year:           now.Year(),
		MonthlyRevenue: MonthlyRevenue(cards, now),
		TopSources:     TopSources(cards, TopSourcesLimit),
		GoalSeries:     GoalSeries(goals, cards, now.Location()),
		Activity:       MonthlyActivity(contacts, cards, now, ActivityMonths),
	}
	d.ActiveLeads, d.WonLeads = LeadCounts(cards)
	d.LeadsWithoutTask = LeadsWithoutTasks(cards)
	d.PendingTasks = PendingTasks(cards)

	for i := range goals {
		if goals[i].Month == d.Month && goals[i].Year == d.Year {
			g := goals[i]
			d.CurrentGoal = &g
			break
		}
	}
	if d.CurrentGoal != nil && d.CurrentGoal.GoalAmount.IsPositive() {
		pct, _ := d.MonthlyRevenue.Div(d.CurrentGoal.GoalAmount).Mul(decimal.NewFromInt(100)).Round(1).Float64()
		d.GoalProgress = pct
	}
	return d
}
