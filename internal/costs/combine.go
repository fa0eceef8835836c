package costs

import (
	"sort"
	"time"

	"github.com/samber/lo"
)

// CombineDaily full-outer-joins two daily series on Date. A date missing
// from one side contributes 0 for that provider. Output is ascending by
// date and the inputs are not modified.
func CombineDaily(openai, anthropic []DailyCost) []CombinedDailyCost {
	oa := sumByKey(openai, func(d DailyCost) (string, float64) { return d.Date, d.Cost })
	an := sumByKey(anthropic, func(d DailyCost) (string, float64) { return d.Date, d.Cost })

	dates := unionKeys(oa, an)
	out := make([]CombinedDailyCost, 0, len(dates))
	for _, date := range dates {
		o, a := oa[date], an[date]
		out = append(out, CombinedDailyCost{
			Date:      date,
			OpenAI:    o,
			Anthropic: a,
			Total:     o + a,
		})
	}
	return out
}

// CombineMonthly full-outer-joins two monthly series on the year-qualified
// Key, so labels that repeat across years never collide. Output is
// chronological, oldest first.
func CombineMonthly(openai, anthropic []MonthlyCost) []CombinedMonthlyCost {
	oa := sumByKey(openai, func(m MonthlyCost) (string, float64) { return m.Key, m.Cost })
	an := sumByKey(anthropic, func(m MonthlyCost) (string, float64) { return m.Key, m.Cost })

	labels := make(map[string]string, len(openai)+len(anthropic))
	for _, m := range append(append([]MonthlyCost{}, openai...), anthropic...) {
		if _, ok := labels[m.Key]; !ok {
			labels[m.Key] = m.Month
		}
	}

	keys := unionKeys(oa, an)
	out := make([]CombinedMonthlyCost, 0, len(keys))
	for _, key := range keys {
		out = append(out, CombinedMonthlyCost{
			Key:       key,
			Month:     labels[key],
			OpenAI:    oa[key],
			Anthropic: an[key],
		})
	}
	return out
}

func sumByKey[T any](items []T, kv func(T) (string, float64)) map[string]float64 {
	out := make(map[string]float64, len(items))
	for _, item := range items {
		k, v := kv(item)
		out[k] += v
	}
	return out
}

// unionKeys returns the sorted union of both maps' keys. Date and month
// keys are fixed-width ISO strings, so lexical order is chronological.
func unionKeys(a, b map[string]float64) []string {
	keys := lo.Uniq(append(lo.Keys(a), lo.Keys(b)...))
	sort.Strings(keys)
	return keys
}

// TodayTotal returns the combined total for now's UTC date, and whether
// the series had a point for it.
func TodayTotal(points []CombinedDailyCost, now time.Time) (float64, bool) {
	today := now.UTC().Format(DateLayout)
	p, ok := lo.Find(points, func(p CombinedDailyCost) bool { return p.Date == today })
	return p.Total, ok
}
