package report

import "github.com/shelftest/shelftest/internal/insight"

// ChartBucket is one bar of a demographic chart.
type ChartBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

var ageBands = []struct {
	label string
	min   int
	max   int
}{
	{"18-24", 18, 24},
	{"25-29", 25, 29},
	{"30-34", 30, 34},
	{"35-39", 35, 39},
	{"40-44", 40, 44},
	{"45-49", 45, 49},
	{"50+", 50, 200},
}

// AgeBuckets scans every respondent record's embedded demographics and
// buckets ages into the fixed bands. When no record carries an age, the
// coarse ranges captured at test creation are used instead, each counted
// once, rather than rendering an empty chart.
func AgeBuckets(comments []insight.ShopperComment, fallbackRanges []string) []ChartBucket {
	counts := map[string]int{}
	seen := false
	for _, c := range comments {
		if c.Age == nil {
			continue
		}
		for _, band := range ageBands {
			if *c.Age >= band.min && *c.Age <= band.max {
				counts[band.label]++
				seen = true
				break
			}
		}
	}
	if !seen {
		if len(fallbackRanges) == 0 {
			return nil
		}
		var out []ChartBucket
		for _, r := range fallbackRanges {
			out = append(out, ChartBucket{Label: r, Count: 1})
		}
		return out
	}
	var out []ChartBucket
	for _, band := range ageBands {
		if n := counts[band.label]; n > 0 {
			out = append(out, ChartBucket{Label: band.label, Count: n})
		}
	}
	return out
}

// GenderBuckets groups by the literal gender value on each record, with the
// same creation-time fallback as AgeBuckets.
func GenderBuckets(comments []insight.ShopperComment, fallbackGroups []string) []ChartBucket {
	counts := map[string]int{}
	var order []string
	for _, c := range comments {
		if c.Sex == "" {
			continue
		}
		if _, ok := counts[c.Sex]; !ok {
			order = append(order, c.Sex)
		}
		counts[c.Sex]++
	}
	if len(order) == 0 {
		if len(fallbackGroups) == 0 {
			return nil
		}
		var out []ChartBucket
		for _, g := range fallbackGroups {
			out = append(out, ChartBucket{Label: g, Count: 1})
		}
		return out
	}
	var out []ChartBucket
	for _, label := range order {
		out = append(out, ChartBucket{Label: label, Count: counts[label]})
	}
	return out
}
