package strategytext

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	taCallRe     = regexp.MustCompile(`\bta\.([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	qtpylibRe    = regexp.MustCompile(`\bqtpylib\.([a-z_][a-z0-9_]*)\s*\(`)
	columnRe     = regexp.MustCompile(`dataframe\[['"]([a-z][a-z0-9_]*)['"]\]`)
	timeperiodRe = regexp.MustCompile(`(?:timeperiod|window|period|length)\s*=\s*(\d+)`)
	maPeriodRe   = regexp.MustCompile(`(?i)\b(ema|sma|wma|tema|hma|dema)[_\s'"\]]*(\d{1,4})\b`)
)

// Column-name prefixes recognized as indicator references.
var indicatorColumnPrefixes = []string{
	"rsi", "ema", "sma", "wma", "tema", "dema", "hma", "macd", "adx",
	"atr", "bb_", "bollinger", "stoch", "obv", "cci", "mfi", "roc",
	"mom", "willr", "sar", "vwap", "tenkan", "kijun", "plus_di", "minus_di",
}

// Common indicator periods that do not count as tuned magic numbers.
var commonPeriods = map[int]struct{}{
	5: {}, 7: {}, 9: {}, 10: {}, 12: {}, 14: {}, 20: {}, 21: {},
	25: {}, 26: {}, 30: {}, 50: {}, 100: {}, 200: {},
}

// Indicators extracts the distinct indicator names referenced via
// known call and column patterns, lowercase, in first-seen order.
func Indicators(src string) []string {
	var names []string

	for _, m := range taCallRe.FindAllStringSubmatch(src, -1) {
		names = append(names, strings.ToLower(m[1]))
	}
	for _, m := range qtpylibRe.FindAllStringSubmatch(src, -1) {
		names = append(names, strings.ToLower(m[1]))
	}
	for _, m := range columnRe.FindAllStringSubmatch(src, -1) {
		col := strings.ToLower(m[1])
		for _, prefix := range indicatorColumnPrefixes {
			if strings.HasPrefix(col, prefix) {
				names = append(names, col)
				break
			}
		}
	}

	return dedupe(names)
}

// MagicParams extracts period/window values that look hand-tuned:
// numeric parameters outside the common-values allowlist.
func MagicParams(src string) []string {
	var magic []string

	collect := func(raw string) {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 1 {
			return
		}
		if _, common := commonPeriods[n]; common {
			return
		}
		magic = append(magic, strconv.Itoa(n))
	}

	for _, m := range timeperiodRe.FindAllStringSubmatch(src, -1) {
		collect(m[1])
	}
	for _, m := range maPeriodRe.FindAllStringSubmatch(src, -1) {
		collect(m[2])
	}

	return dedupe(magic)
}

// RedundantMovingAverages finds pairs of same-kind moving averages
// whose periods are within 2 of each other.
func RedundantMovingAverages(src string) []string {
	periods := make(map[string][]int)
	for _, m := range maPeriodRe.FindAllStringSubmatch(src, -1) {
		kind := strings.ToLower(m[1])
		n, err := strconv.Atoi(m[2])
		if err != nil || n <= 1 {
			continue
		}
		periods[kind] = append(periods[kind], n)
	}

	var kinds []string
	for kind := range periods {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	var out []string
	for _, kind := range kinds {
		ps := dedupeInts(periods[kind])
		sort.Ints(ps)
		for i := 1; i < len(ps); i++ {
			if ps[i]-ps[i-1] <= 2 {
				out = append(out, fmt.Sprintf("%s %d ~ %s %d", kind, ps[i-1], kind, ps[i]))
			}
		}
	}
	return out
}

// ConditionCount counts boolean conditions in the entry/exit rule
// bodies: dataframe comparisons plus crossover helper calls.
func ConditionCount(src string) int {
	region := ""
	for _, name := range append(append([]string{}, entryFuncNames...), exitFuncNames...) {
		if body, ok := FunctionBody(src, name); ok {
			region += body + "\n"
		}
	}
	if region == "" {
		region = src
	}

	count := len(compareRe.FindAllString(region, -1))
	count += strings.Count(region, "crossed_above")
	count += strings.Count(region, "crossed_below")
	return count
}

func dedupeInts(xs []int) []int {
	seen := make(map[int]struct{}, len(xs))
	var out []int
	for _, x := range xs {
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		out = append(out, x)
	}
	return out
}
