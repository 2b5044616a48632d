// Package strategytext contains heuristic scanners over strategy
// source text. They are pattern matchers, not a parser: false
// positives and negatives are expected and acceptable, and the rest
// of the pipeline treats their output as hints, never as proof.
package strategytext

import (
	"regexp"
	"strconv"
	"strings"
)

// Entry/exit function and signal-column names recognized in strategy
// sources (current and legacy naming).
var (
	entryFuncNames = []string{"populate_entry_trend", "populate_buy_trend"}
	exitFuncNames  = []string{"populate_exit_trend", "populate_sell_trend"}

	entryColumns = []string{"enter_long", "enter_short", "'buy'", `"buy"`}
	exitColumns  = []string{"exit_long", "exit_short", "'sell'", `"sell"`}
)

var (
	lookaheadRe  = regexp.MustCompile(`shift\(\s*(?:periods\s*=\s*)?-\d+\s*\)?`)
	stoplossRe   = regexp.MustCompile(`(?im)^\s*stoploss\s*=\s*(-?\d+(?:\.\d+)?)`)
	minimalROIRe = regexp.MustCompile(`(?i)minimal_roi\s*=`)
	customExitRe = regexp.MustCompile(`def\s+(custom_exit|custom_stoploss)\s*\(`)
	compareRe    = regexp.MustCompile(`dataframe\[['"](\w+)['"]\]\s*(<=?|>=?|<|>)\s*(-?\d+(?:\.\d+)?)`)
)

// FindLookahead returns the negative-offset shift patterns found in
// the source. Shifting a series backward reads future candles.
func FindLookahead(src string) []string {
	matches := lookaheadRe.FindAllString(src, -1)
	return dedupe(matches)
}

// HasEntryFunction reports whether any known entry function is defined.
func HasEntryFunction(src string) bool {
	return hasAnyFunc(src, entryFuncNames)
}

// HasExitFunction reports whether any known exit function is defined.
func HasExitFunction(src string) bool {
	return hasAnyFunc(src, exitFuncNames)
}

// HasProfitTargetTable reports whether a minimal-ROI table is set.
func HasProfitTargetTable(src string) bool {
	return minimalROIRe.MatchString(src)
}

// HasCustomExit reports whether a custom exit or stop callback exists.
func HasCustomExit(src string) bool {
	return customExitRe.MatchString(src)
}

// StoplossValue extracts the configured stoploss ratio. ok is false
// when no assignment was found.
func StoplossValue(src string) (float64, bool) {
	m := stoplossRe.FindStringSubmatch(src)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Contradiction records a same-column pair of range comparisons that
// can never both hold, e.g. x < 10 and x > 90.
type Contradiction struct {
	Column string
	Below  float64 // x < Below
	Above  float64 // x > Above
}

// FindContradictions scans the entry and exit rule bodies for
// same-column comparisons that exclude each other. Scoping is per
// function body, which over-approximates "one boolean rule".
func FindContradictions(src string) []Contradiction {
	var out []Contradiction
	scanned := false
	for _, name := range append(append([]string{}, entryFuncNames...), exitFuncNames...) {
		body, ok := FunctionBody(src, name)
		if !ok {
			continue
		}
		scanned = true
		out = append(out, contradictionsInRegion(body)...)
	}
	if !scanned {
		// No recognizable rule functions: fall back to whole-source
		// scan. The entry and exit bodies are never pooled; an entry
		// bound and an exit bound on the same column are not a
		// contradiction.
		out = contradictionsInRegion(src)
	}
	return out
}

func contradictionsInRegion(region string) []Contradiction {
	type bounds struct {
		below []float64 // from "x < v" / "x <= v"
		above []float64 // from "x > v" / "x >= v"
	}
	cols := make(map[string]*bounds)
	var order []string

	for _, m := range compareRe.FindAllStringSubmatch(region, -1) {
		col, op := m[1], m[2]
		v, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			continue
		}
		b, ok := cols[col]
		if !ok {
			b = &bounds{}
			cols[col] = b
			order = append(order, col)
		}
		if strings.HasPrefix(op, "<") {
			b.below = append(b.below, v)
		} else {
			b.above = append(b.above, v)
		}
	}

	var out []Contradiction
	for _, col := range order {
		b := cols[col]
		for _, below := range b.below {
			for _, above := range b.above {
				if above >= below {
					out = append(out, Contradiction{Column: col, Below: below, Above: above})
				}
			}
		}
	}
	return out
}

// EntryExitMixing returns descriptions of entry/exit structure
// problems: an entry rule assigning exit signal columns (or the
// reverse), and statements setting both signals at once.
func EntryExitMixing(src string) []string {
	var issues []string

	for _, name := range entryFuncNames {
		body, ok := FunctionBody(src, name)
		if !ok {
			continue
		}
		if containsAny(body, exitColumns) {
			issues = append(issues, name+" also sets exit signal columns")
		}
	}
	for _, name := range exitFuncNames {
		body, ok := FunctionBody(src, name)
		if !ok {
			continue
		}
		if containsAny(body, entryColumns) {
			issues = append(issues, name+" also sets entry signal columns")
		}
	}

	for _, line := range strings.Split(src, "\n") {
		if containsAny(line, entryColumns) && containsAny(line, exitColumns) {
			issues = append(issues, "entry and exit signals assigned in the same statement: "+strings.TrimSpace(line))
			break
		}
	}

	return issues
}

// FunctionBody extracts the indented body of a def by name. ok is
// false when the function is not defined.
func FunctionBody(src, name string) (string, bool) {
	lines := strings.Split(src, "\n")
	defPrefix := "def " + name

	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if !strings.HasPrefix(trimmed, defPrefix) {
			continue
		}
		defIndent := len(line) - len(trimmed)

		var body []string
		for j := i + 1; j < len(lines); j++ {
			l := lines[j]
			t := strings.TrimLeft(l, " \t")
			if t == "" {
				body = append(body, l)
				continue
			}
			if len(l)-len(t) <= defIndent {
				break
			}
			body = append(body, l)
		}
		return strings.Join(body, "\n"), true
	}
	return "", false
}

func hasAnyFunc(src string, names []string) bool {
	for _, name := range names {
		if strings.Contains(src, "def "+name) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func dedupe(xs []string) []string {
	seen := make(map[string]struct{}, len(xs))
	var out []string
	for _, x := range xs {
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		out = append(out, x)
	}
	return out
}
