// Package trust implements a deterministic tool-call classifier, an
// EWMA trust score per category, and a gate decision table layered on top
// of the Pre-Action Gate.
package trust

import (
	"regexp"
	"strings"
)

// Tier enumerates risk classes, 1 lowest to 4 highest. Financial patterns
// always classify as tier 4 even when the command also matches the
// read-only shortcut, so the read-only check must run after the financial
// check, never before.
type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
	Tier4 Tier = 4
)

var financialPattern = regexp.MustCompile(`(?i)\b(payment|invoice|transfer funds|wire|charge card|refund|payout|trade|crypto transfer|withdraw)\b`)
var destructivePattern = regexp.MustCompile(`(?i)\b(rm -rf|drop table|delete from|truncate|format)\b`)
var writePattern = regexp.MustCompile(`(?i)\b(write|edit|create|update|insert|deploy|restart|chmod|chown)\b`)

var readOnlyPattern = regexp.MustCompile(
	`^(ls|cat|head|tail|grep|find|wc|stat|echo|pwd|which|type|test|diff|git (log|status|diff|show))\b`)

// Classification is the classifier's output.
type Classification struct {
	Tier     Tier
	Category string
}

// Classify maps a tool call to a (tier, category) pair. Order matters: the
// financial check runs first so a read-only financial report ("cat
// invoice.txt") still lands on tier 4, not the read-only shortcut.
func Classify(toolName string, params map[string]string) Classification {
	text := strings.ToLower(toolName + " " + paramsString(params))

	if financialPattern.MatchString(text) {
		return Classification{Tier: Tier4, Category: "financial"}
	}
	if readOnlyPattern.MatchString(strings.ToLower(strings.TrimSpace(params["command"]))) {
		return Classification{Tier: Tier1, Category: "read_only"}
	}
	if destructivePattern.MatchString(text) {
		return Classification{Tier: Tier3, Category: "destructive"}
	}
	if writePattern.MatchString(text) {
		return Classification{Tier: Tier2, Category: "mutation"}
	}
	return Classification{Tier: Tier2, Category: "general"}
}

func paramsString(params map[string]string) string {
	var b strings.Builder
	for k, v := range params {
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(v)
		b.WriteString(" ")
	}
	return b.String()
}
