package sop

import "regexp"

// DefaultPatterns is Cortex's built-in detection table, grounded on the
// risky-verb/service families C7 extracts context for.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Regexp: regexp.MustCompile(`systemctl\s+restart`), Label: "service-restart", FileName: "service-restart.sop", Priority: 80},
		{Regexp: regexp.MustCompile(`\brm\s+-rf\b`), Label: "destructive-delete", FileName: "destructive-delete.sop", Priority: 100},
		{Regexp: regexp.MustCompile(`\bdeploy\b`), Label: "deployment", FileName: "deployment.sop", Priority: 70},
		{Regexp: regexp.MustCompile(`\bchmod\b`), Label: "permissions-change", FileName: "permissions-change.sop", Priority: 60},
	}
}
