// Package extract implements C7: tool-call context extraction feeding both
// the SOP enhancer lookup and the Pre-Action Gate's read-only fast path.
package extract

import (
	"regexp"
	"strings"
)

// ReadOnlyAllowList anchors the head token of an `exec` command against a
// fixed set of read-only verbs. Shared with the gate so the allow-list has
// exactly one definition.
var ReadOnlyAllowList = regexp.MustCompile(
	`^(ls|cat|head|tail|grep|find|wc|stat|echo|pwd|which|type|test|diff` +
		`|git (log|tag|status|diff|show|branch)` +
		`|systemctl --user (status|list|is-active)` +
		`|journalctl|nvidia-smi|free|df|du|uptime|ps|top|htop)\b`)

var riskyVerbs = map[string]bool{
	"rm": true, "chmod": true, "systemctl": true, "deploy": true,
}

var sshPattern = regexp.MustCompile(`^ssh\s+(?:-\S+\s+)*([\w.\-]+)`)
var urlPattern = regexp.MustCompile(`https?://([^/\s]+)`)

// Context is C7's output, consumed by C6's pattern match and C8's lookup.
type Context struct {
	Keywords    []string
	ProjectPath string
	ServiceType string
	HostTarget  string
	WorkingDir  string
	URLHost     string
	CommandType string
	RiskLevel   string
}

// Extract derives a Context from a tool name and its parameters. Keywords,
// URL host and risk level come from all parameters flattened and lowercased;
// the command type and SSH host come from the trimmed "command" parameter.
func Extract(toolName string, params map[string]string) Context {
	raw := paramsString(params)
	cmd := strings.ToLower(strings.TrimSpace(params["command"]))
	ctx := Context{
		Keywords:    keywords(raw),
		CommandType: commandType(toolName, cmd),
	}

	if wd, ok := params["workdir"]; ok {
		ctx.WorkingDir = wd
		ctx.ProjectPath = wd
	} else if wd, ok := params["cwd"]; ok {
		ctx.WorkingDir = wd
		ctx.ProjectPath = wd
	}

	if m := sshPattern.FindStringSubmatch(cmd); m != nil {
		ctx.HostTarget = m[1]
	}
	if m := urlPattern.FindStringSubmatch(raw); m != nil {
		ctx.URLHost = m[1]
	}
	if svc, ok := params["service"]; ok {
		ctx.ServiceType = svc
	}

	ctx.RiskLevel = riskLevel(raw, ctx.CommandType)
	return ctx
}

func paramsString(params map[string]string) string {
	var b strings.Builder
	for k, v := range params {
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(v)
		b.WriteString(" ")
	}
	return strings.ToLower(b.String())
}

// keywords splits working-directory-like tokens on path separators and
// keeps tokens of length >= 3, alongside plain whitespace-split words.
func keywords(raw string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(tok string) {
		tok = strings.Trim(tok, "\"'.,;:()[]{}")
		if len(tok) >= 3 && !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	for _, field := range strings.Fields(raw) {
		for _, part := range strings.FieldsFunc(field, func(r rune) bool { return r == '/' || r == '=' }) {
			add(part)
		}
	}
	return out
}

func commandType(toolName, raw string) string {
	if toolName != "exec" {
		return toolName
	}
	trimmed := strings.TrimSpace(raw)
	if ReadOnlyAllowList.MatchString(trimmed) {
		return "read_only"
	}
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return "exec"
	}
	return fields[0]
}

func riskLevel(raw, commandType string) string {
	if commandType == "read_only" {
		return "low"
	}
	for verb := range riskyVerbs {
		if strings.Contains(raw, verb) {
			return "high"
		}
	}
	return "medium"
}
