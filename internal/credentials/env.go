package credentials

import (
	"sort"
	"strings"
)

// Env is the environment a sandboxed command runs with.
type Env map[string]string

// Keys returns the variable names in sorted order.
func (e Env) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// List renders the environment as sorted KEY=VALUE pairs.
func (e Env) List() []string {
	out := make([]string, 0, len(e))
	for _, k := range e.Keys() {
		out = append(out, k+"="+e[k])
	}
	return out
}

// Merge returns a copy of e with other applied on top.
func (e Env) Merge(other map[string]string) Env {
	out := make(Env, len(e)+len(other))
	for k, v := range e {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// DefaultEnvKeys are the credential-bearing variables propagated from the
// host.
var DefaultEnvKeys = []string{
	"ANTHROPIC_API_KEY",
	"ANTHROPIC_AUTH_TOKEN",
	"ANTHROPIC_BASE_URL",
	"CLAUDE_CODE_OAUTH_TOKEN",
	"OPENAI_API_KEY",
	"OPENAI_BASE_URL",
	"GEMINI_API_KEY",
	"GOOGLE_API_KEY",
	"GOOGLE_APPLICATION_CREDENTIALS",
	"GITHUB_TOKEN",
	"GH_TOKEN",
	"NPM_TOKEN",
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"AWS_SESSION_TOKEN",
	"AWS_REGION",
	"AWS_DEFAULT_REGION",
	"AWS_PROFILE",
	"SSH_AUTH_SOCK",
}

// TerminalEnvKeys are basic terminal variables propagated from the host.
var TerminalEnvKeys = []string{
	"PATH",
	"TERM",
	"COLORTERM",
	"LANG",
	"LC_ALL",
	"TZ",
	"USER",
	"LOGNAME",
	"SHELL",
}

// hostEnv turns os.Environ-style pairs into a map.
func hostEnv(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok && k != "" {
			m[k] = v
		}
	}
	return m
}
