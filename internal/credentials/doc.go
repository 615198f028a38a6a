// Package credentials builds the environment a sandboxed command runs with.
//
// BuildEnv points HOME, USERPROFILE, the XDG directories and the temp
// variables into the session's ephemeral root, then exposes each known
// credential path from the host home inside the sandbox home as a symlink.
// Links reflect live host state and nothing secret is duplicated. When the
// backend cannot resolve host paths (VM shared folders) single files are
// copied atomically with mode 0600; directories are never copied.
//
// Only an allow-list of host variables is propagated, see DefaultEnvKeys and
// TerminalEnvKeys. Result.HostEnvKeys names the variables whose values are
// the host's own, so drivers can pass them by name instead of on the command
// line.
package credentials
