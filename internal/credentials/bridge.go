package credentials

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/natefinch/atomic"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/logging"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/workspace"
)

// DefaultPaths are credential files and directories, relative to the host
// home, exposed in the sandbox home.
var DefaultPaths = []string{
	".ssh",
	".gitconfig",
	".git-credentials",
	".netrc",
	".npmrc",
	".docker/config.json",
	".aws",
	".azure",
	".kube",
	".config/gcloud",
	".config/gh",
	".claude",
	".claude.json",
	".codex",
	".gemini",
}

// Method is how a credential reached the sandbox home.
type Method string

const (
	MethodSymlink Method = "symlink"
	MethodCopy    Method = "copy"
	MethodSkipped Method = "skipped"
)

// Link is one credential exposed in the sandbox home.
type Link struct {
	Name        string // path relative to the home directory
	HostPath    string
	SandboxPath string
	Method      Method
	IsDir       bool
}

// Options configures a Bridge.
type Options struct {
	// HostHome is the host home directory; empty uses os.UserHomeDir
	HostHome string

	// Paths and EnvKeys extend DefaultPaths and DefaultEnvKeys
	Paths   []string
	EnvKeys []string

	// ResolvesHostPaths is false when the backend cannot follow symlinks to
	// host paths, as with a VM shared folder. Single files are copied then.
	ResolvesHostPaths bool

	// Environ returns the host environment; nil uses os.Environ
	Environ func() []string
}

// Result is what BuildEnv produced.
type Result struct {
	Env Env

	// HostEnvKeys are the Env keys whose values come from the host
	// environment unchanged
	HostEnvKeys []string

	Links []Link
}

// Linked returns the links that point at live host paths.
func (r *Result) Linked() []Link {
	var out []Link
	for _, l := range r.Links {
		if l.Method == MethodSymlink {
			out = append(out, l)
		}
	}
	return out
}

// Bridge exposes host credentials inside a sandbox root.
type Bridge struct {
	opts Options
}

// NewBridge creates a Bridge
func NewBridge(opts Options) *Bridge {
	if opts.HostHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			opts.HostHome = home
		}
	}
	if opts.Environ == nil {
		opts.Environ = os.Environ
	}
	return &Bridge{opts: opts}
}

// BuildEnv redirects the home and XDG directories into sandboxRoot, exposes
// host credentials in the sandbox home and returns the environment to run
// with. overrides are applied last. Everything it writes lives under
// sandboxRoot.
func (b *Bridge) BuildEnv(sandboxRoot string, overrides map[string]string) (*Result, error) {
	layout := workspace.NewLayout(sandboxRoot)
	for _, dir := range layout.Dirs() {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	aliasHomeDirs(layout)

	res := &Result{Env: Env{}}

	host := hostEnv(b.opts.Environ())
	keys := append(append(append([]string{}, TerminalEnvKeys...), DefaultEnvKeys...), b.opts.EnvKeys...)
	for _, k := range keys {
		if v, ok := host[k]; ok {
			if _, seen := res.Env[k]; !seen {
				res.HostEnvKeys = append(res.HostEnvKeys, k)
			}
			res.Env[k] = v
		}
	}

	for k, v := range redirects(layout) {
		res.Env[k] = v
	}

	if b.opts.HostHome != "" {
		paths := append(append([]string{}, DefaultPaths...), b.opts.Paths...)
		for _, rel := range paths {
			link, err := b.expose(layout, rel)
			if err != nil {
				logging.Warn("credential not exposed", "path", rel, "error", err)
				continue
			}
			if link != nil {
				res.Links = append(res.Links, *link)
			}
		}
	}

	for k, v := range overrides {
		res.Env[k] = v
	}
	res.HostEnvKeys = unchanged(res.HostEnvKeys, res.Env, host)

	logging.Debug("credential bridge ready", "links", len(res.Links), "env", len(res.Env))
	return res, nil
}

// redirects points user-level directories into the layout.
func redirects(l workspace.Layout) map[string]string {
	return map[string]string{
		"HOME":            l.HomeOverlay,
		"USERPROFILE":     l.HomeOverlay,
		"XDG_CONFIG_HOME": l.Config,
		"XDG_CACHE_HOME":  l.Cache,
		"XDG_DATA_HOME":   filepath.Join(l.HomeOverlay, ".local", "share"),
		"XDG_STATE_HOME":  filepath.Join(l.HomeOverlay, ".local", "state"),
		"TMPDIR":          l.Tmp,
		"TMP":             l.Tmp,
		"TEMP":            l.Tmp,
	}
}

// aliasHomeDirs makes ~/.config and ~/.cache in the sandbox home the same
// directories as XDG_CONFIG_HOME and XDG_CACHE_HOME. The links are relative
// so they resolve wherever the root is mounted.
func aliasHomeDirs(l workspace.Layout) {
	for name, target := range map[string]string{".config": "../config", ".cache": "../cache"} {
		p := filepath.Join(l.HomeOverlay, name)
		if _, err := os.Lstat(p); err == nil {
			continue
		}
		if err := os.Symlink(target, p); err != nil {
			// without symlinks tools fall back to the XDG variables
			logging.Debug("home alias not created", "path", p, "error", err)
		}
	}
}

// expose links or copies one credential path. It returns nil when the path
// does not exist on the host.
func (b *Bridge) expose(l workspace.Layout, rel string) (*Link, error) {
	hostPath := filepath.Join(b.opts.HostHome, rel)
	info, err := os.Stat(hostPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	// Resolve under the root, not the home overlay, so the .config alias is
	// followed to the real config directory.
	dst, err := securejoin.SecureJoin(l.Root, filepath.Join(filepath.Base(l.HomeOverlay), rel))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		return nil, err
	}

	link := &Link{Name: rel, HostPath: hostPath, SandboxPath: dst, IsDir: info.IsDir()}

	if fi, err := os.Lstat(dst); err == nil {
		// already exposed by an earlier call
		link.Method = MethodCopy
		if fi.Mode()&fs.ModeSymlink != 0 {
			link.Method = MethodSymlink
		}
		return link, nil
	}

	if b.opts.ResolvesHostPaths {
		err := os.Symlink(hostPath, dst)
		if err == nil {
			link.Method = MethodSymlink
			return link, nil
		}
		logging.Debug("symlink failed, falling back to copy", "path", rel, "error", err)
	}

	if info.IsDir() {
		link.Method = MethodSkipped
		logging.Debug("credential directory not copied", "path", rel)
		return link, nil
	}
	if err := copyFile(hostPath, dst); err != nil {
		return nil, err
	}
	link.Method = MethodCopy
	return link, nil
}

// copyFile atomically copies a single credential file with mode 0600.
func copyFile(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := atomic.WriteFile(dst, f); err != nil {
		return err
	}
	return os.Chmod(dst, fs.FileMode(0o600))
}

// unchanged keeps the keys whose final value still equals the host value.
func unchanged(keys []string, env Env, host map[string]string) []string {
	var out []string
	for _, k := range keys {
		if v, ok := env[k]; ok && v == host[k] {
			out = append(out, k)
		}
	}
	return out
}
