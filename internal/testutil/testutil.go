package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/config"
)

// TestEnv is an isolated host environment: its own HOME, global git config,
// config file and temp root.
type TestEnv struct {
	T          *testing.T
	TmpDir     string
	Home       string
	TempRoot   string
	ConfigPath string
	GitConfig  string
}

// NewTestEnv creates a test environment and points HOME, the global git
// config and SANDBOXBOX_CONFIG at it for the duration of the test.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	tmpDir := t.TempDir()
	env := &TestEnv{
		T:          t,
		TmpDir:     tmpDir,
		Home:       filepath.Join(tmpDir, "home"),
		TempRoot:   filepath.Join(tmpDir, "tmp"),
		ConfigPath: filepath.Join(tmpDir, "config", config.ConfigFileName),
	}
	for _, dir := range []string{env.Home, env.TempRoot, filepath.Dir(env.ConfigPath)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}

	t.Setenv("HOME", env.Home)
	t.Setenv(config.EnvConfigPath, env.ConfigPath)
	env.GitConfig = IsolateGitConfig(t)
	return env
}

// WriteConfig saves cfg as the global config.
func (e *TestEnv) WriteConfig(cfg *config.Config) {
	e.T.Helper()
	if err := config.Save(e.ConfigPath, cfg); err != nil {
		e.T.Fatalf("Failed to write config: %v", err)
	}
}

// AddCredential writes a file under the fake HOME.
func (e *TestEnv) AddCredential(rel, content string) string {
	e.T.Helper()
	path := filepath.Join(e.Home, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		e.T.Fatalf("Failed to create credential dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		e.T.Fatalf("Failed to write credential: %v", err)
	}
	return path
}

// CreatePlainDir creates a project directory without repository metadata.
func (e *TestEnv) CreatePlainDir(name string, files map[string]string) string {
	e.T.Helper()
	path := filepath.Join(e.TmpDir, "projects", name)
	WriteFiles(e.T, path, files)
	return path
}

// CreateRepo creates a repository with one commit on main.
func (e *TestEnv) CreateRepo(name string) string {
	e.T.Helper()
	RequireGit(e.T)
	path := filepath.Join(e.TmpDir, "projects", name)
	if err := os.MkdirAll(path, 0755); err != nil {
		e.T.Fatalf("Failed to create repo dir: %v", err)
	}
	initRepo(e.T, path)
	return path
}

// EphemeralRoots lists the sandbox roots currently under TempRoot.
func (e *TestEnv) EphemeralRoots() []string {
	e.T.Helper()
	matches, err := filepath.Glob(filepath.Join(e.TempRoot, "sandbox-*"))
	if err != nil {
		e.T.Fatalf("glob: %v", err)
	}
	return matches
}

// RequireGit skips the test if git is not available
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH, skipping test")
	}
}

// IsolateGitConfig points git's global config at a fresh file holding a test
// identity and returns its path. System config is ignored.
func IsolateGitConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gitconfig")
	content := "[user]\n\tname = Test User\n\temail = test@test.com\n[init]\n\tdefaultBranch = main\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write git config: %v", err)
	}
	t.Setenv("GIT_CONFIG_GLOBAL", path)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	return path
}

// SetupGitRepo creates a temp repository with one commit on main.
func SetupGitRepo(t *testing.T) string {
	t.Helper()
	RequireGit(t)
	dir := t.TempDir()
	initRepo(t, dir)
	return dir
}

func initRepo(t *testing.T, dir string) {
	t.Helper()
	Git(t, dir, "init", "--quiet", "--initial-branch=main")
	Git(t, dir, "config", "user.email", "test@test.com")
	Git(t, dir, "config", "user.name", "Test User")
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Test\n"), 0644); err != nil {
		t.Fatal(err)
	}
	Git(t, dir, "add", ".")
	Git(t, dir, "commit", "--quiet", "-m", "Initial commit")
}

// Git runs git in dir and fails the test on error.
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := GitOutput(dir, args...)
	if err != nil {
		t.Fatalf("git %s: %s: %v", strings.Join(args, " "), out, err)
	}
	return out
}

// GitOutput runs git in dir and returns its trimmed combined output.
func GitOutput(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// WriteFiles creates files (relative path to content) under dir.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create %s: %v", dir, err)
	}
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create dir for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", rel, err)
		}
	}
}
