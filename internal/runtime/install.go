package runtime

import (
	goruntime "runtime"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/system"
)

// linuxInstallCommand picks the first available package manager.
func linuxInstallCommand(exec system.CommandExecutor, pkg string) []string {
	managers := []struct {
		bin  string
		args []string
	}{
		{"apt-get", []string{"install", "-y", pkg}},
		{"dnf", []string{"install", "-y", pkg}},
		{"zypper", []string{"--non-interactive", "install", pkg}},
		{"pacman", []string{"-S", "--noconfirm", pkg}},
		{"apk", []string{"add", pkg}},
	}
	for _, m := range managers {
		if _, err := exec.LookPath(m.bin); err == nil {
			return append([]string{"sudo", m.bin}, m.args...)
		}
	}
	return nil
}

// desktopInstallCommand returns the Homebrew or winget install command.
func desktopInstallCommand(exec system.CommandExecutor, brewPkg, wingetID string, brewArgs ...string) []string {
	switch goruntime.GOOS {
	case "darwin":
		if _, err := exec.LookPath("brew"); err == nil {
			return append(append([]string{"brew", "install"}, brewArgs...), brewPkg)
		}
	case "windows":
		if _, err := exec.LookPath("winget"); err == nil && wingetID != "" {
			return []string{"winget", "install", "-e", "--id", wingetID}
		}
	case "linux":
		return linuxInstallCommand(exec, brewPkg)
	}
	return nil
}
