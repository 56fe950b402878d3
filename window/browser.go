package window

import (
	"fmt"
	"os/exec"
	"runtime"
)

// OpenBrowser opens url in the system's default browser.
func OpenBrowser(url string) error {
	switch runtime.GOOS {
	case "linux", "freebsd":
		return exec.Command("xdg-open", url).Start()
	case "windows":
		// 'start' needs an empty title argument before the URL.
		return exec.Command("cmd", "/c", "start", "", url).Start()
	case "darwin":
		return exec.Command("open", url).Start()
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
}
