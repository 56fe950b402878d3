// Package paths resolves the launcher's data directories.
//
// The platform's roaming configuration root is redirected to its sibling
// "Local" directory, and everything the launcher or the backend writes lives
// below <Local>/<Vendor>/<AppName>. Init must run before the backend is
// spawned so that both processes agree on where state is kept.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// Vendor is the fixed vendor path segment.
	Vendor = "William Jackson"
	// AppName is the fixed application path segment.
	AppName = "E2 Spy"

	localDirName = "Local"
	logsDirName  = "Logs"
)

// Directories holds the derived data locations. It is immutable once Init has
// registered it.
type Directories struct {
	AppData  string // <config root>/../Local
	UserData string // <AppData>/<Vendor>/<AppName>
	Logs     string // <UserData>/Logs
}

var (
	initOnce sync.Once
	active   Directories
	isActive bool
	activeMu sync.RWMutex
)

// Derive computes the directories for the given platform configuration root.
func Derive(configRoot, vendor, app string) Directories {
	appData := filepath.Join(filepath.Dir(filepath.Clean(configRoot)), localDirName)
	userData := filepath.Join(appData, vendor, app)
	return Directories{
		AppData:  appData,
		UserData: userData,
		Logs:     filepath.Join(userData, logsDirName),
	}
}

// Init derives the directories from the platform configuration root and
// registers them for the rest of the process lifetime. Only the first call
// does any work; later calls return the registered set.
func Init(vendor, app string) Directories {
	initOnce.Do(func() {
		dirs := Derive(platformConfigRoot(), vendor, app)
		activeMu.Lock()
		active = dirs
		isActive = true
		activeMu.Unlock()
	})
	dirs, _ := Active()
	return dirs
}

// Active returns the registered directories, if Init has run.
func Active() (Directories, bool) {
	activeMu.RLock()
	defer activeMu.RUnlock()
	return active, isActive
}

// Ensure creates all three directories.
func (d Directories) Ensure() error {
	for _, dir := range []string{d.AppData, d.UserData, d.Logs} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// File returns a path for name inside the user-data directory.
func (d Directories) File(name string) string {
	return filepath.Join(d.UserData, name)
}

func platformConfigRoot() string {
	root, err := os.UserConfigDir()
	if err == nil && root != "" {
		return root
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config")
	}
	return filepath.Join(os.TempDir(), "config")
}
