package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDerive(t *testing.T) {
	root := filepath.Join(string(filepath.Separator)+"home", "x", ".config")
	dirs := Derive(root, Vendor, AppName)

	wantAppData := filepath.Join(string(filepath.Separator)+"home", "x", "Local")
	if dirs.AppData != wantAppData {
		t.Errorf("AppData = %q, want %q", dirs.AppData, wantAppData)
	}
	wantUserData := filepath.Join(wantAppData, "William Jackson", "E2 Spy")
	if dirs.UserData != wantUserData {
		t.Errorf("UserData = %q, want %q", dirs.UserData, wantUserData)
	}
	if dirs.Logs != filepath.Join(wantUserData, "Logs") {
		t.Errorf("Logs = %q, want %q", dirs.Logs, filepath.Join(wantUserData, "Logs"))
	}
}

func TestDeriveTrailingSeparator(t *testing.T) {
	root := filepath.Join(string(filepath.Separator)+"home", "x", ".config")
	withSlash := Derive(root+string(filepath.Separator), "V", "A")
	without := Derive(root, "V", "A")
	if withSlash != without {
		t.Errorf("trailing separator changed result: %+v vs %+v", withSlash, without)
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	root := t.TempDir()
	first := Derive(root, Vendor, AppName)
	for i := 0; i < 5; i++ {
		if got := Derive(root, Vendor, AppName); got != first {
			t.Fatalf("Derive returned %+v, previously %+v", got, first)
		}
	}
}

func TestInitRegistersOnce(t *testing.T) {
	first := Init(Vendor, AppName)
	second := Init("Other Vendor", "Other App")
	if first != second {
		t.Errorf("second Init changed directories: %+v vs %+v", second, first)
	}

	dirs, ok := Active()
	if !ok {
		t.Fatal("Active reported no registered directories after Init")
	}
	if dirs != first {
		t.Errorf("Active = %+v, want %+v", dirs, first)
	}
}

func TestEnsure(t *testing.T) {
	dirs := Derive(filepath.Join(t.TempDir(), "Roaming"), Vendor, AppName)
	if err := dirs.Ensure(); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	for _, dir := range []string{dirs.AppData, dirs.UserData, dirs.Logs} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("stat %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}

	if got, want := dirs.File("launcher.db"), filepath.Join(dirs.UserData, "launcher.db"); got != want {
		t.Errorf("File = %q, want %q", got, want)
	}
}
