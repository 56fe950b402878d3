package window

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"sync"

	"github.com/zserge/lorca"
)

const (
	defaultWidth  = 1280
	defaultHeight = 850
	defaultTitle  = "E2 Spy"

	// Chrome has no hidden start mode; park the window off screen until reveal.
	offscreenArg = "--window-position=-32000,-32000"
)

// UIFactory creates a lorca window. lorca.New satisfies it.
type UIFactory func(url, dir string, width, height int, customArgs ...string) (lorca.UI, error)

// NativeConfig holds configuration options for the NativeHost.
type NativeConfig struct {
	Title      string       // Optional, shown on the loading page.
	ProfileDir string       // Browser profile directory, kept under the user-data root.
	Width      int          // Optional, defaults to 1280.
	Height     int          // Optional, defaults to 850.
	Logger     *slog.Logger // Optional, defaults to slog.Default().
	NewUI      UIFactory    // Optional, defaults to lorca.New.
}

// NativeHost shows the backend in a Chrome/Edge app window driven by lorca.
// The window opens minimized and off screen on a loading page, and Reveal
// navigates it to the backend before maximizing it.
type NativeHost struct {
	title      string
	profileDir string
	width      int
	height     int
	logger     *slog.Logger
	newUI      UIFactory

	mu         sync.Mutex
	ui         lorca.UI
	visibility Visibility
	closeOnce  sync.Once
}

// NewNativeHost creates a NativeHost. No window exists until Open.
func NewNativeHost(config NativeConfig) *NativeHost {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	width := config.Width
	if width <= 0 {
		width = defaultWidth
	}
	height := config.Height
	if height <= 0 {
		height = defaultHeight
	}
	title := config.Title
	if title == "" {
		title = defaultTitle
	}
	newUI := config.NewUI
	if newUI == nil {
		newUI = lorca.New
	}

	return &NativeHost{
		title:      title,
		profileDir: config.ProfileDir,
		width:      width,
		height:     height,
		logger:     logger.With("component", "NativeHost"),
		newUI:      newUI,
	}
}

// Open launches the window on the loading page and minimizes it.
func (h *NativeHost) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ui != nil {
		return nil
	}

	ui, err := h.newUI(LoadingPageURL(h.title), h.profileDir, h.width, h.height, offscreenArg)
	if err != nil {
		return fmt.Errorf("failed to open native window: %w", err)
	}
	h.ui = ui
	h.visibility = Hidden

	if err := ui.SetBounds(lorca.Bounds{WindowState: lorca.WindowStateMinimized}); err != nil {
		h.logger.Warn("Failed to minimize window while waiting for backend", "error", err)
	}
	h.logger.Info("Native window created hidden", "profileDir", h.profileDir)
	return nil
}

// Reveal loads address and maximizes the window.
func (h *NativeHost) Reveal(address string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ui == nil {
		return ErrNotOpen
	}
	if h.visibility == Visible {
		return nil
	}

	if err := h.ui.Load(address); err != nil {
		return fmt.Errorf("failed to load %s: %w", address, err)
	}
	// Chrome only accepts a new window state from the normal state.
	if err := h.ui.SetBounds(lorca.Bounds{Left: 0, Top: 0, Width: h.width, Height: h.height, WindowState: lorca.WindowStateNormal}); err != nil {
		h.logger.Warn("Failed to restore window", "error", err)
	}
	if err := h.ui.SetBounds(lorca.Bounds{WindowState: lorca.WindowStateMaximized}); err != nil {
		h.logger.Warn("Failed to maximize window", "error", err)
	}
	h.visibility = Visible
	h.logger.Info("Native window revealed", "address", address)
	return nil
}

// Visibility returns the current presentation state.
func (h *NativeHost) Visibility() Visibility {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.visibility
}

// Done is closed when the browser window goes away.
func (h *NativeHost) Done() <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ui == nil {
		return nil
	}
	return h.ui.Done()
}

// Err is always nil: lorca only reports the window going away.
func (h *NativeHost) Err() error {
	return nil
}

// Close closes the window. It is safe to call more than once.
func (h *NativeHost) Close() error {
	h.mu.Lock()
	ui := h.ui
	h.mu.Unlock()
	if ui == nil {
		return nil
	}

	var err error
	h.closeOnce.Do(func() {
		err = ui.Close()
	})
	return err
}

// LoadingPageURL returns a data URL for the intermediary page shown while the
// backend starts.
func LoadingPageURL(title string) string {
	page := `<!DOCTYPE html><html><head><meta charset="utf-8"><title>` + html.EscapeString(title) + `</title>
<style>
body{margin:0;height:100vh;display:flex;align-items:center;justify-content:center;font-family:sans-serif;background:#f5f5f5;color:#333}
.spinner{width:48px;height:48px;border:5px solid #ddd;border-top-color:#3273dc;border-radius:50%;animation:spin 1s linear infinite;margin:0 auto 16px}
@keyframes spin{to{transform:rotate(360deg)}}
</style></head>
<body><div><div class="spinner"></div><p>Starting ` + html.EscapeString(title) + `&hellip;</p></div></body></html>`
	return "data:text/html," + url.PathEscape(page)
}
