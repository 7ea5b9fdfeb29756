// Package tray puts the loaded scripts in a system tray menu using
// getlantern/systray.
package tray

import (
	"github.com/getlantern/systray"
)

// menuItem couples a menu entry with its click callback.
type menuItem struct {
	title    string
	callback func()
	item     *systray.MenuItem
}

// Tray manages the system tray icon and its script menu.
type Tray struct {
	items   []*menuItem
	tooltip string
	quitCh  chan struct{}
}

// New creates a tray with the given tooltip text.
func New(tooltip string) *Tray {
	return &Tray{
		tooltip: tooltip,
		quitCh:  make(chan struct{}),
	}
}

// AddMenuItem appends a clickable entry to the menu. Callbacks run on
// their own goroutine.
func (t *Tray) AddMenuItem(title string, callback func()) {
	t.items = append(t.items, &menuItem{title: title, callback: callback})
}

// AddSeparator appends a separator to the menu.
func (t *Tray) AddSeparator() {
	t.items = append(t.items, nil) // nil indicates separator
}

// Run starts the tray event loop. Blocks until Stop is called or the user
// quits.
func (t *Tray) Run() {
	systray.Run(t.setupMenu, t.onExit)
}

// Stop removes the tray icon and ends the event loop.
func (t *Tray) Stop() {
	systray.Quit()
}

func (t *Tray) onExit() {
	close(t.quitCh)
}

// setupMenu is called once systray is ready.
func (t *Tray) setupMenu() {
	systray.SetTitle("keyrun")
	systray.SetTooltip(t.tooltip)
	systray.SetIcon(trayIcon())

	for _, mi := range t.items {
		if mi == nil {
			systray.AddSeparator()
			continue
		}
		mi.item = systray.AddMenuItem(mi.title, "")
		if mi.callback == nil {
			continue
		}
		go func(mi *menuItem) {
			for {
				select {
				case <-mi.item.ClickedCh:
					mi.callback()
				case <-t.quitCh:
					return
				}
			}
		}(mi)
	}
}

// trayIcon returns a minimal valid 16x16 32-bit ICO, transparent pixels.
func trayIcon() []byte {
	icon := make([]byte, 1118)
	// ICO header
	copy(icon[0:6], []byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x00})
	// Icon directory
	copy(icon[6:22], []byte{
		0x10, 0x10, 0x00, 0x00, 0x01, 0x00, 0x20, 0x00,
		0x48, 0x04, 0x00, 0x00, // 1024 px + 40 header + 32 mask bytes
		0x16, 0x00, 0x00, 0x00, // offset
	})
	// DIB header
	copy(icon[22:62], []byte{
		0x28, 0x00, 0x00, 0x00, // size
		0x10, 0x00, 0x00, 0x00, // width
		0x20, 0x00, 0x00, 0x00, // height (16 * 2 for the mask)
		0x01, 0x00, // planes
		0x20, 0x00, // bpp
		0x00, 0x00, 0x00, 0x00, // compression
		0x00, 0x04, 0x00, 0x00, // image size
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	})
	return icon
}
