//go:build windows

package config

import (
	"errors"

	"golang.org/x/sys/windows"
)

const (
	smCxScreen = 0
	smCyScreen = 1
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procGetSystemMetrics = user32.NewProc("GetSystemMetrics")
)

// DesktopDimensions returns the primary display's width and height in
// pixels. Used when the configured resolution is 0 ("auto-detect").
func DesktopDimensions() (uint32, uint32, error) {
	w, _, _ := procGetSystemMetrics.Call(smCxScreen)
	h, _, _ := procGetSystemMetrics.Call(smCyScreen)
	if w == 0 || h == 0 {
		return 0, 0, errors.New("GetSystemMetrics returned zero dimensions")
	}
	return uint32(w), uint32(h), nil
}
