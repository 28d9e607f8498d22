package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// appIcon is shown in the title bar and task switcher
func appIcon() fyne.Resource {
	return theme.FileImageIcon()
}
