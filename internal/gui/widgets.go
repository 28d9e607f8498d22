package gui

import (
	"fmt"
	goimage "image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"

	"codeberg.org/snonux/flashpix/internal/image"
)

const thumbnailWidth, thumbnailHeight = 200, 150

// CandidateTile shows one search result with its thumbnail and a button
// to select it
type CandidateTile struct {
	widget.BaseWidget

	container   *fyne.Container
	imageCanvas *canvas.Image
	imageLabel  *widget.Label
	button      *ttwidget.Button
}

// NewCandidateTile creates a tile for c. onSelect runs when its button is tapped.
func NewCandidateTile(index int, c image.Candidate, onSelect func()) *CandidateTile {
	t := &CandidateTile{}

	t.imageCanvas = canvas.NewImageFromResource(nil)
	t.imageCanvas.FillMode = canvas.ImageFillContain
	t.imageCanvas.SetMinSize(fyne.NewSize(thumbnailWidth, thumbnailHeight))

	t.imageLabel = widget.NewLabel("Loading...")
	t.imageLabel.Alignment = fyne.TextAlignCenter

	t.button = ttwidget.NewButton(tileLabel(index, c), onSelect)
	if c.Tags != "" {
		t.button.SetToolTip(c.Tags)
	}

	t.container = container.NewBorder(
		nil,
		container.NewVBox(t.imageLabel, t.button),
		nil, nil,
		t.imageCanvas,
	)

	t.ExtendBaseWidget(t)
	return t
}

// CreateRenderer implements fyne.Widget
func (t *CandidateTile) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(t.container)
}

// SetImage shows a decoded thumbnail
func (t *CandidateTile) SetImage(img goimage.Image) {
	t.imageCanvas.Image = img
	t.imageCanvas.Refresh()
	t.imageLabel.SetText("")
}

// SetError replaces the thumbnail with a short message
func (t *CandidateTile) SetError(err error) {
	t.imageCanvas.Image = nil
	t.imageCanvas.Refresh()
	t.imageLabel.SetText(fmt.Sprintf("No preview: %v", err))
}

// SetSelected highlights the tile
func (t *CandidateTile) SetSelected(selected bool) {
	if selected {
		t.button.Importance = widget.HighImportance
	} else {
		t.button.Importance = widget.MediumImportance
	}
	t.button.Refresh()
}

// tileLabel is the button text of a candidate, numbered from 1
func tileLabel(index int, c image.Candidate) string {
	return fmt.Sprintf("%d. %s %s", index+1, c.Provider, c.Size())
}

// thumbnailURL prefers the provider's preview over the full image
func thumbnailURL(c image.Candidate) string {
	if c.ThumbnailURL != "" {
		return c.ThumbnailURL
	}
	return c.URL
}

// thumbnailFileName keeps thumbnails of different candidates apart even
// when a provider reports no IDs
func thumbnailFileName(term string, index int, c image.Candidate) string {
	return fmt.Sprintf("thumb%d_%s", index, image.MediaFileName(term, c))
}

// loadImage decodes an image file
func loadImage(path string) (goimage.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := goimage.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
