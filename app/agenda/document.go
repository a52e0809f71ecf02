package agenda

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// US letter, used when a page carries no MediaBox anywhere in its page tree.
const (
	letterWidth  = 612.0
	letterHeight = 792.0
)

type pdfDocument struct {
	reader *pdf.Reader
}

// OpenDocument reads PDF bytes. Only document-level problems (bad header,
// broken xref) are reported here; per-page problems surface from Page.
func OpenDocument(data []byte) (doc Document, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("PDF data is empty")
	}

	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	return &pdfDocument{reader: reader}, nil
}

func (d *pdfDocument) NumPages() (n int) {
	defer func() {
		if r := recover(); r != nil {
			n = 0
		}
	}()
	return d.reader.NumPage()
}

// Page recovers from the panics ledongthuc/pdf raises on malformed content streams.
func (d *pdfDocument) Page(num int) (content PageContent, err error) {
	defer func() {
		if r := recover(); r != nil {
			content = PageContent{}
			err = fmt.Errorf("failed to read page %d: %v", num, r)
		}
	}()

	page := d.reader.Page(num)
	if page.V.IsNull() {
		return PageContent{}, fmt.Errorf("page %d not found", num)
	}

	content.Width, content.Height = mediaBox(page.V)

	raw := page.Content()
	content.Glyphs = make([]Glyph, 0, len(raw.Text))
	for _, t := range raw.Text {
		content.Glyphs = append(content.Glyphs, Glyph{
			X:    t.X,
			Y:    t.Y,
			W:    t.W,
			Size: t.FontSize,
			S:    t.S,
		})
	}

	content.Rects = make([]Rect, 0, len(raw.Rect))
	for _, r := range raw.Rect {
		content.Rects = append(content.Rects, Rect{
			MinX: r.Min.X,
			MinY: r.Min.Y,
			MaxX: r.Max.X,
			MaxY: r.Max.Y,
		})
	}

	return content, nil
}

// mediaBox walks up the page tree since MediaBox is an inheritable attribute.
func mediaBox(v pdf.Value) (float64, float64) {
	node := v
	for depth := 0; depth < 32 && !node.IsNull(); depth++ {
		box := node.Key("MediaBox")
		if box.Len() == 4 {
			width := box.Index(2).Float64() - box.Index(0).Float64()
			height := box.Index(3).Float64() - box.Index(1).Float64()
			if width > 0 && height > 0 {
				return width, height
			}
		}
		node = node.Key("Parent")
	}
	return letterWidth, letterHeight
}
