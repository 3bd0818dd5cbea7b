// Package document lays out the printable registration record and writes it
// as a PDF.
//
// Layout is a single top-down pass: every instruction declares its height,
// the cursor checks the remaining page space before emitting it and breaks to
// a new page when it would not fit. Only the header band is absolutely
// positioned. Coordinates are millimetres from the top-left page corner.
package document

import (
	"fmt"
	"strings"
)

// Geometry of an A4 portrait page.
const (
	PageWidth  = 210.0
	PageHeight = 297.0

	marginLeft   = 20.0
	marginRight  = 190.0
	pageCenter   = PageWidth / 2
	contentWidth = marginRight - marginLeft

	headerHeight   = 25.0
	headerBaseline = 17.0
	firstCursor    = 40.0 // cursor after the header band on page 1
	continuedTop   = 30.0 // cursor on every following page
	contentBottom  = 278.0
)

type ElementKind int

const (
	KindText ElementKind = iota
	KindRect
	KindImage
)

type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

type FontStyle int

const (
	StyleRegular FontStyle = iota
	StyleBold
	StyleItalic
)

// Color is an sRGB colour.
type Color struct{ R, G, B uint8 }

func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

var (
	colorBrand     = Color{37, 99, 235}
	colorText      = Color{30, 41, 59}
	colorLightText = Color{100, 116, 139}
	colorWhite     = Color{255, 255, 255}
	colorRule      = Color{200, 200, 200}
	colorPanel     = Color{248, 250, 252}
	colorPanelLine = Color{226, 232, 240}
)

// Element is one positioned drawing instruction.
type Element struct {
	Kind ElementKind
	X, Y float64
	// Width and Height apply to rects and images.
	Width, Height float64

	Text     string
	FontSize int
	Style    FontStyle
	Align    Align
	Color    Color // text colour, or rect border colour when Stroked

	Fill    *Color
	Stroked bool

	JPEG []byte // image payload, already normalized
}

type Page struct {
	Elements []Element
}

// Document is the rendered registration record.
type Document struct {
	Filename string
	Pages    []Page
	// ImageFallback is set when the house photo could not be embedded.
	ImageFallback bool
}

// Text returns every text element in emission order, one per line.
func (d *Document) Text() string {
	var b strings.Builder
	for _, p := range d.Pages {
		for _, e := range p.Elements {
			if e.Kind != KindText {
				continue
			}
			b.WriteString(e.Text)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Contains reports whether s appears in any text element.
func (d *Document) Contains(s string) bool {
	return strings.Contains(d.Text(), s)
}

// Images counts the embedded images.
func (d *Document) Images() int {
	n := 0
	for _, p := range d.Pages {
		for _, e := range p.Elements {
			if e.Kind == KindImage {
				n++
			}
		}
	}
	return n
}

// cursor is the layout state {pageIndex, verticalOffset}; it only lives for
// the duration of one Render call.
type cursor struct {
	doc  *Document
	page int
	y    float64
}

func newCursor(doc *Document) *cursor {
	doc.Pages = append(doc.Pages, Page{})
	return &cursor{doc: doc, page: 0, y: firstCursor}
}

// reserve starts a new page when height does not fit below the cursor.
// An element taller than a whole page is placed at the top of a fresh page.
func (c *cursor) reserve(height float64) {
	if c.y+height <= contentBottom || c.y == continuedTop {
		return
	}
	c.doc.Pages = append(c.doc.Pages, Page{})
	c.page++
	c.y = continuedTop
}

func (c *cursor) advance(dy float64) {
	c.y += dy
}

func (c *cursor) emit(e Element) {
	p := &c.doc.Pages[c.page]
	p.Elements = append(p.Elements, e)
}

func (c *cursor) text(x float64, value string, size int, style FontStyle, col Color, align Align) {
	c.emit(Element{
		Kind:     KindText,
		X:        x,
		Y:        c.y,
		Text:     value,
		FontSize: size,
		Style:    style,
		Color:    col,
		Align:    align,
	})
}

// wrapText splits s on word boundaries into lines of at most width runes.
// Words longer than width are hard-split.
func wrapText(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	var line []rune
	for _, w := range words {
		r := []rune(w)
		for len(r) > width {
			if len(line) > 0 {
				lines = append(lines, string(line))
				line = nil
			}
			lines = append(lines, string(r[:width]))
			r = r[width:]
		}
		switch {
		case len(line) == 0:
			line = append(line, r...)
		case len(line)+1+len(r) <= width:
			line = append(line, ' ')
			line = append(line, r...)
		default:
			lines = append(lines, string(line))
			line = append([]rune(nil), r...)
		}
	}
	if len(line) > 0 {
		lines = append(lines, string(line))
	}
	return lines
}
