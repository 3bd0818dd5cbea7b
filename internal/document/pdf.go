package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const pointsPerMM = 72.0 / 25.4

// pdfSpec mirrors the page description accepted by pdfcpu's create command.
type pdfSpec struct {
	Paper  string             `json:"paper"`
	Origin string             `json:"origin"`
	Pages  map[string]pdfPage `json:"pages"`
}

type pdfPage struct {
	Content pdfContent `json:"content"`
}

type pdfContent struct {
	Text  []pdfText  `json:"text,omitempty"`
	Box   []pdfBox   `json:"box,omitempty"`
	Image []pdfImage `json:"image,omitempty"`
}

type pdfFont struct {
	Name  string `json:"name"`
	Size  int    `json:"size"`
	Color string `json:"col"`
}

type pdfText struct {
	Value string     `json:"value"`
	Pos   [2]float64 `json:"pos"`
	Align string     `json:"align"`
	Font  pdfFont    `json:"font"`
}

type pdfBorder struct {
	Width int    `json:"width"`
	Color string `json:"col"`
}

type pdfBox struct {
	Pos       [2]float64 `json:"pos"`
	Width     float64    `json:"width"`
	Height    float64    `json:"height"`
	FillColor string     `json:"fillCol,omitempty"`
	Border    *pdfBorder `json:"border,omitempty"`
}

type pdfImage struct {
	Src    string     `json:"src"`
	Pos    [2]float64 `json:"pos"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
}

// WritePDF renders doc as a PDF to w.
func WritePDF(doc *Document, w io.Writer) error {
	if doc == nil || len(doc.Pages) == 0 {
		return errors.New("document: nothing to write")
	}

	// pdfcpu reads images from files referenced by the page description.
	tempDir, err := os.MkdirTemp("", "registration-pdf-*")
	if err != nil {
		return fmt.Errorf("document: create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	spec, err := buildSpec(doc, tempDir)
	if err != nil {
		return err
	}
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("document: marshal page description: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	if err := api.Create(nil, bytes.NewReader(specJSON), w, conf); err != nil {
		return fmt.Errorf("document: create pdf: %w", err)
	}
	return nil
}

// RenderPDF renders doc into memory.
func RenderPDF(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePDF(doc, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SavePDF writes doc into dir under doc.Filename and returns the full path.
func SavePDF(doc *Document, dir string) (string, error) {
	data, err := RenderPDF(doc)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, doc.Filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("document: write %s: %w", path, err)
	}
	return path, nil
}

func buildSpec(doc *Document, imageDir string) (*pdfSpec, error) {
	spec := &pdfSpec{
		Paper:  "A4P",
		Origin: "UpperLeft",
		Pages:  make(map[string]pdfPage, len(doc.Pages)),
	}
	imageCount := 0
	for i, page := range doc.Pages {
		var content pdfContent
		for _, e := range page.Elements {
			switch e.Kind {
			case KindText:
				content.Text = append(content.Text, pdfText{
					Value: e.Text,
					Pos:   points(e.X, e.Y),
					Align: alignName(e.Align),
					Font: pdfFont{
						Name:  fontName(e.Style),
						Size:  e.FontSize,
						Color: e.Color.Hex(),
					},
				})
			case KindRect:
				box := pdfBox{
					Pos:    lowerLeft(e),
					Width:  e.Width * pointsPerMM,
					Height: e.Height * pointsPerMM,
				}
				if e.Fill != nil {
					box.FillColor = e.Fill.Hex()
				}
				if e.Stroked {
					box.Border = &pdfBorder{Width: 1, Color: e.Color.Hex()}
				}
				content.Box = append(content.Box, box)
			case KindImage:
				imageCount++
				path := filepath.Join(imageDir, fmt.Sprintf("image-%d.jpg", imageCount))
				if err := os.WriteFile(path, e.JPEG, 0o600); err != nil {
					return nil, fmt.Errorf("document: stage image: %w", err)
				}
				content.Image = append(content.Image, pdfImage{
					Src:    path,
					Pos:    lowerLeft(e),
					Width:  e.Width * pointsPerMM,
					Height: e.Height * pointsPerMM,
				})
			default:
				return nil, fmt.Errorf("document: unknown element kind %d", e.Kind)
			}
		}
		spec.Pages[strconv.Itoa(i+1)] = pdfPage{Content: content}
	}
	return spec, nil
}

func points(x, y float64) [2]float64 {
	return [2]float64{x * pointsPerMM, y * pointsPerMM}
}

// lowerLeft is the anchor pdfcpu expects for boxes and images: their bottom
// edge, while the layout records the top edge.
func lowerLeft(e Element) [2]float64 {
	return points(e.X, e.Y+e.Height)
}

func alignName(a Align) string {
	switch a {
	case AlignCenter:
		return "Center"
	case AlignRight:
		return "Right"
	default:
		return "Left"
	}
}

func fontName(s FontStyle) string {
	switch s {
	case StyleBold:
		return "Helvetica-Bold"
	case StyleItalic:
		return "Helvetica-Oblique"
	default:
		return "Helvetica"
	}
}
