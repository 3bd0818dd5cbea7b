package document

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/Lllllllleong/planregistration/internal/catalog"
	"github.com/Lllllllleong/planregistration/internal/models"
)

// Copy holds every literal string printed on the record.
type Copy struct {
	Brand            string
	Title            string
	DateLabel        string
	IDLabel          string
	SectionTitle     string
	CustomerHeading  string
	FullNameLabel    string
	NationalIDLabel  string
	EmailLabel       string
	PhoneLabel       string
	AddressLabel     string
	InstallDateLabel string
	PendingDate      string
	PlanHeading      string
	PriceLabel       string
	PhotoHeading     string
	PhotoFallback    string
	Footer           [2]string
	FilenamePrefix   string
}

// DefaultCopy is the Indonesian copy of the Damar Global Network record.
var DefaultCopy = Copy{
	Brand:            "Damar Global Network",
	Title:            "Bukti Pendaftaran Layanan Internet",
	DateLabel:        "Tanggal",
	IDLabel:          "ID Registrasi",
	SectionTitle:     "Detail Pendaftaran",
	CustomerHeading:  "Informasi Pelanggan",
	FullNameLabel:    "Nama Lengkap",
	NationalIDLabel:  "NIK",
	EmailLabel:       "Email",
	PhoneLabel:       "No. WhatsApp",
	AddressLabel:     "Alamat Pemasangan",
	InstallDateLabel: "Jadwal Instalasi",
	PendingDate:      "Menunggu Konfirmasi",
	PlanHeading:      "Paket Pilihan",
	PriceLabel:       "Biaya Bulanan",
	PhotoHeading:     "Foto Rumah",
	PhotoFallback:    "(Gagal memuat gambar rumah)",
	Footer: [2]string{
		"* Harap kirim via WA ke admin, dan simpan dokumen ini sebagai bukti pendaftaran.",
		"* Tim kami akan menghubungi Anda untuk konfirmasi teknis.",
	},
	FilenamePrefix: "Bukti-Pendaftaran-Damar",
}

// Vertical increments of each layout block.
const (
	metaAdvance        = 10.0
	titleRuleGap       = 4.0
	titleAdvance       = 10.0
	headingAdvance     = 8.0
	rowHeight          = 6.0
	blockGap           = 8.0
	panelHeight        = 30.0
	panelAdvance       = 40.0
	photoHeadingGap    = 5.0
	photoWidth         = 80.0
	photoHeight        = 60.0
	photoAdvance       = 65.0
	fallbackAdvance    = 15.0
	noPhotoAdvance     = 10.0
	footerLineAdvance  = 4.0
	valueColumn        = 70.0
	valueWrapRunes     = 60
	continuationIndent = 2.0
)

// WIB is the timezone the generation date is printed in.
var WIB = time.FixedZone("WIB", 7*60*60)

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Renderer lays out registration records.
type Renderer struct {
	Copy     Copy
	Now      func() time.Time
	Location *time.Location
	Logger   *slog.Logger
}

// NewRenderer returns a renderer with the default copy and the WIB clock.
func NewRenderer() *Renderer {
	return &Renderer{
		Copy:     DefaultCopy,
		Now:      time.Now,
		Location: WIB,
		Logger:   slog.Default(),
	}
}

// Filename returns "<prefix>-<sanitized-full-name>.pdf".
func (r *Renderer) Filename(fullName string) string {
	return fmt.Sprintf("%s-%s.pdf", r.Copy.FilenamePrefix, nonAlphanumeric.ReplaceAllString(fullName, "-"))
}

// Render lays out the record. A house photo that cannot be decoded degrades
// to a text notice; every other problem is returned as an error and no
// document is produced.
func (r *Renderer) Render(rec models.RegistrationRecord, plan catalog.Plan, registrationID string) (*Document, error) {
	if strings.TrimSpace(registrationID) == "" {
		return nil, errors.New("document: registration id is required")
	}
	if plan.ID == "" || plan.Name == "" {
		return nil, errors.New("document: selected plan is required")
	}
	if rec.SelectedPlanID != "" && rec.SelectedPlanID != plan.ID {
		return nil, fmt.Errorf("document: record selects plan %q but plan %q was given", rec.SelectedPlanID, plan.ID)
	}
	if strings.TrimSpace(rec.FullName) == "" {
		return nil, errors.New("document: customer name is required")
	}

	logCtx := r.logger().With("registrationId", registrationID, "planId", plan.ID)
	doc := &Document{Filename: r.Filename(rec.FullName)}
	c := newCursor(doc)

	r.header(c)
	r.metadata(c, registrationID)
	r.sectionTitle(c)
	r.customerBlock(c, rec)
	r.planPanel(c, plan)
	if err := r.photoBlock(c, rec); err != nil {
		logCtx.Warn("House photo could not be embedded; using text fallback.", "error", err)
		doc.ImageFallback = true
	}
	r.footer(c)

	logCtx.Info("Registration record laid out.", "pages", len(doc.Pages), "imageFallback", doc.ImageFallback)
	return doc, nil
}

func (r *Renderer) header(c *cursor) {
	fill := colorBrand
	c.emit(Element{Kind: KindRect, X: 0, Y: 0, Width: PageWidth, Height: headerHeight, Fill: &fill})
	c.emit(Element{Kind: KindText, X: marginLeft, Y: headerBaseline, Text: r.Copy.Brand, FontSize: 18, Style: StyleBold, Color: colorWhite})
	c.emit(Element{Kind: KindText, X: marginRight, Y: headerBaseline, Text: r.Copy.Title, FontSize: 10, Color: colorWhite, Align: AlignRight})
}

func (r *Renderer) metadata(c *cursor, registrationID string) {
	c.reserve(metaAdvance)
	date := r.now().In(r.location()).Format("2/1/2006")
	c.text(marginLeft, fmt.Sprintf("%s: %s", r.Copy.DateLabel, date), 9, StyleRegular, colorText, AlignLeft)
	c.text(marginRight, fmt.Sprintf("%s: %s", r.Copy.IDLabel, registrationID), 9, StyleRegular, colorText, AlignRight)
	c.advance(metaAdvance)
}

func (r *Renderer) sectionTitle(c *cursor) {
	c.reserve(titleRuleGap + titleAdvance)
	c.text(marginLeft, r.Copy.SectionTitle, 14, StyleBold, colorText, AlignLeft)
	c.advance(titleRuleGap)
	rule := colorRule
	c.emit(Element{Kind: KindRect, X: marginLeft, Y: c.y, Width: contentWidth, Height: 0.3, Fill: &rule})
	c.advance(titleAdvance)
}

func (r *Renderer) customerBlock(c *cursor, rec models.RegistrationRecord) {
	installDate := r.Copy.PendingDate
	if rec.PreferredInstallDate != nil {
		installDate = rec.PreferredInstallDate.Format("2/1/2006")
	}
	rows := []struct{ label, value string }{
		{r.Copy.FullNameLabel, rec.FullName},
		{r.Copy.NationalIDLabel, rec.NationalID},
		{r.Copy.EmailLabel, rec.Email},
		{r.Copy.PhoneLabel, rec.Phone},
		{r.Copy.AddressLabel, rec.InstallAddress},
		{r.Copy.InstallDateLabel, installDate},
	}

	c.reserve(headingAdvance + rowHeight)
	c.text(marginLeft, r.Copy.CustomerHeading, 11, StyleBold, colorText, AlignLeft)
	c.advance(headingAdvance)

	for _, row := range rows {
		lines := wrapText(row.value, valueWrapRunes)
		c.reserve(rowHeight * float64(len(lines)))
		c.text(marginLeft, row.label, 10, StyleRegular, colorLightText, AlignLeft)
		for i, line := range lines {
			if i == 0 {
				c.text(valueColumn, ": "+line, 10, StyleRegular, colorText, AlignLeft)
			} else {
				c.text(valueColumn+continuationIndent, line, 10, StyleRegular, colorText, AlignLeft)
			}
			c.advance(rowHeight)
		}
	}
	c.advance(blockGap)
}

func (r *Renderer) planPanel(c *cursor, plan catalog.Plan) {
	c.reserve(headingAdvance + panelAdvance)
	c.text(marginLeft, r.Copy.PlanHeading, 11, StyleBold, colorText, AlignLeft)
	c.advance(headingAdvance)

	top := c.y
	fill := colorPanel
	c.emit(Element{Kind: KindRect, X: marginLeft, Y: top, Width: contentWidth, Height: panelHeight, Fill: &fill, Stroked: true, Color: colorPanelLine})

	c.y = top + 12
	c.text(30, plan.Name, 12, StyleBold, colorBrand, AlignLeft)
	c.y = top + 18
	c.text(30, r.Copy.PriceLabel, 9, StyleRegular, colorLightText, AlignLeft)
	c.text(180, catalog.FormatMonthlyPrice(plan.MonthlyPrice), 11, StyleBold, colorText, AlignRight)

	c.y = top
	c.advance(panelAdvance)
}

// photoBlock embeds the house photo. The returned error is informational: the
// block has already been laid out with the fallback notice.
func (r *Renderer) photoBlock(c *cursor, rec models.RegistrationRecord) error {
	if !rec.HasPhoto() {
		c.advance(noPhotoAdvance)
		return nil
	}

	jpegData, err := normalizePhoto(rec.HousePhoto, photoBoxWidthPx, photoBoxHeightPx)
	if err != nil {
		c.reserve(photoHeadingGap + fallbackAdvance)
		c.text(marginLeft, r.Copy.PhotoHeading, 11, StyleBold, colorText, AlignLeft)
		c.advance(photoHeadingGap)
		c.emit(Element{Kind: KindText, X: marginLeft, Y: c.y + 5, Text: r.Copy.PhotoFallback, FontSize: 9, Style: StyleItalic, Color: colorLightText})
		c.advance(fallbackAdvance)
		return err
	}

	c.reserve(photoHeadingGap + photoAdvance)
	c.text(marginLeft, r.Copy.PhotoHeading, 11, StyleBold, colorText, AlignLeft)
	c.advance(photoHeadingGap)
	c.emit(Element{Kind: KindImage, X: marginLeft, Y: c.y, Width: photoWidth, Height: photoHeight, JPEG: jpegData})
	c.advance(photoAdvance)
	return nil
}

func (r *Renderer) footer(c *cursor) {
	c.reserve(footerLineAdvance * 2)
	c.text(pageCenter, r.Copy.Footer[0], 8, StyleItalic, colorLightText, AlignCenter)
	c.advance(footerLineAdvance)
	c.text(pageCenter, r.Copy.Footer[1], 8, StyleItalic, colorLightText, AlignCenter)
}

func (r *Renderer) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Renderer) location() *time.Location {
	if r.Location == nil {
		return WIB
	}
	return r.Location
}

func (r *Renderer) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
