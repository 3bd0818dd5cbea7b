package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Lllllllleong/planregistration/internal/catalog"
	"github.com/Lllllllleong/planregistration/internal/wizard"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2563EB"))
	stepStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2563EB"))
	priceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#059669"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#D97706"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626"))
	successStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#059669"))
	spinnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#2563EB"))
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#2563EB")).Padding(0, 1)
)

var fieldLabels = [inputCount]string{
	inputFullName:    "Nama Lengkap",
	inputNationalID:  "NIK",
	inputEmail:       "Email",
	inputPhone:       "No. HP",
	inputAddress:     "Alamat Pemasangan",
	inputInstallDate: "Jadwal Instalasi",
	inputPhotoPath:   "Foto Rumah",
}

func (a *App) View() string {
	var b strings.Builder

	step := a.ctrl.Step()
	b.WriteString(titleStyle.Render("Pendaftaran Layanan Internet"))
	b.WriteString("\n")
	b.WriteString(stepStyle.Render(fmt.Sprintf("Langkah %d dari 4 · %s", int(step)+1, step.Title())))
	b.WriteString("\n\n")

	switch step {
	case wizard.StepPlanSelection:
		a.viewPlanSelection(&b)
	case wizard.StepPersonalDetails:
		a.viewPersonalDetails(&b)
	case wizard.StepConfirmation:
		a.viewConfirmation(&b)
	case wizard.StepSuccess:
		a.viewSuccess(&b)
	}

	if a.notice != "" {
		b.WriteString("\n")
		b.WriteString(noticeStyle.Render(a.notice))
		b.WriteString("\n")
	}
	if a.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(a.errMsg))
		b.WriteString("\n")
	}
	return b.String()
}

func (a *App) viewPlanSelection(b *strings.Builder) {
	snap := a.ctrl.Snapshot()
	for i, p := range a.ctrl.Catalog().Plans() {
		marker := "  "
		name := p.Name
		if i == a.cursor && !a.promptFocused {
			marker = "> "
			name = selectedStyle.Render(name)
		}
		if p.ID == snap.Record.SelectedPlanID {
			name += " ✓"
		}
		fmt.Fprintf(b, "%s%s  %s\n", marker, name, priceStyle.Render(catalog.FormatMonthlyPrice(p.MonthlyPrice)))
		if p.Speed != "" {
			fmt.Fprintf(b, "    %s\n", mutedStyle.Render(p.Speed))
		}
		for _, f := range p.Features {
			fmt.Fprintf(b, "    • %s\n", f)
		}
		if p.EligibilityNote != "" {
			fmt.Fprintf(b, "    %s\n", mutedStyle.Render(p.EligibilityNote))
		}
	}

	b.WriteString("\n")
	b.WriteString("Bingung memilih? Biarkan AI membantu.\n")
	b.WriteString(a.prompt.View())
	b.WriteString("\n")
	if a.recommending {
		b.WriteString(a.spinner.View() + " Mencari paket yang cocok...\n")
	}

	b.WriteString("\n")
	if a.promptFocused {
		b.WriteString(mutedStyle.Render("enter: minta rekomendasi · tab: daftar paket · ctrl+c: keluar"))
	} else {
		b.WriteString(mutedStyle.Render("↑/↓: pilih · enter: lanjut · tab: rekomendasi AI · q: keluar"))
	}
	b.WriteString("\n")
}

func (a *App) viewPersonalDetails(b *strings.Builder) {
	for i := range a.inputs {
		label := fieldLabels[i]
		if i == a.focus {
			label = selectedStyle.Render(label)
		}
		fmt.Fprintf(b, "%s\n  %s\n", label, a.inputs[i].View())
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("tab/↓: berikutnya · shift+tab/↑: sebelumnya · enter: lanjut · esc: kembali"))
	b.WriteString("\n")
}

func (a *App) viewConfirmation(b *strings.Builder) {
	snap := a.ctrl.Snapshot()
	rec := snap.Record

	var plan strings.Builder
	if snap.Plan != nil {
		fmt.Fprintf(&plan, "%s\n%s", selectedStyle.Render(snap.Plan.Name), priceStyle.Render(catalog.FormatMonthlyPrice(snap.Plan.MonthlyPrice)))
	}
	b.WriteString(panelStyle.Render(plan.String()))
	b.WriteString("\n\n")

	rows := [][2]string{
		{fieldLabels[inputFullName], rec.FullName},
		{fieldLabels[inputNationalID], rec.NationalID},
		{fieldLabels[inputEmail], rec.Email},
		{fieldLabels[inputPhone], rec.Phone},
		{fieldLabels[inputAddress], rec.InstallAddress},
	}
	if rec.PreferredInstallDate != nil {
		rows = append(rows, [2]string{fieldLabels[inputInstallDate], rec.PreferredInstallDate.Format("2/1/2006")})
	}
	photo := "-"
	if len(rec.HousePhoto) > 0 {
		photo = fmt.Sprintf("terlampir (%d byte)", len(rec.HousePhoto))
	}
	rows = append(rows, [2]string{fieldLabels[inputPhotoPath], photo})
	for _, r := range rows {
		fmt.Fprintf(b, "%-18s: %s\n", r[0], r[1])
	}

	b.WriteString("\n")
	if a.submitting {
		b.WriteString(a.spinner.View() + " Mengirim pendaftaran...\n")
		return
	}
	b.WriteString(mutedStyle.Render("enter/s: kirim pendaftaran · esc/b: ubah data · q: keluar"))
	b.WriteString("\n")
}

func (a *App) viewSuccess(b *strings.Builder) {
	b.WriteString(successStyle.Render("Pendaftaran berhasil!"))
	b.WriteString("\n")
	fmt.Fprintf(b, "Nomor pendaftaran: %s\n\n", a.ctrl.RegistrationID())

	switch {
	case a.saving:
		b.WriteString(a.spinner.View() + " Membuat dokumen...\n")
	case a.savedPath != "":
		fmt.Fprintf(b, "Bukti pendaftaran tersimpan di %s\n", a.savedPath)
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("d: unduh bukti pendaftaran (PDF) · q: keluar"))
	b.WriteString("\n")
}
