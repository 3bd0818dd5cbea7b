// Package tui is the terminal front end of the registration wizard.
//
// Every screen is derived from the controller's current step; the App only
// keeps presentation state (cursor, text inputs, spinner, notices). The two
// slow operations, recommendation and submission, run as tea.Cmds and block
// further input on their screen until their result message arrives.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Lllllllleong/planregistration/internal/document"
	"github.com/Lllllllleong/planregistration/internal/services"
	"github.com/Lllllllleong/planregistration/internal/wizard"
)

const recommendTimeout = 30 * time.Second

const (
	msgDescribeNeeds = "Ceritakan kebutuhan internet Anda terlebih dahulu."
	msgBadDate       = "Format jadwal instalasi: YYYY-MM-DD."
	msgSubmitFailed  = "Pendaftaran gagal dikirim. Data Anda tetap tersimpan, silakan coba lagi."
	msgRenderFailed  = "Dokumen gagal dibuat. Silakan coba lagi."
	msgImageFallback = "Foto rumah tidak dapat dimuat; dokumen memakai keterangan teks."
)

// Recommender is the recommendation boundary used by the plan screen.
type Recommender interface {
	Recommend(ctx context.Context, description string) services.Outcome
}

// detail inputs, in form order
const (
	inputFullName = iota
	inputNationalID
	inputEmail
	inputPhone
	inputAddress
	inputInstallDate
	inputPhotoPath
	inputCount
)

var detailFields = [...]wizard.Field{
	inputFullName:   wizard.FieldFullName,
	inputNationalID: wizard.FieldNationalID,
	inputEmail:      wizard.FieldEmail,
	inputPhone:      wizard.FieldPhone,
	inputAddress:    wizard.FieldInstallAddress,
}

type recommendationMsg struct {
	outcome services.Outcome
}

type submitResultMsg struct {
	registrationID string
	err            error
}

type documentSavedMsg struct {
	path          string
	imageFallback bool
	err           error
}

// Option customizes App construction for tests and alternate runtimes.
type Option func(*App)

// WithFileReader replaces the reader used for the house photo path.
func WithFileReader(read func(string) ([]byte, error)) Option {
	return func(a *App) {
		if read != nil {
			a.readFile = read
		}
	}
}

// WithDocumentWriter replaces how the rendered record is written to disk.
func WithDocumentWriter(write func(doc *document.Document, dir string) (string, error)) Option {
	return func(a *App) {
		if write != nil {
			a.savePDF = write
		}
	}
}

// App is the bubbletea model of one registration session.
type App struct {
	ctx         context.Context
	ctrl        *wizard.Controller
	recommender Recommender
	renderer    *document.Renderer
	outputDir   string
	readFile    func(string) ([]byte, error)
	savePDF     func(doc *document.Document, dir string) (string, error)

	// plan selection
	cursor        int
	prompt        textinput.Model
	promptFocused bool
	recommending  bool

	// personal details
	inputs []textinput.Model
	focus  int

	submitting bool
	saving     bool
	savedPath  string

	spinner spinner.Model
	notice  string // non-blocking information
	errMsg  string // inline validation or failure

	width  int
	height int
}

// NewApp starts the wizard on the plan catalog screen.
func NewApp(ctx context.Context, ctrl *wizard.Controller, rec Recommender, renderer *document.Renderer, outputDir string, opts ...Option) *App {
	a := &App{
		ctx:         ctx,
		ctrl:        ctrl,
		recommender: rec,
		renderer:    renderer,
		outputDir:   outputDir,
		readFile:    os.ReadFile,
		savePDF:     document.SavePDF,
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
	}

	a.prompt = newInput("Contoh: rumah 4 orang, sering meeting online dan streaming")
	a.prompt.Prompt = "Kebutuhan: "

	placeholders := [inputCount]string{
		"Sesuai KTP",
		"16 digit",
		"nama@email.com",
		"08xxxxxxxxxx",
		"Jalan, RT/RW, kelurahan, kota",
		"YYYY-MM-DD (opsional)",
		"/path/ke/foto-rumah.jpg",
	}
	a.inputs = make([]textinput.Model, inputCount)
	for i := range a.inputs {
		a.inputs[i] = newInput(placeholders[i])
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = ""
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

func (a *App) Init() tea.Cmd {
	return nil
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		return a, nil

	case spinner.TickMsg:
		if !a.busy() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case recommendationMsg:
		a.handleRecommendation(msg.outcome)
		return a, nil

	case submitResultMsg:
		a.handleSubmitResult(msg)
		return a, nil

	case documentSavedMsg:
		a.saving = false
		if msg.err != nil {
			slog.Error("Registration document could not be saved.", "error", msg.err)
			a.errMsg = msgRenderFailed
			return a, nil
		}
		a.errMsg = ""
		a.savedPath = msg.path
		if msg.imageFallback {
			a.notice = msgImageFallback
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.busy() {
			return a, nil
		}
		switch a.ctrl.Step() {
		case wizard.StepPlanSelection:
			return a.updatePlanSelection(msg)
		case wizard.StepPersonalDetails:
			return a.updatePersonalDetails(msg)
		case wizard.StepConfirmation:
			return a.updateConfirmation(msg)
		case wizard.StepSuccess:
			return a.updateSuccess(msg)
		}
	}
	return a, nil
}

func (a *App) busy() bool {
	return a.recommending || a.submitting || a.saving
}

// --- plan selection ---

func (a *App) updatePlanSelection(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "tab" || msg.String() == "shift+tab" {
		a.promptFocused = !a.promptFocused
		if a.promptFocused {
			a.prompt.Focus()
		} else {
			a.prompt.Blur()
		}
		return a, nil
	}

	if a.promptFocused {
		if msg.String() == "enter" {
			return a, a.startRecommendation()
		}
		var cmd tea.Cmd
		a.prompt, cmd = a.prompt.Update(msg)
		return a, cmd
	}

	plans := a.ctrl.Catalog().Plans()
	switch msg.String() {
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(plans)-1 {
			a.cursor++
		}
	case "enter":
		a.errMsg = ""
		if err := a.ctrl.SelectPlan(plans[a.cursor].ID); err != nil {
			a.errMsg = userMessage(err)
			return a, nil
		}
		a.advance()
	case "q":
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) startRecommendation() tea.Cmd {
	description := strings.TrimSpace(a.prompt.Value())
	if description == "" {
		a.notice = msgDescribeNeeds
		return nil
	}
	a.recommending = true
	a.notice = ""
	rec, parent := a.recommender, a.ctx
	return tea.Batch(a.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, recommendTimeout)
		defer cancel()
		return recommendationMsg{outcome: rec.Recommend(ctx, description)}
	})
}

func (a *App) handleRecommendation(out services.Outcome) {
	a.recommending = false
	if !out.OK() {
		slog.Warn("Recommendation unavailable.", "failure", string(out.Failure), "error", out.Err)
		a.notice = services.UnavailableNotice
		return
	}
	if err := a.ctrl.ApplyRecommendation(*out.Recommendation); err != nil {
		slog.Warn("Recommendation could not be applied.", "error", err)
		a.notice = services.UnavailableNotice
		return
	}
	for i, p := range a.ctrl.Catalog().Plans() {
		if p.ID == out.Recommendation.RecommendedPlanID {
			a.cursor = i
		}
	}
	a.promptFocused = false
	a.prompt.Blur()
	a.notice = out.Recommendation.Reasoning
}

// --- personal details ---

func (a *App) updatePersonalDetails(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.commitDetails()
		a.errMsg = ""
		a.retreat()
		return a, nil
	case "tab", "down":
		a.setFocus((a.focus + 1) % inputCount)
		return a, nil
	case "shift+tab", "up":
		a.setFocus((a.focus + inputCount - 1) % inputCount)
		return a, nil
	case "enter":
		if a.focus < inputCount-1 {
			a.setFocus(a.focus + 1)
			return a, nil
		}
		if a.commitDetails() {
			a.advance()
		}
		return a, nil
	}
	var cmd tea.Cmd
	a.inputs[a.focus], cmd = a.inputs[a.focus].Update(msg)
	return a, cmd
}

func (a *App) setFocus(i int) {
	a.inputs[a.focus].Blur()
	a.focus = i
	a.inputs[a.focus].Focus()
}

// commitDetails writes the form into the record. It reports false, with an
// inline message, when an input cannot be interpreted.
func (a *App) commitDetails() bool {
	for i, f := range detailFields {
		if err := a.ctrl.SetField(f, a.inputs[i].Value()); err != nil {
			a.errMsg = userMessage(err)
			return false
		}
	}

	var date *time.Time
	if s := strings.TrimSpace(a.inputs[inputInstallDate].Value()); s != "" {
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			a.errMsg = msgBadDate
			return false
		}
		date = &d
	}
	if err := a.ctrl.SetPreferredInstallDate(date); err != nil {
		a.errMsg = userMessage(err)
		return false
	}

	var photo []byte
	if path := strings.TrimSpace(a.inputs[inputPhotoPath].Value()); path != "" {
		data, err := a.readFile(path)
		if err != nil {
			slog.Warn("House photo could not be read.", "path", path, "error", err)
			a.errMsg = fmt.Sprintf("Foto rumah tidak dapat dibaca: %s", path)
			return false
		}
		photo = data
	}
	if err := a.ctrl.AttachHousePhoto(photo); err != nil {
		a.errMsg = userMessage(err)
		return false
	}
	return true
}

// --- confirmation ---

func (a *App) updateConfirmation(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "b":
		a.errMsg = ""
		a.retreat()
		a.setFocus(0)
	case "enter", "s":
		return a, a.startSubmit()
	case "q":
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) startSubmit() tea.Cmd {
	a.submitting = true
	a.errMsg = ""
	ctrl, ctx := a.ctrl, a.ctx
	return tea.Batch(a.spinner.Tick, func() tea.Msg {
		id, err := ctrl.Submit(ctx)
		return submitResultMsg{registrationID: id, err: err}
	})
}

func (a *App) handleSubmitResult(msg submitResultMsg) {
	a.submitting = false
	if msg.err != nil {
		slog.Error("Registration submission failed.", "error", msg.err)
		var verr *wizard.ValidationError
		if errors.As(msg.err, &verr) {
			a.errMsg = verr.Message
			return
		}
		a.errMsg = msgSubmitFailed
		return
	}
	slog.Info("Registration submitted.", "registrationId", msg.registrationID)
	a.notice = ""
}

// --- success ---

func (a *App) updateSuccess(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "d", "enter":
		return a, a.startSave()
	case "q", "esc":
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) startSave() tea.Cmd {
	snap := a.ctrl.Snapshot()
	if snap.Plan == nil || snap.RegistrationID == "" {
		a.errMsg = msgRenderFailed
		return nil
	}
	a.saving = true
	a.errMsg = ""
	renderer, write, dir := a.renderer, a.savePDF, a.outputDir
	return tea.Batch(a.spinner.Tick, func() tea.Msg {
		doc, err := renderer.Render(snap.Record, *snap.Plan, snap.RegistrationID)
		if err != nil {
			return documentSavedMsg{err: err}
		}
		path, err := write(doc, dir)
		return documentSavedMsg{path: path, imageFallback: doc.ImageFallback, err: err}
	})
}

// --- transitions ---

func (a *App) advance() {
	if err := a.ctrl.Advance(); err != nil {
		a.errMsg = userMessage(err)
		return
	}
	a.errMsg = ""
	if a.ctrl.Step() == wizard.StepPersonalDetails {
		a.setFocus(a.focus)
	}
}

func (a *App) retreat() {
	if err := a.ctrl.Retreat(); err != nil {
		a.errMsg = userMessage(err)
	}
}

// userMessage turns controller errors into customer-facing text.
func userMessage(err error) string {
	var verr *wizard.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, wizard.ErrTransitionPending):
		return "Mohon tunggu, proses sebelumnya belum selesai."
	case errors.Is(err, wizard.ErrUnknownPlan):
		return "Paket yang dipilih tidak tersedia. Silakan pilih ulang paket."
	default:
		return err.Error()
	}
}
