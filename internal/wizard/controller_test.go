package wizard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Lllllllleong/planregistration/internal/catalog"
	"github.com/Lllllllleong/planregistration/internal/models"
)

type countingSubmitter struct {
	calls   atomic.Int32
	err     error
	release chan struct{}
	started chan struct{}
	last    models.RegistrationRecord
	lastID  string
	mu      sync.Mutex
}

func (s *countingSubmitter) Register(ctx context.Context, id string, rec models.RegistrationRecord, plan catalog.Plan) error {
	s.calls.Add(1)
	s.mu.Lock()
	s.last = rec
	s.lastID = id
	s.mu.Unlock()
	if s.started != nil {
		close(s.started)
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

func newTestController(t *testing.T, s Submitter) *Controller {
	t.Helper()
	if s == nil {
		s = &countingSubmitter{}
	}
	n := 0
	return NewController(catalog.Default(), s, WithIDGenerator(func() string {
		n++
		return "REG-TEST" + strings.Repeat("0", n)
	}))
}

func fillDetails(t *testing.T, c *Controller) {
	t.Helper()
	fields := map[Field]string{
		FieldFullName:       "Budi Santoso",
		FieldNationalID:     "3171234567890001",
		FieldEmail:          "budi@example.com",
		FieldPhone:          "081234567890",
		FieldInstallAddress: "Jl. Merdeka No. 1, Bandung",
	}
	for f, v := range fields {
		if err := c.SetField(f, v); err != nil {
			t.Fatalf("set %s: %v", f, err)
		}
	}
	if err := c.AttachHousePhoto([]byte{0xff, 0xd8, 0xff}); err != nil {
		t.Fatalf("attach photo: %v", err)
	}
}

func toConfirmation(t *testing.T, c *Controller) {
	t.Helper()
	if err := c.SelectPlan("hemat"); err != nil {
		t.Fatalf("select plan: %v", err)
	}
	if err := c.Advance(); err != nil {
		t.Fatalf("advance to details: %v", err)
	}
	fillDetails(t, c)
	if err := c.Advance(); err != nil {
		t.Fatalf("advance to confirmation: %v", err)
	}
}

func TestNewControllerStartsEmpty(t *testing.T) {
	c := newTestController(t, nil)
	snap := c.Snapshot()
	if snap.Step != StepPlanSelection {
		t.Fatalf("expected PLAN_SELECTION, got %s", snap.Step)
	}
	if snap.Record.SelectedPlanID != "" || snap.Record.FullName != "" || snap.Record.HasPhoto() {
		t.Fatalf("expected empty record, got %+v", snap.Record)
	}
	if snap.Plan != nil || snap.RegistrationID != "" {
		t.Fatalf("expected no plan and no id, got %+v", snap)
	}
}

func TestAdvanceFromPlanSelectionRequiresPlan(t *testing.T) {
	c := newTestController(t, nil)

	err := c.Advance()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Step != StepPlanSelection || !verr.Has(FieldPlan) {
		t.Fatalf("unexpected validation error: %+v", verr)
	}
	if verr.Message != "Silakan pilih paket terlebih dahulu." {
		t.Fatalf("unexpected message %q", verr.Message)
	}
	if c.Step() != StepPlanSelection {
		t.Fatalf("expected state unchanged, got %s", c.Step())
	}

	if err := c.SelectPlan("home"); err != nil {
		t.Fatalf("select plan: %v", err)
	}
	if err := c.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if c.Step() != StepPersonalDetails {
		t.Fatalf("expected PERSONAL_DETAILS, got %s", c.Step())
	}
}

func TestPersonalDetailsGateEachField(t *testing.T) {
	required := []Field{FieldFullName, FieldNationalID, FieldEmail, FieldPhone, FieldInstallAddress, FieldHousePhoto}
	for _, missing := range required {
		t.Run(string(missing), func(t *testing.T) {
			c := newTestController(t, nil)
			if err := c.SelectPlan("hemat"); err != nil {
				t.Fatalf("select plan: %v", err)
			}
			if err := c.Advance(); err != nil {
				t.Fatalf("advance: %v", err)
			}
			fillDetails(t, c)
			if missing == FieldHousePhoto {
				if err := c.AttachHousePhoto(nil); err != nil {
					t.Fatalf("detach photo: %v", err)
				}
			} else if err := c.SetField(missing, "   "); err != nil {
				t.Fatalf("clear %s: %v", missing, err)
			}

			err := c.Advance()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if len(verr.Missing) != 1 || verr.Missing[0] != missing {
				t.Fatalf("expected only %s missing, got %v", missing, verr.Missing)
			}
			if !strings.Contains(verr.Message, missing.Label()) {
				t.Fatalf("expected message to name %q, got %q", missing.Label(), verr.Message)
			}
			if c.Step() != StepPersonalDetails {
				t.Fatalf("expected state unchanged, got %s", c.Step())
			}
		})
	}
}

func TestGateMonotonicity(t *testing.T) {
	full := models.RegistrationRecord{
		FullName:       "Siti",
		NationalID:     "1",
		Email:          "s@example.com",
		Phone:          "08",
		InstallAddress: "Jl. A",
		SelectedPlanID: "home",
		HousePhoto:     []byte{1},
	}
	cat := catalog.Default()

	tests := []struct {
		name string
		step Step
		rec  func(models.RegistrationRecord) models.RegistrationRecord
		pass bool
	}{
		{"plan selected", StepPlanSelection, func(r models.RegistrationRecord) models.RegistrationRecord { return r }, true},
		{"plan missing", StepPlanSelection, func(r models.RegistrationRecord) models.RegistrationRecord { r.SelectedPlanID = ""; return r }, false},
		{"details complete", StepPersonalDetails, func(r models.RegistrationRecord) models.RegistrationRecord { return r }, true},
		{"details without photo", StepPersonalDetails, func(r models.RegistrationRecord) models.RegistrationRecord { r.HousePhoto = nil; return r }, false},
		{"details without email", StepPersonalDetails, func(r models.RegistrationRecord) models.RegistrationRecord { r.Email = ""; return r }, false},
		{"confirmation complete", StepConfirmation, func(r models.RegistrationRecord) models.RegistrationRecord { return r }, true},
		{"confirmation unknown plan", StepConfirmation, func(r models.RegistrationRecord) models.RegistrationRecord { r.SelectedPlanID = "gone"; return r }, false},
		{"confirmation missing phone", StepConfirmation, func(r models.RegistrationRecord) models.RegistrationRecord { r.Phone = ""; return r }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := Gate(tt.step, tt.rec(full), cat)
			if tt.pass && verr != nil {
				t.Fatalf("expected gate to pass, got %v", verr)
			}
			if !tt.pass && verr == nil {
				t.Fatal("expected gate to fail")
			}
		})
	}
}

func TestConfirmationGateUnknownPlanMessage(t *testing.T) {
	rec := models.RegistrationRecord{
		FullName: "A", NationalID: "1", Email: "a@b.c", Phone: "1", InstallAddress: "x",
		SelectedPlanID: "retired", HousePhoto: []byte{1},
	}
	verr := Gate(StepConfirmation, rec, catalog.Default())
	if verr == nil || !verr.Has(FieldPlan) {
		t.Fatalf("expected plan failure, got %v", verr)
	}
	if verr.Message != msgPlanNotOffered {
		t.Fatalf("unexpected message %q", verr.Message)
	}
}

func TestAdvanceAtConfirmationRequiresSubmit(t *testing.T) {
	c := newTestController(t, nil)
	toConfirmation(t, c)

	if err := c.Advance(); !errors.Is(err, ErrSubmitRequired) {
		t.Fatalf("expected ErrSubmitRequired, got %v", err)
	}
	if c.Step() != StepConfirmation {
		t.Fatalf("expected CONFIRMATION, got %s", c.Step())
	}
}

func TestRetreat(t *testing.T) {
	c := newTestController(t, nil)

	if err := c.Retreat(); err != nil {
		t.Fatalf("retreat at start: %v", err)
	}
	if c.Step() != StepPlanSelection {
		t.Fatalf("expected retreat at PLAN_SELECTION to be a no-op, got %s", c.Step())
	}

	toConfirmation(t, c)
	if err := c.Retreat(); err != nil {
		t.Fatalf("retreat: %v", err)
	}
	if c.Step() != StepPersonalDetails {
		t.Fatalf("expected PERSONAL_DETAILS, got %s", c.Step())
	}
	if err := c.Retreat(); err != nil {
		t.Fatalf("retreat: %v", err)
	}
	if c.Step() != StepPlanSelection {
		t.Fatalf("expected PLAN_SELECTION, got %s", c.Step())
	}
	if got := c.Snapshot().Record.FullName; got != "Budi Santoso" {
		t.Fatalf("expected entered data to survive retreat, got %q", got)
	}
}

func TestNoTerminalEscape(t *testing.T) {
	c := newTestController(t, nil)
	toConfirmation(t, c)
	id, err := c.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := c.Advance(); err != nil {
		t.Fatalf("advance at SUCCESS: %v", err)
	}
	if err := c.Retreat(); err != nil {
		t.Fatalf("retreat at SUCCESS: %v", err)
	}
	if c.Step() != StepSuccess {
		t.Fatalf("expected SUCCESS, got %s", c.Step())
	}
	if _, err := c.Submit(context.Background()); !errors.Is(err, ErrNotAtConfirmation) {
		t.Fatalf("expected ErrNotAtConfirmation, got %v", err)
	}
	if c.RegistrationID() != id {
		t.Fatalf("expected id %q to be stable, got %q", id, c.RegistrationID())
	}
}

func TestSubmitOutsideConfirmation(t *testing.T) {
	s := &countingSubmitter{}
	c := newTestController(t, s)
	if _, err := c.Submit(context.Background()); !errors.Is(err, ErrNotAtConfirmation) {
		t.Fatalf("expected ErrNotAtConfirmation, got %v", err)
	}
	if s.calls.Load() != 0 {
		t.Fatal("expected backend not to be called")
	}
}

func TestSingleActiveSubmission(t *testing.T) {
	s := &countingSubmitter{release: make(chan struct{}), started: make(chan struct{})}
	c := newTestController(t, s)
	toConfirmation(t, c)

	type result struct {
		id  string
		err error
	}
	first := make(chan result, 1)
	go func() {
		id, err := c.Submit(context.Background())
		first <- result{id, err}
	}()
	<-s.started

	if !c.Snapshot().Submitting {
		t.Fatal("expected snapshot to report a pending submission")
	}
	if _, err := c.Submit(context.Background()); !errors.Is(err, ErrTransitionPending) {
		t.Fatalf("expected ErrTransitionPending, got %v", err)
	}
	if err := c.Retreat(); !errors.Is(err, ErrTransitionPending) {
		t.Fatalf("expected retreat to be refused while pending, got %v", err)
	}

	close(s.release)
	res := <-first
	if res.err != nil {
		t.Fatalf("submit: %v", res.err)
	}
	if s.calls.Load() != 1 {
		t.Fatalf("expected exactly one backend call, got %d", s.calls.Load())
	}
	if c.RegistrationID() != res.id || res.id == "" {
		t.Fatalf("expected registration id %q, got %q", res.id, c.RegistrationID())
	}
}

func TestSubmitFailureKeepsRecord(t *testing.T) {
	s := &countingSubmitter{err: errors.New("backend down")}
	c := newTestController(t, s)
	toConfirmation(t, c)

	id, err := c.Submit(context.Background())
	if err == nil || id != "" {
		t.Fatalf("expected failure, got id=%q err=%v", id, err)
	}
	if !strings.Contains(err.Error(), "backend down") {
		t.Fatalf("expected wrapped backend error, got %v", err)
	}
	snap := c.Snapshot()
	if snap.Step != StepConfirmation {
		t.Fatalf("expected to stay at CONFIRMATION, got %s", snap.Step)
	}
	if snap.Record.FullName != "Budi Santoso" || !snap.Record.HasPhoto() {
		t.Fatalf("expected record to survive failure, got %+v", snap.Record)
	}
	if snap.Submitting || snap.RegistrationID != "" {
		t.Fatalf("expected no pending submission and no id, got %+v", snap)
	}

	s.err = nil
	id, err = c.Submit(context.Background())
	if err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if id == "" || c.Step() != StepSuccess {
		t.Fatalf("expected SUCCESS with id, got %s %q", c.Step(), id)
	}
}

func TestSubmitPassesFrozenRecord(t *testing.T) {
	s := &countingSubmitter{}
	c := newTestController(t, s)
	toConfirmation(t, c)

	id, err := c.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if s.lastID != id {
		t.Fatalf("expected backend to receive id %q, got %q", id, s.lastID)
	}
	if s.last.SelectedPlanID != "hemat" || s.last.Email != "budi@example.com" {
		t.Fatalf("unexpected record passed to backend: %+v", s.last)
	}
}

func TestRecommendationOverridesManualSelection(t *testing.T) {
	c := newTestController(t, nil)
	if err := c.SelectPlan("hotspot"); err != nil {
		t.Fatalf("select plan: %v", err)
	}

	rec := models.Recommendation{RecommendedPlanID: "home", Reasoning: "Cocok untuk keluarga."}
	if err := c.ApplyRecommendation(rec); err != nil {
		t.Fatalf("apply recommendation: %v", err)
	}
	snap := c.Snapshot()
	if snap.Record.SelectedPlanID != "home" {
		t.Fatalf("expected home, got %q", snap.Record.SelectedPlanID)
	}
	if snap.Recommendation == nil || snap.Recommendation.Reasoning != rec.Reasoning {
		t.Fatalf("expected recommendation to be kept, got %+v", snap.Recommendation)
	}

	// Applying again is idempotent.
	if err := c.ApplyRecommendation(rec); err != nil {
		t.Fatalf("apply recommendation again: %v", err)
	}
	if c.Snapshot().Record.SelectedPlanID != "home" {
		t.Fatal("expected home to remain selected")
	}

	// A later manual selection wins.
	if err := c.SelectPlan("hemat"); err != nil {
		t.Fatalf("select plan: %v", err)
	}
	if c.Snapshot().Record.SelectedPlanID != "hemat" {
		t.Fatal("expected manual selection to win")
	}
}

func TestSelectPlanRejectsUnknownAndFrozen(t *testing.T) {
	c := newTestController(t, nil)
	if err := c.SelectPlan("platinum"); !errors.Is(err, ErrUnknownPlan) {
		t.Fatalf("expected ErrUnknownPlan, got %v", err)
	}
	if c.Snapshot().Record.SelectedPlanID != "" {
		t.Fatal("expected unknown plan not to be recorded")
	}

	toConfirmation(t, c)
	if err := c.SelectPlan("home"); !errors.Is(err, ErrRecordFrozen) {
		t.Fatalf("expected ErrRecordFrozen, got %v", err)
	}
	if err := c.ApplyRecommendation(models.Recommendation{RecommendedPlanID: "home"}); !errors.Is(err, ErrRecordFrozen) {
		t.Fatalf("expected late recommendation to be refused, got %v", err)
	}
	if err := c.SetField(FieldEmail, "x@y.z"); !errors.Is(err, ErrRecordFrozen) {
		t.Fatalf("expected ErrRecordFrozen for edits at confirmation, got %v", err)
	}
}

func TestSetFieldUnknown(t *testing.T) {
	c := newTestController(t, nil)
	if err := c.SelectPlan("hemat"); err != nil {
		t.Fatalf("select plan: %v", err)
	}
	if err := c.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := c.SetField(FieldHousePhoto, "x"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestPreferredInstallDateIsNormalized(t *testing.T) {
	c := newTestController(t, nil)
	if err := c.SelectPlan("hemat"); err != nil {
		t.Fatalf("select plan: %v", err)
	}
	if err := c.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	d := time.Date(2026, 11, 3, 15, 4, 5, 0, time.FixedZone("WIB", 7*3600))
	if err := c.SetPreferredInstallDate(&d); err != nil {
		t.Fatalf("set date: %v", err)
	}
	got := c.Snapshot().Record.PreferredInstallDate
	if got == nil || got.Format("2006-01-02 15:04") != "2026-11-03 00:00" {
		t.Fatalf("expected date-only value, got %v", got)
	}
	if err := c.SetPreferredInstallDate(nil); err != nil {
		t.Fatalf("clear date: %v", err)
	}
	if c.Snapshot().Record.PreferredInstallDate != nil {
		t.Fatal("expected date cleared")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	c := newTestController(t, nil)
	if err := c.SelectPlan("hemat"); err != nil {
		t.Fatalf("select plan: %v", err)
	}
	if err := c.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	photo := []byte{1, 2, 3}
	if err := c.AttachHousePhoto(photo); err != nil {
		t.Fatalf("attach: %v", err)
	}
	photo[0] = 9
	snap := c.Snapshot()
	if snap.Record.HousePhoto[0] != 1 {
		t.Fatal("expected controller to copy the attached photo")
	}
	snap.Record.HousePhoto[1] = 9
	if c.Snapshot().Record.HousePhoto[1] != 2 {
		t.Fatal("expected snapshot to be detached from controller state")
	}
	if snap.Plan == nil || snap.Plan.ID != "hemat" {
		t.Fatalf("expected selected plan in snapshot, got %+v", snap.Plan)
	}
}

func TestNewRegistrationIDFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewRegistrationID()
		if !strings.HasPrefix(id, "REG-") || len(id) != 12 {
			t.Fatalf("unexpected id %q", id)
		}
		if strings.ToUpper(id) != id {
			t.Fatalf("expected upper-case id, got %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestStepStrings(t *testing.T) {
	if StepPlanSelection.String() != "PLAN_SELECTION" || StepSuccess.String() != "SUCCESS" {
		t.Fatal("unexpected step names")
	}
	if Step(9).String() != "Step(9)" {
		t.Fatalf("unexpected unknown step name %q", Step(9).String())
	}
}
