// Package wizard implements the step state machine that governs what
// registration data must exist before the customer may advance or submit.
//
// The Controller owns the RegistrationRecord for the whole session. Every
// transition is evaluated against a gate (see Gate) and refused, never
// panicked, when the gate fails. Submission is the only operation with an
// external effect and is guarded so at most one backend call is in flight.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Lllllllleong/planregistration/internal/catalog"
	"github.com/Lllllllleong/planregistration/internal/models"
)

var (
	// ErrTransitionPending is returned while a submission is in flight.
	ErrTransitionPending = errors.New("wizard: a submission is already in progress")
	// ErrSubmitRequired is returned by Advance at CONFIRMATION; only Submit leaves it.
	ErrSubmitRequired = errors.New("wizard: confirmation is completed by submitting")
	// ErrNotAtConfirmation is returned by Submit outside CONFIRMATION.
	ErrNotAtConfirmation = errors.New("wizard: submit is only allowed from confirmation")
	// ErrRecordFrozen is returned for edits outside the step that owns the field.
	ErrRecordFrozen = errors.New("wizard: record cannot be edited at this step")
	// ErrUnknownPlan is returned when a plan id is not in the catalog.
	ErrUnknownPlan = errors.New("wizard: unknown plan")
	// ErrUnknownField is returned by SetField for fields that are not text.
	ErrUnknownField = errors.New("wizard: unknown text field")
)

// Submitter is the registration backend called by Submit.
type Submitter interface {
	Register(ctx context.Context, registrationID string, record models.RegistrationRecord, plan catalog.Plan) error
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, registrationID string, record models.RegistrationRecord, plan catalog.Plan) error

func (f SubmitterFunc) Register(ctx context.Context, registrationID string, record models.RegistrationRecord, plan catalog.Plan) error {
	return f(ctx, registrationID, record, plan)
}

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	Step           Step
	Record         models.RegistrationRecord
	Plan           *catalog.Plan
	Recommendation *models.Recommendation
	RegistrationID string
	Submitting     bool
}

// Controller drives one registration session.
type Controller struct {
	catalog   *catalog.Catalog
	submitter Submitter
	newID     func() string

	mu             sync.Mutex
	step           Step
	record         models.RegistrationRecord
	recommendation *models.Recommendation
	registrationID string
	submitting     bool
}

// Option customizes a Controller.
type Option func(*Controller)

// WithIDGenerator replaces the registration id generator.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// NewController starts a fresh session at PLAN_SELECTION with an empty record.
func NewController(c *catalog.Catalog, s Submitter, opts ...Option) *Controller {
	ctrl := &Controller{
		catalog:   c,
		submitter: s,
		newID:     NewRegistrationID,
		step:      StepPlanSelection,
	}
	for _, opt := range opts {
		opt(ctrl)
	}
	return ctrl
}

func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// RegistrationID is empty until the session reaches SUCCESS.
func (c *Controller) RegistrationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registrationID
}

func (c *Controller) Catalog() *catalog.Catalog {
	return c.catalog
}

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Step:           c.step,
		Record:         c.record.Clone(),
		RegistrationID: c.registrationID,
		Submitting:     c.submitting,
	}
	if p, ok := c.catalog.Plan(c.record.SelectedPlanID); ok {
		s.Plan = &p
	}
	if c.recommendation != nil {
		rec := *c.recommendation
		s.Recommendation = &rec
	}
	return s
}

// Check evaluates the gate of the current step without transitioning.
func (c *Controller) Check() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if verr := Gate(c.step, c.record, c.catalog); verr != nil {
		return verr
	}
	return nil
}

// SelectPlan is the single mutation point for the plan choice. It is used by
// manual selection and by ApplyRecommendation; the last write wins.
func (c *Controller) SelectPlan(planID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectPlanLocked(planID)
}

func (c *Controller) selectPlanLocked(planID string) error {
	if c.submitting {
		return ErrTransitionPending
	}
	if c.step != StepPlanSelection {
		return ErrRecordFrozen
	}
	if !c.catalog.Contains(planID) {
		return fmt.Errorf("%w: %q", ErrUnknownPlan, planID)
	}
	c.record.SelectedPlanID = planID
	return nil
}

// ApplyRecommendation selects the recommended plan regardless of any prior
// manual choice and remembers the rationale for display.
func (c *Controller) ApplyRecommendation(rec models.Recommendation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.selectPlanLocked(rec.RecommendedPlanID); err != nil {
		return err
	}
	c.recommendation = &rec
	return nil
}

// SetField sets one of the personal-detail text fields.
func (c *Controller) SetField(f Field, value string) error {
	return c.editDetails(func(r *models.RegistrationRecord) error {
		switch f {
		case FieldFullName:
			r.FullName = value
		case FieldNationalID:
			r.NationalID = value
		case FieldEmail:
			r.Email = value
		case FieldPhone:
			r.Phone = value
		case FieldInstallAddress:
			r.InstallAddress = value
		default:
			return fmt.Errorf("%w: %s", ErrUnknownField, f)
		}
		return nil
	})
}

// SetPreferredInstallDate sets or, with nil, clears the preferred date.
func (c *Controller) SetPreferredInstallDate(d *time.Time) error {
	return c.editDetails(func(r *models.RegistrationRecord) error {
		if d == nil {
			r.PreferredInstallDate = nil
			return nil
		}
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		r.PreferredInstallDate = &day
		return nil
	})
}

// AttachHousePhoto stores a copy of the photo bytes. An empty slice detaches it.
func (c *Controller) AttachHousePhoto(data []byte) error {
	return c.editDetails(func(r *models.RegistrationRecord) error {
		if len(data) == 0 {
			r.HousePhoto = nil
			return nil
		}
		r.HousePhoto = append([]byte(nil), data...)
		return nil
	})
}

func (c *Controller) editDetails(fn func(*models.RegistrationRecord) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting {
		return ErrTransitionPending
	}
	if c.step != StepPersonalDetails {
		return ErrRecordFrozen
	}
	return fn(&c.record)
}

// Advance moves to the next step if the current step's gate passes.
// At SUCCESS it is a no-op.
func (c *Controller) Advance() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitting {
		return ErrTransitionPending
	}
	switch c.step {
	case StepSuccess:
		return nil
	case StepConfirmation:
		return ErrSubmitRequired
	}
	if verr := Gate(c.step, c.record, c.catalog); verr != nil {
		return verr
	}
	c.step++
	return nil
}

// Retreat moves back one step from PERSONAL_DETAILS or CONFIRMATION.
// It is a no-op at PLAN_SELECTION and at SUCCESS.
func (c *Controller) Retreat() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitting {
		return ErrTransitionPending
	}
	switch c.step {
	case StepPersonalDetails, StepConfirmation:
		c.step--
	}
	return nil
}

// Submit registers the frozen record with the backend and, on success,
// transitions to SUCCESS with a freshly generated registration id. On backend
// failure the record is kept and the session stays at CONFIRMATION. A second
// call while one is in flight returns ErrTransitionPending without calling
// the backend.
func (c *Controller) Submit(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return "", ErrTransitionPending
	}
	if c.step != StepConfirmation {
		c.mu.Unlock()
		return "", ErrNotAtConfirmation
	}
	if verr := Gate(StepConfirmation, c.record, c.catalog); verr != nil {
		c.mu.Unlock()
		return "", verr
	}
	plan, _ := c.catalog.Plan(c.record.SelectedPlanID)
	record := c.record.Clone()
	id := strings.TrimSpace(c.newID())
	c.submitting = true
	c.mu.Unlock()

	var err error
	if id == "" {
		err = errors.New("empty registration id")
	} else {
		err = c.submitter.Register(ctx, id, record, plan)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	if err != nil {
		return "", fmt.Errorf("wizard: submit registration: %w", err)
	}
	c.registrationID = id
	c.step = StepSuccess
	return id, nil
}
