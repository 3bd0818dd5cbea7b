package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/planregistration/internal/gcp"
	"github.com/Lllllllleong/planregistration/internal/models"
)

type fakeGenerator struct {
	mu     sync.Mutex
	text   string
	err    error
	calls  int
	prompt string
}

func (g *fakeGenerator) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	for _, p := range parts {
		if txt, ok := p.(genai.Text); ok {
			g.prompt += string(txt)
		}
	}
	if g.err != nil {
		return nil, g.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(g.text)}},
		}},
	}, nil
}

type fakeStore struct {
	mu        sync.Mutex
	regs      map[string]*models.Registration
	updates   map[string][][]firestore.Update
	createErr error
	getErr    error
	updateErr error
	// statusErr fails updates that set the keyed status.
	statusErr map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		regs:      make(map[string]*models.Registration),
		updates:   make(map[string][][]firestore.Update),
		statusErr: make(map[string]error),
	}
}

func (s *fakeStore) Create(_ context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.regs[reg.RegistrationID]; ok {
		return fmt.Errorf("%s: %w", reg.RegistrationID, gcp.ErrRegistrationExists)
	}
	cp := *reg
	s.regs[reg.RegistrationID] = &cp
	return nil
}

func (s *fakeStore) Get(_ context.Context, registrationID string) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	reg, ok := s.regs[registrationID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", registrationID, gcp.ErrRegistrationNotFound)
	}
	cp := *reg
	return &cp, nil
}

func (s *fakeStore) Update(_ context.Context, registrationID string, updates []firestore.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	for _, u := range updates {
		if status, ok := u.Value.(string); ok && u.Path == "status" && s.statusErr[status] != nil {
			return s.statusErr[status]
		}
	}
	reg, ok := s.regs[registrationID]
	if !ok {
		return fmt.Errorf("%s: %w", registrationID, gcp.ErrRegistrationNotFound)
	}
	s.updates[registrationID] = append(s.updates[registrationID], updates)
	for _, u := range updates {
		switch u.Path {
		case "status":
			reg.Status = u.Value.(string)
		case "errorDetails":
			reg.ErrorDetails = u.Value.(string)
		case "documentUri":
			reg.DocumentURI = u.Value.(string)
		case "pageCount":
			reg.PageCount = u.Value.(int)
		case "workflowExecutionId":
			reg.WorkflowExecutionID = u.Value.(string)
		}
	}
	return nil
}

func (s *fakeStore) registration(t *testing.T, id string) models.Registration {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.regs[id]
	if !ok {
		t.Fatalf("expected registration %s to exist", id)
	}
	return *reg
}

type storedObject struct {
	contentType string
	content     []byte
}

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string]storedObject
	putErr  map[string]error // keyed by bucket
	getErr  error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string]storedObject), putErr: make(map[string]error)}
}

func (b *fakeBlobs) Put(_ context.Context, bucket, object, contentType string, content []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.putErr[bucket]; err != nil {
		return "", err
	}
	uri := gcp.GCSURI(bucket, object)
	if _, ok := b.objects[uri]; ok {
		return "", fmt.Errorf("%s: %w", object, gcp.ErrObjectExists)
	}
	b.objects[uri] = storedObject{contentType: contentType, content: append([]byte(nil), content...)}
	return uri, nil
}

func (b *fakeBlobs) Get(_ context.Context, bucket, object string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.getErr != nil {
		return nil, b.getErr
	}
	obj, ok := b.objects[gcp.GCSURI(bucket, object)]
	if !ok {
		return nil, fmt.Errorf("object %s not found", object)
	}
	return obj.content, nil
}

func (b *fakeBlobs) object(uri string) (storedObject, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := b.objects[uri]
	return obj, ok
}

type fakeWorkflow struct {
	mu   sync.Mutex
	args []any
	err  error
}

func (w *fakeWorkflow) Trigger(_ context.Context, argument any) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return "", w.err
	}
	w.args = append(w.args, argument)
	return fmt.Sprintf("executions/%d", len(w.args)), nil
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 6, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
