package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Lllllllleong/planregistration/internal/models"
)

func newTestArchiver(t *testing.T) (*DocumentArchiverFunction, *fakeStore, *fakeBlobs, *fakeWorkflow) {
	t.Helper()
	store, blobs, wf := newFakeStore(), newFakeBlobs(), &fakeWorkflow{}
	f := &DocumentArchiverFunction{
		store:    store,
		blobs:    blobs,
		workflow: wf,
		inspect:  func([]byte) (int, error) { return 1, nil },
	}
	return f, store, blobs, wf
}

func seedUploaded(t *testing.T, store *fakeStore, blobs *fakeBlobs, id string) GCSEvent {
	t.Helper()
	if err := store.Create(context.Background(), &models.Registration{RegistrationID: id, Status: models.StatusDocumentUploaded}); err != nil {
		t.Fatal(err)
	}
	object := id + "/Bukti-Pendaftaran-Damar-Budi.pdf"
	if _, err := blobs.Put(context.Background(), "docs", object, "application/pdf", []byte("%PDF-1.7")); err != nil {
		t.Fatal(err)
	}
	return GCSEvent{Bucket: "docs", Name: object}
}

func TestArchiveReadiesRegistration(t *testing.T) {
	f, store, blobs, wf := newTestArchiver(t)
	e := seedUploaded(t, store, blobs, "REG-1")

	if err := f.Process(context.Background(), e); err != nil {
		t.Fatalf("process: %v", err)
	}
	reg := store.registration(t, "REG-1")
	if reg.Status != models.StatusReady || reg.PageCount != 1 || reg.WorkflowExecutionID != "executions/1" {
		t.Fatalf("unexpected registration %+v", reg)
	}
	if len(wf.args) != 1 {
		t.Fatalf("expected one workflow execution, got %d", len(wf.args))
	}
	arg, ok := wf.args[0].(models.SchedulingWorkflowArgument)
	if !ok {
		t.Fatalf("unexpected workflow argument %T", wf.args[0])
	}
	if arg.RegistrationID != "REG-1" || arg.DocumentGCSUri != "gs://docs/REG-1/Bukti-Pendaftaran-Damar-Budi.pdf" || arg.PageCount != 1 {
		t.Fatalf("unexpected workflow argument %+v", arg)
	}

	// A redelivered event is a no-op.
	if err := f.Process(context.Background(), e); err != nil {
		t.Fatalf("reprocess: %v", err)
	}
	if len(wf.args) != 1 {
		t.Fatalf("expected no second execution, got %d", len(wf.args))
	}
}

func TestArchiveSkipsUnrelatedObjects(t *testing.T) {
	f, _, _, wf := newTestArchiver(t)
	for _, name := range []string{"notes.txt", "loose.pdf", "REG-1/nested/x.pdf", "REG-1/photo.png"} {
		if err := f.Process(context.Background(), GCSEvent{Bucket: "docs", Name: name}); err != nil {
			t.Fatalf("%s: expected skip, got %v", name, err)
		}
	}
	if err := f.Process(context.Background(), GCSEvent{Bucket: "docs", Name: "REG-404/doc.pdf"}); err != nil {
		t.Fatalf("expected unknown registration to be skipped, got %v", err)
	}
	if len(wf.args) != 0 {
		t.Fatal("expected no workflow executions")
	}
}

func TestArchiveInvalidPDFMarksFailed(t *testing.T) {
	f, store, blobs, wf := newTestArchiver(t)
	f.inspect = func([]byte) (int, error) { return 0, errors.New("xref table corrupt") }
	e := seedUploaded(t, store, blobs, "REG-2")

	if err := f.Process(context.Background(), e); err == nil {
		t.Fatal("expected error")
	}
	reg := store.registration(t, "REG-2")
	if reg.Status != models.StatusFailed || reg.ErrorDetails == "" {
		t.Fatalf("expected FAILED with details, got %+v", reg)
	}
	if len(wf.args) != 0 {
		t.Fatal("expected no workflow execution for an invalid document")
	}
}

func TestArchiveWorkflowFailureMarksFailed(t *testing.T) {
	f, store, blobs, wf := newTestArchiver(t)
	wf.err = errors.New("permission denied")
	e := seedUploaded(t, store, blobs, "REG-3")

	if err := f.Process(context.Background(), e); err == nil {
		t.Fatal("expected error")
	}
	if reg := store.registration(t, "REG-3"); reg.Status != models.StatusFailed {
		t.Fatalf("expected FAILED, got %s", reg.Status)
	}

	// No execution was started, so a redelivery may trigger.
	wf.err = nil
	if err := f.Process(context.Background(), e); err != nil {
		t.Fatalf("reprocess: %v", err)
	}
	if reg := store.registration(t, "REG-3"); reg.Status != models.StatusReady || len(wf.args) != 1 {
		t.Fatalf("expected READY after one execution, got %s with %d executions", reg.Status, len(wf.args))
	}
}

func TestArchiveRedeliveryReusesRecordedExecution(t *testing.T) {
	f, store, blobs, wf := newTestArchiver(t)
	store.statusErr[models.StatusReady] = errors.New("deadline exceeded")
	e := seedUploaded(t, store, blobs, "REG-6")

	if err := f.Process(context.Background(), e); err == nil {
		t.Fatal("expected error")
	}
	reg := store.registration(t, "REG-6")
	if reg.Status != models.StatusFailed || reg.WorkflowExecutionID != "executions/1" {
		t.Fatalf("expected FAILED with the execution id kept, got %+v", reg)
	}

	delete(store.statusErr, models.StatusReady)
	if err := f.Process(context.Background(), e); err != nil {
		t.Fatalf("reprocess: %v", err)
	}
	reg = store.registration(t, "REG-6")
	if reg.Status != models.StatusReady || reg.WorkflowExecutionID != "executions/1" {
		t.Fatalf("expected READY with the original execution, got %+v", reg)
	}
	if len(wf.args) != 1 {
		t.Fatalf("expected a single execution, got %d", len(wf.args))
	}
}

func TestArchiveUnrecordedSchedulingIsNotRetriggered(t *testing.T) {
	f, store, blobs, wf := newTestArchiver(t)
	store.statusErr[models.StatusReady] = errors.New("unavailable")
	store.statusErr[models.StatusFailed] = errors.New("unavailable")
	e := seedUploaded(t, store, blobs, "REG-7")

	if err := f.Process(context.Background(), e); err == nil {
		t.Fatal("expected error")
	}
	if reg := store.registration(t, "REG-7"); reg.Status != models.StatusScheduling || reg.WorkflowExecutionID != "" {
		t.Fatalf("expected SCHEDULING without an execution id, got %+v", reg)
	}

	store.statusErr = map[string]error{}
	if err := f.Process(context.Background(), e); err != nil {
		t.Fatalf("expected redelivery to be acknowledged, got %v", err)
	}
	if len(wf.args) != 1 {
		t.Fatalf("expected no second execution, got %d", len(wf.args))
	}
	if reg := store.registration(t, "REG-7"); reg.Status != models.StatusScheduling {
		t.Fatalf("expected registration left for manual follow-up, got %s", reg.Status)
	}
}

func TestRegistrationIDFromObject(t *testing.T) {
	tests := map[string]string{
		"REG-1/Bukti.pdf": "REG-1",
		"REG-1/Bukti.PDF": "REG-1",
		"Bukti.pdf":       "",
		"a/b/Bukti.pdf":   "",
		"REG-1/photo.jpg": "",
	}
	for name, want := range tests {
		got, ok := registrationIDFromObject(name)
		if got != want || ok != (want != "") {
			t.Fatalf("%s: expected %q, got %q (%v)", name, want, got, ok)
		}
	}
}

func TestInspectPDFRejectsGarbage(t *testing.T) {
	if _, err := inspectPDF([]byte("this is not a pdf")); err == nil {
		t.Fatal("expected error for non-PDF content")
	}
}
