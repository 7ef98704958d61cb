package store

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestEpochRepository(t *testing.T) {
	s := newTestStore(t)

	run := &Run{DatasetPath: "data.csv"}
	if err := s.Runs().Create(run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	epochs := []Epoch{
		{Epoch: 2, Loss: 0.5, Accuracy: 0.8, ValLoss: 0.6, ValAccuracy: 0.75, LearningRate: 0.001},
		{Epoch: 1, Loss: 0.9, Accuracy: 0.5, ValLoss: 0.8, ValAccuracy: 0.5, LearningRate: 0.001},
	}
	if err := s.Epochs().Create(run.ID, epochs); err != nil {
		t.Fatalf("failed to create epochs: %v", err)
	}

	got, err := s.Epochs().GetByRunID(run.ID)
	if err != nil {
		t.Fatalf("failed to get epochs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 epochs, got %d", len(got))
	}
	if got[0].Epoch != 1 || got[1].Epoch != 2 {
		t.Errorf("epochs should be ordered, got %d, %d", got[0].Epoch, got[1].Epoch)
	}
	if got[1].ValAccuracy != 0.75 || got[1].RunID != run.ID {
		t.Errorf("unexpected epoch row: %+v", got[1])
	}
}

func TestEpochRepository_UnknownRun(t *testing.T) {
	s := newTestStore(t)

	if err := s.Epochs().Create("missing", []Epoch{{Epoch: 1}}); err == nil {
		t.Error("expected foreign key violation for unknown run")
	}
}

func TestClassRepository(t *testing.T) {
	s := newTestStore(t)

	run := &Run{DatasetPath: "data.csv"}
	if err := s.Runs().Create(run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	classes := []ClassResult{
		{Label: "palm", ClassID: 1, Precision: 0.5, Recall: 1, F1: 0.667, Support: 2},
		{Label: "fist", ClassID: 0, Precision: 1, Recall: 0.5, F1: 0.667, Support: 2},
	}
	if err := s.Classes().Create(run.ID, classes); err != nil {
		t.Fatalf("failed to create classes: %v", err)
	}

	got, err := s.Classes().GetByRunID(run.ID)
	if err != nil {
		t.Fatalf("failed to get classes: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 classes, got %d", len(got))
	}
	if got[0].Label != "fist" || got[1].Label != "palm" {
		t.Errorf("classes should be ordered by id, got %q, %q", got[0].Label, got[1].Label)
	}
	want := []ClassResult{classes[1], classes[0]}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(ClassResult{}, "ID", "RunID")); diff != "" {
		t.Errorf("class rows mismatch (-want +got):\n%s", diff)
	}
}
