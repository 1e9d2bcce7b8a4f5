package input

import (
	"reflect"
	"testing"
)

func TestFrameInputsSortedByClientAscending(t *testing.T) {
	b := NewBuffer(0)
	b.Confirm(10, 3, []byte("c"))
	b.Confirm(10, 1, []byte("a"))
	b.Confirm(10, 2, []byte("b"))

	got := b.FrameInputs(10)
	want := []ClientID{1, 2, 3}
	for i, in := range got {
		if in.Client != want[i] {
			t.Fatalf("FrameInputs order = %v", got)
		}
	}
}

func TestPredictMissingRepeatsLastConfirmed(t *testing.T) {
	b := NewBuffer(0)
	b.Confirm(5, 1, []byte("jump"))
	b.PredictMissing(6, []ClientID{1, 2})

	got := b.FrameInputs(6)
	var c1, c2 *Input
	for i := range got {
		switch got[i].Client {
		case 1:
			c1 = &got[i]
		case 2:
			c2 = &got[i]
		}
	}
	if c1 == nil || !c1.Predicted || !reflect.DeepEqual(c1.Data, []byte("jump")) {
		t.Fatalf("client 1 prediction wrong: %+v", c1)
	}
	if c2 == nil || !c2.Predicted || c2.Data != nil {
		t.Fatalf("client 2 (never seen) prediction wrong: %+v", c2)
	}
}

func TestApplyLateInputMarksRollbackWhenPredictionWasWrong(t *testing.T) {
	b := NewBuffer(30)
	b.PredictMissing(17, []ClientID{2})

	pending, ok := b.ApplyLateInput(17, 20, 0, 2, []byte("button"))
	if !ok || pending != 17 {
		t.Fatalf("expected pending rollback at frame 17, got %d, %v", pending, ok)
	}
	frame, has := b.PendingRollback()
	if !has || frame != 17 {
		t.Fatalf("PendingRollback() = %d, %v", frame, has)
	}
}

func TestApplyLateInputNoRollbackWhenUnchanged(t *testing.T) {
	b := NewBuffer(30)
	b.Confirm(17, 2, []byte("same"))

	_, ok := b.ApplyLateInput(17, 20, 0, 2, []byte("same"))
	if ok {
		t.Fatal("expected no rollback when late input matches what was already confirmed")
	}
}

func TestApplyLateInputTooOldIsDropped(t *testing.T) {
	b := NewBuffer(30)
	_, ok := b.ApplyLateInput(5, 20, 10, 1, []byte("x"))
	if ok {
		t.Fatal("expected dropped, not pending rollback")
	}
	dropped := b.Dropped()
	if len(dropped) != 1 || dropped[0].Frame != 5 {
		t.Fatalf("expected dropped record for frame 5, got %v", dropped)
	}
}

func TestPendingRollbackTracksEarliestFrame(t *testing.T) {
	b := NewBuffer(30)
	b.PredictMissing(10, []ClientID{1})
	b.PredictMissing(15, []ClientID{1})

	b.ApplyLateInput(15, 20, 0, 1, []byte("a"))
	b.ApplyLateInput(10, 20, 0, 1, []byte("b"))

	frame, has := b.PendingRollback()
	if !has || frame != 10 {
		t.Fatalf("expected earliest pending frame 10, got %d, %v", frame, has)
	}
}

func TestExceedsRollbackDistance(t *testing.T) {
	b := NewBuffer(30)
	if b.ExceedsRollbackDistance(40, 9) != true {
		t.Fatal("31-frame rollback should exceed the cap of 30")
	}
	if b.ExceedsRollbackDistance(40, 10) != false {
		t.Fatal("30-frame rollback should not exceed the cap of 30")
	}
}

func TestPruneDiscardsOlderFrames(t *testing.T) {
	b := NewBuffer(0)
	b.Confirm(1, 1, []byte("a"))
	b.Confirm(2, 1, []byte("b"))
	b.Prune(2)

	if len(b.FrameInputs(1)) != 0 {
		t.Fatal("frame 1 should have been pruned")
	}
	if len(b.FrameInputs(2)) != 1 {
		t.Fatal("frame 2 should survive Prune(2)")
	}
}
