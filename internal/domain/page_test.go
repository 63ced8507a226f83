package domain

import (
	"errors"
	"testing"
)

func TestPageStatus_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    PageStatus
		to      PageStatus
		wantErr bool
	}{
		{name: "typing on a quiet page", from: StatusQuiescent, to: StatusUserEdit},
		{name: "debounce elapses", from: StatusUserEdit, to: StatusPendingWrite},
		{name: "write-back settles", from: StatusEditFromSharedNodes, to: StatusQuiescent},
		{name: "save succeeds", from: StatusPendingWrite, to: StatusQuiescent},
		{name: "save conflicts", from: StatusPendingWrite, to: StatusConflict},
		{name: "skip the queue", from: StatusQuiescent, to: StatusPendingWrite, wantErr: true},
		{name: "leave conflict without reload", from: StatusConflict, to: StatusQuiescent, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Page{ID: "p1", Status: tt.from}
			err := p.Transition(tt.to)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Transition() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrIllegalStatus) {
					t.Errorf("expected ErrIllegalStatus, got %v", err)
				}
				if p.Status != tt.from {
					t.Errorf("status changed on illegal transition")
				}
			}
		})
	}
}

func TestPage_ResetLeavesConflict(t *testing.T) {
	p := &Page{ID: "p1", Status: StatusConflict, Value: "- local"}
	p.Reset(Page{ID: "p1", Value: "- server", RevisionNumber: 9, Status: StatusConflict})

	if p.Status != StatusQuiescent || p.Value != "- server" || p.RevisionNumber != 9 {
		t.Errorf("unexpected page after reset: %+v", p)
	}
}

func TestIsDefaultContent(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{value: "", want: true},
		{value: "- ", want: true},
		{value: "-", want: true},
		{value: "  -  \n", want: true},
		{value: "- hello", want: false},
	}

	for _, tt := range tests {
		if got := IsDefaultContent(tt.value); got != tt.want {
			t.Errorf("IsDefaultContent(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestReplaceLineContent(t *testing.T) {
	value := "- a\n  - TODO buy milk\n- c"

	got, err := ReplaceLineContent(value, 1, "- DOING buy milk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "- a\n  - DOING buy milk\n- c"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if _, err := ReplaceLineContent(value, 3, "x"); err == nil {
		t.Errorf("expected out of range error")
	}
}

func TestConflictError(t *testing.T) {
	var err error = &ConflictError{PageID: "p1", Code: CodeStaleRevision, ExpectedRevision: 5, CurrentRevision: 7}
	if !errors.Is(err, ErrRevisionConflict) {
		t.Errorf("expected ConflictError to match ErrRevisionConflict")
	}

	var ce *ConflictError
	if !errors.As(err, &ce) || ce.CurrentRevision != 7 {
		t.Errorf("expected errors.As to expose the current revision")
	}
}
