package notify

import (
	"context"
	"testing"

	"todo_webapp/internal/domain"
)

func TestMultiFansOut(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	n := domain.Notification{Title: "Task Added", Severity: domain.SeverityDefault}

	Multi{a, b, Log{}}.Notify(context.Background(), 9, n)

	for i, r := range []*Recorder{a, b} {
		sent := r.Sent()
		if len(sent) != 1 || sent[0].UserID != 9 || sent[0].Notification != n {
			t.Fatalf("recorder %d: unexpected notifications %+v", i, sent)
		}
	}
}

func TestRecorderInvalidations(t *testing.T) {
	r := &Recorder{}
	r.PublishInvalidate(context.Background(), 3)
	r.PublishInvalidate(context.Background(), 4)

	got := r.Invalidations()
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Fatalf("unexpected invalidations %v", got)
	}
}
