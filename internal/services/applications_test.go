package services

import (
	"context"
	"errors"
	"testing"

	"github.com/taskpoint/backend/internal/models"
	"github.com/taskpoint/backend/internal/repository"
)

func TestApply(t *testing.T) {
	task := openTask(1)
	tasks := newMockTaskRepo(task)
	apps := newMockAppRepo()
	svc := NewApplicationService(tasks, apps, discardLogger())
	ctx := context.Background()

	a, err := svc.Apply(ctx, task.ID, 10, "I have <b>done</b> this before", nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if a.Status != models.ApplicationStatusApplied {
		t.Errorf("status: got %q, want applied", a.Status)
	}
	if a.CoverLetter != "I have done this before" {
		t.Errorf("cover letter was not sanitized: %q", a.CoverLetter)
	}

	// Re-applying overwrites the open application rather than duplicating it.
	b, err := svc.Apply(ctx, task.ID, 10, "second attempt", nil)
	if err != nil {
		t.Fatalf("re-apply: %v", err)
	}
	if b.ID != a.ID {
		t.Errorf("re-apply created a new row: %d vs %d", b.ID, a.ID)
	}
	list, _ := apps.ListByUser(ctx, 10)
	if len(list) != 1 {
		t.Fatalf("applications for user: got %d, want 1", len(list))
	}
	if list[0].CoverLetter != "second attempt" {
		t.Errorf("cover letter not overwritten: %q", list[0].CoverLetter)
	}
}

func TestApply_Preconditions(t *testing.T) {
	open := openTask(1)
	closed := openTask(1)
	closed.Status = models.TaskStatusInProgress
	tasks := newMockTaskRepo(open, closed)
	svc := NewApplicationService(tasks, newMockAppRepo(), discardLogger())
	ctx := context.Background()

	if _, err := svc.Apply(ctx, open.ID, 1, "", nil); !errors.As(err, new(*ValidationError)) {
		t.Errorf("creator self-apply: expected ValidationError, got %v", err)
	}

	_, err := svc.Apply(ctx, closed.ID, 10, "", nil)
	var ise *InvalidStateError
	if !errors.As(err, &ise) || ise.Current != models.TaskStatusInProgress {
		t.Errorf("apply to closed task: expected InvalidStateError(in_progress), got %v", err)
	}
}

func TestApply_RejectedCannotReapply(t *testing.T) {
	task := openTask(1)
	rejected := application(task.ID, 10)
	rejected.Status = models.ApplicationStatusRejected
	tasks := newMockTaskRepo(task)
	svc := NewApplicationService(tasks, newMockAppRepo(rejected), discardLogger())

	if _, err := svc.Apply(context.Background(), task.ID, 10, "", nil); !errors.Is(err, repository.ErrApplicationClosed) {
		t.Errorf("expected ErrApplicationClosed, got %v", err)
	}
}

func TestWithdraw(t *testing.T) {
	task := openTask(1)
	tasks := newMockTaskRepo(task)
	apps := newMockAppRepo(application(task.ID, 10))
	svc := NewApplicationService(tasks, apps, discardLogger())
	ctx := context.Background()

	if err := svc.Withdraw(ctx, task.ID, 10); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if got := apps.statusOf(task.ID, 10); got != models.ApplicationStatusWithdrawn {
		t.Errorf("status: got %q, want withdrawn", got)
	}

	// Nothing left to withdraw.
	if err := svc.Withdraw(ctx, task.ID, 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("second withdraw: expected ErrNotFound, got %v", err)
	}
	if err := svc.Withdraw(ctx, task.ID, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("never applied: expected ErrNotFound, got %v", err)
	}
}

func TestListByTask_CreatorOnly(t *testing.T) {
	task := openTask(1)
	tasks := newMockTaskRepo(task)
	apps := newMockAppRepo(application(task.ID, 10), application(task.ID, 11))
	svc := NewApplicationService(tasks, apps, discardLogger())
	ctx := context.Background()

	if _, err := svc.ListByTask(ctx, task.ID, 10); !errors.Is(err, ErrForbidden) {
		t.Errorf("applicant listing applications: expected ErrForbidden, got %v", err)
	}

	list, err := svc.ListByTask(ctx, task.ID, 1)
	if err != nil {
		t.Fatalf("ListByTask: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("applications: got %d, want 2", len(list))
	}
}
