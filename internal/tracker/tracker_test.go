package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/steveyegge/issueboard/internal/types"
)

func TestListFilterInProgressSynonym(t *testing.T) {
	states := []string{"In Progress"}
	f := ListFilter{OnlyInState: states}

	for _, status := range []string{"in progress", "in process", "IN PROCESS"} {
		if !f.Matches(types.View{Status: status}) {
			t.Errorf("Matches(%q) = false, want true", status)
		}
	}
	if f.Matches(types.View{Status: "new"}) {
		t.Error("Matches(new) = true, want false")
	}
	if len(states) != 1 || states[0] != "In Progress" {
		t.Errorf("caller's slice was mutated: %v", states)
	}
}

func TestListFilterInProcessDoesNotAdmitInProgress(t *testing.T) {
	f := ListFilter{OnlyInState: []string{"in process"}}
	if f.Matches(types.View{Status: "in progress"}) {
		t.Error("in process filter should not admit in progress")
	}
}

func TestListFilterAssignee(t *testing.T) {
	f := ListFilter{Assignee: "Alice"}
	if !f.Matches(types.View{Status: "new", Assignee: "alice"}) {
		t.Error("assignee match should be case-insensitive")
	}
	if f.Matches(types.View{Status: "new", Assignee: "bob"}) {
		t.Error("assignee filter admitted bob")
	}
	if !(ListFilter{}).Matches(types.View{Status: "anything"}) {
		t.Error("empty filter should match everything")
	}
}

func TestRejectTerminal(t *testing.T) {
	if err := RejectTerminal(types.View{Status: "completed"}); !errors.Is(err, ErrAlreadyTerminal) {
		t.Errorf("RejectTerminal(completed) = %v", err)
	}
	if err := RejectTerminal(types.View{Status: "closed"}); !errors.Is(err, ErrAlreadyTerminal) {
		t.Errorf("RejectTerminal(closed) = %v", err)
	}
	if err := RejectTerminal(types.View{Status: "in progress"}); err != nil {
		t.Errorf("RejectTerminal(in progress) = %v", err)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{NotFoundf("issue %s", "3"), ErrNotFound},
		{fmt.Errorf("wrap: %w", ErrInvalidAssignee), ErrInvalidAssignee},
		{&ErrNotInitialized{Tracker: "jira"}, ErrBackendUnavailable},
		{Unavailable("github", errors.New("connection refused")), ErrBackendUnavailable},
		{context.DeadlineExceeded, ErrBackendUnavailable},
		{errors.New("plain"), nil},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestUnavailableKeepsExistingKind(t *testing.T) {
	err := Unavailable("jira", NotFoundf("PROJ-1"))
	if !errors.Is(err, ErrNotFound) || errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("Unavailable rewrapped a kinded error: %v", err)
	}
}

func TestRetryReadRetriesOnce(t *testing.T) {
	saved := RetryInitialInterval
	RetryInitialInterval = time.Millisecond
	defer func() { RetryInitialInterval = saved }()

	var calls atomic.Int32
	_, err := RetryRead(context.Background(), func(context.Context) (int, error) {
		calls.Add(1)
		return 0, errors.New("flaky")
	})
	if err == nil {
		t.Fatal("expected error after retries")
	}
	if got := calls.Load(); got != 1+ReadRetries {
		t.Errorf("calls = %d, want %d", got, 1+ReadRetries)
	}
}

func TestRetryReadSucceedsOnRetry(t *testing.T) {
	saved := RetryInitialInterval
	RetryInitialInterval = time.Millisecond
	defer func() { RetryInitialInterval = saved }()

	var calls atomic.Int32
	got, err := RetryRead(context.Background(), func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Errorf("RetryRead = %q, %v; want ok, nil", got, err)
	}
}

func TestRetryReadDoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int32
	_, err := RetryRead(context.Background(), func(context.Context) (int, error) {
		calls.Add(1)
		return 0, NotFoundf("issue 9")
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestConfigLookup(t *testing.T) {
	t.Setenv("JIRA_API_TOKEN", "from-env")
	cfg := NewConfig("jira", MapSource{"jira.url": "https://example.atlassian.net", "jira.timeout": "5s"})

	if got := cfg.Get("url"); got != "https://example.atlassian.net" {
		t.Errorf("Get(url) = %q", got)
	}
	if got := cfg.Get("api_token"); got != "from-env" {
		t.Errorf("Get(api_token) = %q, want env fallback", got)
	}
	if got := cfg.GetDuration("timeout", time.Minute); got != 5*time.Second {
		t.Errorf("GetDuration = %v", got)
	}
	if got := cfg.GetDefault("issue_type", "Task"); got != "Task" {
		t.Errorf("GetDefault = %q", got)
	}
	_, err := cfg.GetRequired("project")
	if err == nil || !strings.Contains(err.Error(), "JIRA_PROJECT") {
		t.Errorf("GetRequired error = %v, want hint naming JIRA_PROJECT", err)
	}
}

type stubBackend struct{ name string }

func (s stubBackend) Name() string { return s.name }
func (stubBackend) ListIssues(context.Context, string, ListFilter) ([]types.ListItem, error) {
	return nil, nil
}
func (stubBackend) CreateIssue(context.Context, string, *types.Record, string) (*types.Outcome, error) {
	return nil, nil
}
func (stubBackend) ReadIssue(context.Context, string) (types.Detail, error) {
	return types.Detail{}, nil
}
func (stubBackend) AppendEvent(context.Context, string, types.Event, Guard) error { return nil }
func (stubBackend) SetAssignee(context.Context, string, string, types.Event, Guard) error {
	return nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	t.Run("empty registry", func(t *testing.T) {
		if got := r.List(); len(got) != 0 {
			t.Errorf("List() = %v, want empty", got)
		}
		if _, err := r.New("local", nil); err == nil {
			t.Error("New() should fail for unregistered backend")
		}
	})

	t.Run("register and build", func(t *testing.T) {
		var gotPrefix string
		r.Register("zebra", func(cfg *Config) (Backend, error) {
			gotPrefix = cfg.Prefix
			return stubBackend{name: "zebra"}, nil
		})
		r.Register("alpha", func(*Config) (Backend, error) { return stubBackend{name: "alpha"}, nil })

		b, err := r.New("zebra", nil)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if b.Name() != "zebra" || gotPrefix != "zebra" {
			t.Errorf("New built %q with prefix %q", b.Name(), gotPrefix)
		}
		if got := r.List(); len(got) != 2 || got[0] != "alpha" {
			t.Errorf("List() = %v, want sorted", got)
		}
		if !r.IsRegistered("alpha") || r.IsRegistered("beta") {
			t.Error("IsRegistered misreports")
		}
	})
}

func TestUserError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewUserError(ErrNotFound, "Error, issue %s does not exist.", "4/1"))
	if !errors.Is(err, ErrNotFound) {
		t.Error("UserError should unwrap to its kind")
	}
	if Kind(err) != ErrNotFound {
		t.Errorf("Kind() = %v, want ErrNotFound", Kind(err))
	}
	msg, ok := UserMessage(err)
	if !ok || msg != "Error, issue 4/1 does not exist." {
		t.Errorf("UserMessage() = %q, %v", msg, ok)
	}
	if _, ok := UserMessage(errors.New("plain")); ok {
		t.Error("plain errors carry no user message")
	}
}
