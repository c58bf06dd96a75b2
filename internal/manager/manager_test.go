package manager

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/issueboard/internal/roster"
	"github.com/steveyegge/issueboard/internal/storage/filelog"
	"github.com/steveyegge/issueboard/internal/tracker"
	"github.com/steveyegge/issueboard/internal/types"
)

var clock = time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)

func newTestManager(t *testing.T, opts ...filelog.Option) (*Manager, *filelog.Store) {
	t.Helper()
	discard := slog.New(slog.DiscardHandler)
	store, err := filelog.New(t.TempDir(), append([]filelog.Option{filelog.WithLogger(discard)}, opts...)...)
	require.NoError(t, err)
	m := New(store, WithLogger(discard), WithClock(func() time.Time { return clock }))
	return m, store
}

func str(s string) *string { return &s }

func outcome(t *testing.T, v any) types.Outcome {
	t.Helper()
	out, ok := v.(types.Outcome)
	require.Truef(t, ok, "result is %T, want types.Outcome", v)
	return out
}

func create(t *testing.T, m *Manager, parent, content string) string {
	t.Helper()
	out := outcome(t, m.Do(context.Background(), Request{Action: "create", Issue: parent, Content: str(content), Caller: "pm"}))
	require.Equal(t, types.OutcomeSuccess, out.Status, out.Message)
	return out.Issue
}

func events(t *testing.T, m *Manager, issue string) []types.Event {
	t.Helper()
	d, err := m.Read(context.Background(), issue)
	require.NoError(t, err)
	evs, ok := d.Fields["updates"].([]types.Event)
	require.True(t, ok)
	return evs
}

func TestDoUnknownAction(t *testing.T) {
	m, _ := newTestManager(t)
	out := outcome(t, m.Do(context.Background(), Request{Action: "delete", Issue: "1"}))
	assert.Equal(t, types.OutcomeError, out.Status)
	assert.Equal(t, "delete is not a valid action. Only 'list', 'create', 'read', 'update', 'assign' are valid actions", out.Message)
}

func TestCreateDefaults(t *testing.T) {
	m, _ := newTestManager(t)
	out := outcome(t, m.Do(context.Background(), Request{Action: "create", Content: str(`{"title": "Login fails"}`), Caller: "pm"}))
	assert.Equal(t, types.Outcome{Issue: "1", Status: types.OutcomeSuccess, Message: "issue 1 created successfully."}, out)

	d, err := m.Read(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Login fails", d.Fields["title"])
	assert.Equal(t, types.NewTimestamp(clock).String(), d.Fields["created_at"])
	assert.Equal(t, types.View{Status: "new", Priority: "4 - Low", Assignee: "pm", UpdatedBy: "pm"}, d.View)

	evs := events(t, m, "1")
	require.Len(t, evs, 1)
	assert.Equal(t, "create new issue.", evs[0].Details)
	assert.Equal(t, types.NewTimestamp(clock).String(), evs[0].UpdatedAt.String())
}

func TestCreateKeepsSuppliedFields(t *testing.T) {
	m, _ := newTestManager(t)
	content := `{"title": "t", "priority": "high", "updates": [{"status": "in progress", "details": "started"}]}`
	out := outcome(t, m.Do(context.Background(), Request{Action: "create", Content: str(content), Assignee: "coder", Caller: "pm"}))
	require.Equal(t, types.OutcomeSuccess, out.Status)

	evs := events(t, m, out.Issue)
	require.Len(t, evs, 1)
	assert.Equal(t, "in progress", evs[0].Status)
	assert.Equal(t, "high", evs[0].Priority)
	assert.Equal(t, "coder", evs[0].Assignee)
	assert.Equal(t, "started", evs[0].Details)
}

func TestCreateSequentialChildren(t *testing.T) {
	m, _ := newTestManager(t)
	for i := 0; i < 5; i++ {
		create(t, m, "", `{"title": "top"}`)
	}
	var got []string
	for i := 0; i < 3; i++ {
		got = append(got, create(t, m, "5", `{"title": "child"}`))
	}
	assert.Equal(t, []string{"5/1", "5/2", "5/3"}, got)
}

func TestCreateMissingParent(t *testing.T) {
	m, _ := newTestManager(t)
	out := outcome(t, m.Do(context.Background(), Request{Action: "create", Issue: "7", Content: str("x")}))
	assert.Equal(t, types.OutcomeError, out.Status)
	assert.Equal(t, "Failed to create sub-issue: Parent issue 7 not found", out.Message)
}

func TestCreateCoercionCascade(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		title       string
		description string
	}{
		{"json", `{"title": "From JSON", "description": "d"}`, "From JSON", "d"},
		{"json with raw newline", "{\"title\": \"T\", \"description\": \"line one\nline two\"}", "T", "line one\nline two"},
		{"yaml", "Title: From YAML\ndescription: yaml body", "From YAML", "yaml body"},
		{"prose", "The login page rejects valid passwords", "The login page rejects v", "The login page rejects valid passwords"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestManager(t)
			issue := create(t, m, "", tt.content)
			d, err := m.Read(context.Background(), issue)
			require.NoError(t, err)
			assert.Equal(t, tt.title, d.Fields["title"])
			assert.Equal(t, tt.description, d.Fields["description"])
		})
	}
}

func TestUpdateAppendsEvent(t *testing.T) {
	m, _ := newTestManager(t)
	issue := create(t, m, "", `{"title": "t"}`)

	out := outcome(t, m.Do(context.Background(), Request{Action: "update", Issue: issue, Content: str("status: in progress\npriority: 2 - High"), Caller: "coder"}))
	assert.Equal(t, types.Outcome{Issue: issue, Status: types.OutcomeSuccess}, out)

	d, err := m.Read(context.Background(), issue)
	require.NoError(t, err)
	assert.Equal(t, "in progress", d.View.Status)
	assert.Equal(t, "2 - High", d.View.Priority)
	assert.Equal(t, "coder", d.View.Assignee)
	assert.Equal(t, "coder", d.View.UpdatedBy)
}

func TestUpdateOrderingOutsideUTC(t *testing.T) {
	orig := time.Local
	ist := time.FixedZone("IST", 5*3600+1800)
	time.Local = ist
	t.Cleanup(func() { time.Local = orig })

	discard := slog.New(slog.DiscardHandler)
	store, err := filelog.New(t.TempDir(), filelog.WithLogger(discard))
	require.NoError(t, err)
	// 09:30 IST is 04:00Z, earlier than the explicit 08:00Z below.
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, ist)
	m := New(store, WithLogger(discard), WithClock(func() time.Time { return now }))
	issue := create(t, m, "", `{"title": "t"}`)

	for _, content := range []string{
		`{"status": "in progress", "updated_at": "2024-03-01T08:00:00Z"}`,
		`{"status": "blocked"}`,
	} {
		out := outcome(t, m.Do(context.Background(), Request{Action: "update", Issue: issue, Content: str(content), Caller: "coder"}))
		require.Equal(t, types.OutcomeSuccess, out.Status, out.Message)
	}

	d, err := m.Read(context.Background(), issue)
	require.NoError(t, err)
	assert.Equal(t, "in progress", d.View.Status)
	evs := events(t, m, issue)
	require.Len(t, evs, 3)
	assert.True(t, evs[1].UpdatedAt.Equal(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)), evs[1].UpdatedAt.String())
}

func TestUpdateProseBecomesDetails(t *testing.T) {
	m, _ := newTestManager(t)
	issue := create(t, m, "", `{"title": "t"}`)
	require.Equal(t, types.OutcomeSuccess, outcome(t, m.Do(context.Background(), Request{
		Action: "update", Issue: issue, Content: str("Looked into it, the cache is stale"), Caller: "coder",
	})).Status)

	evs := events(t, m, issue)
	require.Len(t, evs, 2)
	assert.Equal(t, "Looked into it, the cache is stale", evs[1].Details)
}

func TestUpdateTerminalIssueIsRejected(t *testing.T) {
	m, _ := newTestManager(t, filelog.WithRoster(roster.Static{"qa"}))
	issue := create(t, m, "", `{"title": "t"}`)
	require.Equal(t, types.OutcomeSuccess, outcome(t, m.Do(context.Background(), Request{
		Action: "update", Issue: issue, Content: str(`{"status": "completed"}`), Caller: "coder",
	})).Status)
	before := events(t, m, issue)

	for _, req := range []Request{
		{Action: "update", Issue: issue, Content: str(`{"status": "in progress"}`), Caller: "coder"},
		{Action: "assign", Issue: issue, Assignee: "qa", Caller: "pm"},
	} {
		out := outcome(t, m.Do(context.Background(), req))
		assert.Equal(t, types.OutcomeError, out.Status, req.Action)
		assert.Equal(t, msgTerminal, out.Message, req.Action)
	}
	assert.Equal(t, before, events(t, m, issue))
}

func TestUpdateMissingIssue(t *testing.T) {
	m, _ := newTestManager(t)
	out := outcome(t, m.Do(context.Background(), Request{Action: "update", Issue: "9", Content: str("hi")}))
	assert.Equal(t, types.ErrorOutcome("9", "Error, issue 9 does not exist."), out)
}

func TestAssign(t *testing.T) {
	m, _ := newTestManager(t, filelog.WithRoster(roster.Static{"pm", "coder"}))
	issue := create(t, m, "", `{"title": "t"}`)

	out := outcome(t, m.Do(context.Background(), Request{Action: "assign", Issue: issue, Assignee: "coder", Caller: "pm"}))
	assert.Equal(t, types.Outcome{Issue: issue, Status: types.OutcomeSuccess, Message: "Assigned to coder successfully."}, out)

	evs := events(t, m, issue)
	require.Len(t, evs, 2)
	assert.Equal(t, "coder", evs[1].Assignee)
	assert.Equal(t, "pm", evs[1].UpdatedBy)
	assert.Equal(t, "assign #1 to coder.", evs[1].Details)
}

func TestAssignRejectsUnknownAgent(t *testing.T) {
	m, _ := newTestManager(t, filelog.WithRoster(roster.Static{"pm", "coder"}))
	issue := create(t, m, "", `{"title": "t"}`)

	out := outcome(t, m.Do(context.Background(), Request{Action: "assign", Issue: issue, Assignee: "intern", Caller: "pm"}))
	assert.Equal(t, types.OutcomeError, out.Status)
	assert.Equal(t, "Assignee intern is not a valid agent, please only assign to one of the following agents: ['pm', 'coder'].", out.Message)
	assert.Len(t, events(t, m, issue), 1)
}

func TestAssignWithoutAgentsRejects(t *testing.T) {
	m, _ := newTestManager(t)
	issue := create(t, m, "", `{"title": "t"}`)

	out := outcome(t, m.Do(context.Background(), Request{Action: "assign", Issue: issue, Assignee: "no-such-agent", Caller: "pm"}))
	assert.Equal(t, types.OutcomeError, out.Status)
	assert.Contains(t, out.Message, "no-such-agent is not a valid agent")
	assert.Len(t, events(t, m, issue), 1)
}

func TestAssignDefaultsToCaller(t *testing.T) {
	m, _ := newTestManager(t)
	issue := create(t, m, "", `{"title": "t"}`)
	out := outcome(t, m.Do(context.Background(), Request{Action: "assign", Issue: issue, Caller: "coder"}))
	assert.Equal(t, "Assigned to coder successfully.", out.Message)

	d, err := m.Read(context.Background(), issue)
	require.NoError(t, err)
	assert.Equal(t, "coder", d.View.Assignee)
}

func TestListOnlyInState(t *testing.T) {
	m, _ := newTestManager(t)
	for _, status := range []string{"in progress", "in process", "new"} {
		create(t, m, "", `{"title": "`+status+`", "updates": [{"status": "`+status+`"}]}`)
	}

	items, ok := m.Do(context.Background(), Request{Action: "list", OnlyInState: []string{"in progress"}}).([]types.ListItem)
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Equal(t, "in progress", items[0].Status)
	assert.Equal(t, "in process", items[1].Status)
}

func TestListByAssignee(t *testing.T) {
	m, _ := newTestManager(t)
	create(t, m, "", `{"title": "mine"}`)
	out := outcome(t, m.Do(context.Background(), Request{Action: "create", Content: str(`{"title": "theirs"}`), Assignee: "coder", Caller: "pm"}))
	require.False(t, out.Failed(), out.Message)

	items, ok := m.Do(context.Background(), Request{Action: "list", Assignee: "coder"}).([]types.ListItem)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "theirs", items[0].Title)
}

func TestReadReturnsDetail(t *testing.T) {
	m, _ := newTestManager(t)
	issue := create(t, m, "", `{"title": "t"}`)
	d, ok := m.Do(context.Background(), Request{Action: "read", Issue: issue}).(types.Detail)
	require.True(t, ok)
	assert.Equal(t, issue, d.Issue)
}

// stubBackend fails or blocks every call.
type stubBackend struct {
	tracker.Backend
	err   error
	block bool
}

func (s stubBackend) ListIssues(ctx context.Context, _ string, _ tracker.ListFilter) ([]types.ListItem, error) {
	if s.block {
		<-ctx.Done()
		return nil, tracker.Unavailable("stub", ctx.Err())
	}
	return []types.ListItem{{Issue: "1"}}, s.err
}

func TestListBackendFailure(t *testing.T) {
	m := New(stubBackend{err: tracker.Unavailable("stub", errors.New("connection refused"))}, WithLogger(slog.New(slog.DiscardHandler)))
	out := outcome(t, m.Do(context.Background(), Request{Action: "list"}))
	assert.Equal(t, types.OutcomeError, out.Status)
	assert.Contains(t, out.Message, "connection refused")
}

func TestCallTimeout(t *testing.T) {
	m := New(stubBackend{block: true}, WithLogger(slog.New(slog.DiscardHandler)), WithTimeout(10*time.Millisecond))
	out := outcome(t, m.Do(context.Background(), Request{Action: "list"}))
	assert.Equal(t, types.OutcomeError, out.Status)
	assert.Contains(t, out.Message, "timed out")
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "custom", Message(tracker.NewUserError(tracker.ErrNotFound, "custom"), "read"))
	assert.Equal(t, msgTerminal, Message(tracker.ErrAlreadyTerminal, "update"))
	assert.Equal(t, "boom", Message(errors.New("boom"), "read"))
}
