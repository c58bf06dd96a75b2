// Package manager dispatches issue_manager requests to a tracker backend.
//
// A request names one of the actions list, create, read, update or assign.
// Content is coerced into structured fields, defaults are filled in from the
// caller and the clock, and the backend performs the storage work. Every
// failure is returned to the caller as an error outcome; nothing panics out.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/steveyegge/issueboard/internal/coerce"
	"github.com/steveyegge/issueboard/internal/tracker"
	"github.com/steveyegge/issueboard/internal/types"
)

// DefaultTimeout bounds every backend call made for one request.
const DefaultTimeout = 2 * time.Minute

// Caller-facing messages.
const (
	msgTerminal = "This issue is already completed. Please create a new sub issue if you have additional actions needed to be taken on this issue."
	msgCreate   = "create new issue."
)

// Request is one issue_manager call.
type Request struct {
	Action      string   `json:"action"`
	Issue       string   `json:"issue,omitempty"`
	OnlyInState []string `json:"only_in_state,omitempty"`
	// Content is free-form text; nil means no content was supplied.
	Content  *string `json:"content,omitempty"`
	Assignee string  `json:"assignee,omitempty"`
	Caller   string  `json:"caller,omitempty"`
}

// Manager runs requests against a single backend.
type Manager struct {
	backend tracker.Backend
	logger  *slog.Logger
	now     func() time.Time
	timeout time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClock overrides the clock used for default timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithTimeout sets the per-call timeout. Zero or negative disables it.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// New returns a Manager backed by backend.
func New(backend tracker.Backend, opts ...Option) *Manager {
	m := &Manager{
		backend: backend,
		logger:  slog.Default(),
		now:     time.Now,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Backend returns the backend requests are sent to.
func (m *Manager) Backend() tracker.Backend { return m.backend }

// Do executes req and returns []types.ListItem for a successful list,
// types.Detail for a successful read, and types.Outcome otherwise.
func (m *Manager) Do(ctx context.Context, req Request) any {
	m.logger.Debug("issue_manager", "action", req.Action, "issue", req.Issue, "caller", req.Caller)

	action, ok := types.ParseAction(req.Action)
	if !ok {
		return m.outcome(req.Issue, fmt.Errorf("%w: %s", tracker.ErrUnknownAction, req.Action), req.Action)
	}

	var result any
	switch action {
	case types.ActionList:
		items, err := m.List(ctx, req.Issue, tracker.ListFilter{OnlyInState: req.OnlyInState, Assignee: req.Assignee})
		if err != nil {
			result = m.outcome(req.Issue, err, req.Action)
			break
		}
		result = items
	case types.ActionCreate:
		out, err := m.Create(ctx, req.Issue, req.Content, req.Assignee, req.Caller)
		if err != nil {
			result = m.outcome(req.Issue, err, req.Action)
			break
		}
		result = *out
	case types.ActionRead:
		d, err := m.Read(ctx, req.Issue)
		if err != nil {
			result = m.outcome(req.Issue, err, req.Action)
			break
		}
		result = d
	case types.ActionUpdate:
		out, err := m.Update(ctx, req.Issue, req.Content, req.Caller)
		if err != nil {
			result = m.outcome(req.Issue, err, req.Action)
			break
		}
		result = *out
	case types.ActionAssign:
		out, err := m.Assign(ctx, req.Issue, req.Assignee, req.Content, req.Caller)
		if err != nil {
			result = m.outcome(req.Issue, err, req.Action)
			break
		}
		result = *out
	}

	m.logger.Debug("issue_manager done", "action", req.Action, "issue", req.Issue)
	return result
}

// List returns the issues at or below prefix that pass filter.
func (m *Manager) List(ctx context.Context, prefix string, filter tracker.ListFilter) ([]types.ListItem, error) {
	ctx, cancel := m.callContext(ctx)
	defer cancel()
	return m.backend.ListIssues(ctx, prefix, filter)
}

// Create makes a new issue under parent from content. The last event of the
// new record receives the creation defaults.
func (m *Manager) Create(ctx context.Context, parent string, content *string, assignee, caller string) (*types.Outcome, error) {
	now := m.now()
	fields := m.coerce(content, types.ActionCreate)
	rec := m.builder(now).Record(fields)

	ev := rec.LastUpdate()
	if ev.UpdatedBy == "" {
		ev.UpdatedBy = firstNonEmpty(caller, rec.UpdatedBy, types.Unknown)
	}
	if !ev.UpdatedAt.Set() {
		ev.UpdatedAt = types.NewTimestamp(now)
	}
	if ev.Priority == "" {
		ev.Priority = firstNonEmpty(rec.Priority, types.DefaultPriority)
	}
	if ev.Assignee == "" {
		ev.Assignee = firstNonEmpty(assignee, rec.Assignee, caller, types.Unknown)
	}
	if ev.Status == "" {
		ev.Status = firstNonEmpty(rec.Status, types.DefaultStatus)
	}
	if ev.Details == nil {
		ev.Details = msgCreate
	}
	if !rec.CreatedAt.Set() {
		rec.CreatedAt = types.NewTimestamp(now)
	}

	ctx, cancel := m.callContext(ctx)
	defer cancel()
	out, err := m.backend.CreateIssue(ctx, parent, &rec, assignee)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("created issue", "issue", out.Issue, "parent", parent)
	return out, nil
}

// Read returns the issue's native fields and derived view.
func (m *Manager) Read(ctx context.Context, issue string) (types.Detail, error) {
	ctx, cancel := m.callContext(ctx)
	defer cancel()
	return m.backend.ReadIssue(ctx, issue)
}

// Update appends an event built from content. Completed and closed issues are
// left untouched.
func (m *Manager) Update(ctx context.Context, issue string, content *string, caller string) (*types.Outcome, error) {
	if strings.TrimSpace(issue) == "" {
		return nil, fmt.Errorf("%w: issue is required for update", tracker.ErrMalformedInput)
	}
	now := m.now()
	ev := m.builder(now).Event(m.coerce(content, types.ActionUpdate))
	if !ev.UpdatedAt.Set() {
		ev.UpdatedAt = types.NewTimestamp(now)
	}
	if ev.UpdatedBy == "" {
		ev.UpdatedBy = firstNonEmpty(caller, types.Unknown)
	}
	if ev.Assignee == "" {
		ev.Assignee = caller
	}

	ctx, cancel := m.callContext(ctx)
	defer cancel()
	if err := m.backend.AppendEvent(ctx, issue, ev, tracker.RejectTerminal); err != nil {
		return nil, err
	}
	return &types.Outcome{Issue: issue, Status: types.OutcomeSuccess}, nil
}

// Assign hands the issue to assignee, or to the caller when assignee is empty.
// An explicit assignee is checked with the backend before anything is written.
func (m *Manager) Assign(ctx context.Context, issue, assignee string, content *string, caller string) (*types.Outcome, error) {
	if strings.TrimSpace(issue) == "" {
		return nil, fmt.Errorf("%w: issue is required for assign", tracker.ErrMalformedInput)
	}
	explicit := assignee != ""
	if !explicit {
		assignee = caller
	}
	if assignee == "" {
		return nil, fmt.Errorf("%w: assignee or caller is required for assign", tracker.ErrMalformedInput)
	}

	now := m.now()
	fields := m.coerce(content, types.ActionAssign)
	if content != nil && len(fields) == 0 && strings.TrimSpace(*content) != "" {
		fields["details"] = *content
	}
	ev := m.builder(now).Event(fields)
	if !ev.UpdatedAt.Set() {
		ev.UpdatedAt = types.NewTimestamp(now)
	}
	if ev.UpdatedBy == "" {
		ev.UpdatedBy = firstNonEmpty(caller, types.Unknown)
	}
	if ev.Details == nil {
		ev.Details = fmt.Sprintf("assign #%s to %s.", issue, assignee)
	}

	ctx, cancel := m.callContext(ctx)
	defer cancel()
	if v, ok := m.backend.(tracker.AssigneeValidator); ok && explicit {
		if err := v.ValidateAssignee(ctx, assignee); err != nil {
			return nil, err
		}
	}
	m.logger.Debug("assigning", "issue", issue, "assignee", assignee, "details", ev.Details)
	if err := m.backend.SetAssignee(ctx, issue, assignee, ev, tracker.RejectTerminal); err != nil {
		return nil, err
	}
	return &types.Outcome{
		Issue:   issue,
		Status:  types.OutcomeSuccess,
		Message: fmt.Sprintf("Assigned to %s successfully.", assignee),
	}, nil
}

// Outcome converts err into the error outcome reported for issue.
func (m *Manager) Outcome(issue string, err error) types.Outcome {
	return m.outcome(issue, err, "")
}

func (m *Manager) outcome(issue string, err error, action string) types.Outcome {
	m.logger.Debug("request failed", "action", action, "issue", issue, "error", err)
	return types.ErrorOutcome(issue, Message(err, action))
}

// Message returns the caller-facing text for err.
func Message(err error, action string) string {
	if msg, ok := tracker.UserMessage(err); ok {
		return msg
	}
	switch {
	case errors.Is(err, tracker.ErrUnknownAction):
		return fmt.Sprintf("%s is not a valid action. Only %s are valid actions", action, quotedActions())
	case errors.Is(err, tracker.ErrAlreadyTerminal):
		return msgTerminal
	case errors.Is(err, context.DeadlineExceeded):
		return "Error, the request timed out: " + err.Error()
	}
	return err.Error()
}

func quotedActions() string {
	names := make([]string, len(types.ValidActions))
	for i, a := range types.ValidActions {
		names[i] = "'" + string(a) + "'"
	}
	return strings.Join(names, ", ")
}

// coerce runs the content cascade, logging when content was not JSON.
func (m *Manager) coerce(content *string, action types.Action) map[string]any {
	res := coerce.Coerce(content, action)
	switch res.Source {
	case coerce.SourceYAML, coerce.SourceProse:
		m.logger.Warn("content is not valid JSON", "action", action, "parsed_as", res.Source.String())
	case coerce.SourceNone:
		if content != nil && strings.TrimSpace(*content) != "" {
			m.logger.Warn("content could not be parsed", "action", action)
		}
	}
	return res.Fields
}

func (m *Manager) builder(now time.Time) coerce.Builder {
	return coerce.Builder{Now: now, Logger: m.logger}
}

func (m *Manager) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
