package jira

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/steveyegge/issueboard/internal/coerce"
	"github.com/steveyegge/issueboard/internal/reduce"
	"github.com/steveyegge/issueboard/internal/tracker"
	"github.com/steveyegge/issueboard/internal/types"
)

// BackendName is the registry name of the Jira backend.
const BackendName = "jira"

// Default issue types used when none are configured.
const (
	DefaultIssueType   = "Task"
	DefaultSubtaskType = "Sub-task"
)

func init() {
	tracker.Register(BackendName, func(cfg *tracker.Config) (tracker.Backend, error) {
		return NewTracker(cfg)
	})
}

// Tracker implements tracker.Backend for Jira.
type Tracker struct {
	client      *Client
	projectKey  string
	issueType   string
	subtaskType string
	jql         string
	logger      *slog.Logger
}

// NewTracker builds a Tracker from configuration keys url, project, api_token,
// and the optional username, issue_type, subtask_type and jql.
func NewTracker(cfg *tracker.Config) (*Tracker, error) {
	var missing []string
	for _, key := range []string{"url", "project", "api_token"} {
		if cfg.Get(key) == "" {
			missing = append(missing, cfg.Prefix+"."+key)
		}
	}
	if len(missing) > 0 {
		return nil, &tracker.ErrNotInitialized{Tracker: BackendName, Reason: "missing " + strings.Join(missing, ", ")}
	}

	client := NewClient(cfg.Get("url"), cfg.Get("username"), cfg.Get("api_token"))
	if d := cfg.GetDuration("timeout", 0); d > 0 {
		client.HTTPClient.Timeout = d
	}
	t := New(client, cfg.Get("project"))
	t.issueType = cfg.GetDefault("issue_type", DefaultIssueType)
	t.subtaskType = cfg.GetDefault("subtask_type", DefaultSubtaskType)
	t.jql = cfg.Get("jql")
	return t, nil
}

// New wraps an existing client for project projectKey.
func New(client *Client, projectKey string) *Tracker {
	return &Tracker{
		client:      client,
		projectKey:  projectKey,
		issueType:   DefaultIssueType,
		subtaskType: DefaultSubtaskType,
		logger:      slog.Default().With("backend", BackendName),
	}
}

// Name implements tracker.Backend.
func (t *Tracker) Name() string { return BackendName }

// ListIssues implements tracker.Backend. A prefix lists the sub-tasks of that issue.
func (t *Tracker) ListIssues(ctx context.Context, prefix string, filter tracker.ListFilter) ([]types.ListItem, error) {
	jql := BuildJQL(t.projectKey, strings.TrimSpace(prefix), t.jql, filter)
	t.logger.Debug("search", "jql", jql)

	issues, err := tracker.RetryRead(ctx, func(ctx context.Context) ([]Issue, error) {
		issues, err := t.client.SearchIssues(ctx, jql)
		if err != nil {
			return nil, tracker.Unavailable(BackendName, err)
		}
		return issues, nil
	})
	if err != nil {
		return nil, err
	}

	// The JQL already filtered; re-check states so the in process alias lines up.
	states := tracker.ListFilter{OnlyInState: filter.OnlyInState}
	items := make([]types.ListItem, 0, len(issues))
	for i := range issues {
		view := ViewFromIssue(&issues[i])
		if !states.Matches(view) {
			continue
		}
		items = append(items, types.ListItem{
			Issue:    issues[i].Key,
			Priority: view.Priority,
			Status:   view.Status,
			Assignee: view.Assignee,
			Title:    issues[i].Fields.Summary,
		})
	}
	return items, nil
}

// CreateIssue implements tracker.Backend. With a parent the issue is created as
// a sub-task of it.
func (t *Tracker) CreateIssue(ctx context.Context, parent string, rec *types.Record, assignee string) (*types.Outcome, error) {
	parent = strings.TrimSpace(parent)
	view := reduce.Derive(rec)

	summary := rec.Title
	if summary == "" {
		summary = coerce.Stringify(rec.Extra["summary"])
	}
	if summary == "" {
		summary = "No title provided"
	}
	fields := map[string]any{
		"project":   ProjectField{Key: t.projectKey},
		"summary":   summary,
		"issuetype": NamedField{Name: t.issueType},
		"priority":  NamedField{Name: PriorityToJira(view.Priority)},
	}
	description := rec.Description
	if description == "" {
		description = coerce.Stringify(rec.Extra["body"])
	}
	if adf := PlainTextToADF(description); adf != nil {
		fields["description"] = adf
	}
	if parent != "" {
		fields["parent"] = ParentField{Key: parent}
		fields["issuetype"] = NamedField{Name: t.subtaskType}
	}
	if assignee != "" {
		user, err := t.resolveUser(ctx, assignee)
		if err != nil {
			return nil, err
		}
		fields["assignee"] = map[string]string{"accountId": user.AccountID}
	}

	created, err := t.client.CreateIssue(ctx, fields)
	if err != nil {
		if IsNotFound(err) && parent != "" {
			return nil, tracker.NewUserError(tracker.ErrNotFound, "Failed to create sub-issue: Parent issue %s not found", parent)
		}
		return nil, tracker.Unavailable(BackendName, err)
	}
	t.logger.Debug("created issue", "issue", created.Key, "parent", parent)

	if view.Status != "" && !strings.EqualFold(view.Status, types.DefaultStatus) {
		if err := t.transition(ctx, created.Key, view.Status); err != nil {
			t.logger.Warn("initial transition", "issue", created.Key, "status", view.Status, "error", err)
		}
	}

	return &types.Outcome{
		Issue:       created.Key,
		Status:      types.OutcomeSuccess,
		Message:     fmt.Sprintf("issue %s created successfully.", created.Key),
		ParentIssue: parent,
	}, nil
}

// ReadIssue implements tracker.Backend.
func (t *Tracker) ReadIssue(ctx context.Context, id string) (types.Detail, error) {
	key, err := parseKey(id)
	if err != nil {
		return types.Detail{}, err
	}
	issue, err := tracker.RetryRead(ctx, func(ctx context.Context) (*Issue, error) {
		return t.fetch(ctx, key)
	})
	if err != nil {
		return types.Detail{}, err
	}

	f := issue.Fields
	fields := map[string]any{
		"title":      f.Summary,
		"body":       DescriptionToPlainText(f.Description),
		"created_at": f.Created,
		"updated_at": f.Updated,
	}
	if len(f.Labels) > 0 {
		fields["labels"] = f.Labels
	}
	if f.IssueType != nil {
		fields["issue_type"] = f.IssueType.Name
	}
	if f.Parent != nil && f.Parent.Key != "" {
		fields["parent_issue"] = f.Parent.Key
	}
	return types.Detail{Issue: issue.Key, View: ViewFromIssue(issue), Fields: fields}, nil
}

// AppendEvent implements tracker.Backend. A status moves the issue through the
// matching workflow transition; priority, title and body are field writes; the
// event is recorded as a comment.
func (t *Tracker) AppendEvent(ctx context.Context, id string, ev types.Event, guard tracker.Guard) error {
	key, _, err := t.guarded(ctx, id, guard)
	if err != nil {
		return err
	}

	if ev.Status != "" {
		if err := t.transition(ctx, key, ev.Status); err != nil {
			return err
		}
	}

	fields := map[string]any{}
	if ev.Priority != "" {
		fields["priority"] = NamedField{Name: PriorityToJira(ev.Priority)}
	}
	if title, ok := ev.Extra["title"].(string); ok && title != "" {
		fields["summary"] = title
	}
	for _, k := range []string{"body", "description"} {
		if body, ok := ev.Extra[k].(string); ok {
			fields["description"] = PlainTextToADF(body)
			break
		}
	}
	if len(fields) > 0 {
		if err := t.client.UpdateIssue(ctx, key, fields); err != nil {
			return t.wrap(err, key)
		}
	}
	t.comment(ctx, key, ev)
	return nil
}

// SetAssignee implements tracker.Backend. An empty assignee unassigns.
func (t *Tracker) SetAssignee(ctx context.Context, id, assignee string, ev types.Event, guard tracker.Guard) error {
	key, _, err := t.guarded(ctx, id, guard)
	if err != nil {
		return err
	}
	accountID := ""
	if assignee != "" {
		user, err := t.resolveUser(ctx, assignee)
		if err != nil {
			return err
		}
		accountID = user.AccountID
	}
	if err := t.client.AssignIssue(ctx, key, accountID); err != nil {
		return t.wrap(err, key)
	}
	ev.Assignee = assignee
	t.comment(ctx, key, ev)
	return nil
}

// ValidateAssignee implements tracker.AssigneeValidator.
func (t *Tracker) ValidateAssignee(ctx context.Context, name string) error {
	_, err := t.resolveUser(ctx, name)
	return err
}

// resolveUser finds the one account whose display name, email or account id
// equals name. Jira's user search matches prefixes, so partial hits and
// ambiguous names are rejected.
func (t *Tracker) resolveUser(ctx context.Context, name string) (*UserField, error) {
	users, err := tracker.RetryRead(ctx, func(ctx context.Context) ([]UserField, error) {
		users, err := t.client.FindUsers(ctx, name)
		if err != nil {
			return nil, tracker.Unavailable(BackendName, err)
		}
		return users, nil
	})
	if err != nil {
		return nil, err
	}
	var match *UserField
	for i := range users {
		if strings.EqualFold(users[i].DisplayName, name) || strings.EqualFold(users[i].EmailAddress, name) || users[i].AccountID == name {
			if match != nil {
				return nil, tracker.NewUserError(tracker.ErrInvalidAssignee,
					"Invalid assignee '%s'. More than one user matches; use an email address.", name)
			}
			match = &users[i]
		}
	}
	if match != nil {
		return match, nil
	}
	return nil, tracker.NewUserError(tracker.ErrInvalidAssignee,
		"Invalid assignee '%s'. User must exist and have access to the project.", name)
}

// transition moves key to the transition whose target status matches status.
func (t *Tracker) transition(ctx context.Context, key, status string) error {
	transitions, err := t.client.GetTransitions(ctx, key)
	if err != nil {
		return t.wrap(err, key)
	}
	tr, ok := FindTransition(transitions, status)
	if !ok {
		return tracker.NewUserError(tracker.ErrMalformedInput, "No transition found to status: %s", status)
	}
	if err := t.client.DoTransition(ctx, key, tr.ID); err != nil {
		return t.wrap(err, key)
	}
	return nil
}

func (t *Tracker) guarded(ctx context.Context, id string, guard tracker.Guard) (string, *Issue, error) {
	key, err := parseKey(id)
	if err != nil {
		return "", nil, err
	}
	issue, err := tracker.RetryRead(ctx, func(ctx context.Context) (*Issue, error) {
		return t.fetch(ctx, key)
	})
	if err != nil {
		return "", nil, err
	}
	if guard != nil {
		if err := guard(ViewFromIssue(issue)); err != nil {
			return "", nil, err
		}
	}
	return issue.Key, issue, nil
}

func (t *Tracker) fetch(ctx context.Context, key string) (*Issue, error) {
	issue, err := t.client.GetIssue(ctx, key)
	if err != nil {
		return nil, t.wrap(err, key)
	}
	return issue, nil
}

func (t *Tracker) comment(ctx context.Context, key string, ev types.Event) {
	text := EventComment(ev)
	if text == "" {
		return
	}
	if err := t.client.AddComment(ctx, key, text); err != nil {
		t.logger.Warn("record event comment", "issue", key, "error", err)
	}
}

func (t *Tracker) wrap(err error, key string) error {
	if IsNotFound(err) {
		return tracker.NotFoundf("issue %s does not exist", key)
	}
	return tracker.Unavailable(BackendName, err)
}

// parseKey validates an issue key like "PROJ-123".
func parseKey(id string) (string, error) {
	key := strings.ToUpper(strings.TrimSpace(id))
	dash := strings.LastIndexByte(key, '-')
	if dash <= 0 || dash == len(key)-1 {
		return "", fmt.Errorf("%w: invalid issue key %q", tracker.ErrMalformedInput, id)
	}
	for _, r := range key[dash+1:] {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: invalid issue key %q", tracker.ErrMalformedInput, id)
		}
	}
	return key, nil
}

var _ tracker.Backend = (*Tracker)(nil)
var _ tracker.AssigneeValidator = (*Tracker)(nil)
