package github

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/steveyegge/issueboard/internal/coerce"
	"github.com/steveyegge/issueboard/internal/reduce"
	"github.com/steveyegge/issueboard/internal/tracker"
	"github.com/steveyegge/issueboard/internal/types"
)

// BackendName is the registry name of the GitHub backend.
const BackendName = "github"

func init() {
	tracker.Register(BackendName, func(cfg *tracker.Config) (tracker.Backend, error) {
		return NewTracker(cfg)
	})
}

// Tracker implements tracker.Backend for GitHub Issues.
type Tracker struct {
	client *Client
	logger *slog.Logger
}

// NewTracker builds a Tracker from configuration keys token, owner, repo and
// the optional url (GitHub Enterprise).
func NewTracker(cfg *tracker.Config) (*Tracker, error) {
	token := cfg.Get("token")
	owner := cfg.Get("owner")
	repo := cfg.Get("repo")
	var missing []string
	for _, kv := range [][2]string{{"token", token}, {"owner", owner}, {"repo", repo}} {
		if kv[1] == "" {
			missing = append(missing, cfg.Prefix+"."+kv[0])
		}
	}
	if len(missing) > 0 {
		return nil, &tracker.ErrNotInitialized{Tracker: BackendName, Reason: "missing " + strings.Join(missing, ", ")}
	}

	client := NewClient(token, owner, repo)
	if u := cfg.Get("url"); u != "" {
		client = client.WithBaseURL(strings.TrimSuffix(u, "/"))
	}
	if d := cfg.GetDuration("timeout", 0); d > 0 {
		client.HTTPClient.Timeout = d
	}
	return New(client), nil
}

// New wraps an existing client.
func New(client *Client) *Tracker {
	return &Tracker{client: client, logger: slog.Default().With("backend", BackendName)}
}

// WithLogger returns a copy of t that logs to l.
func (t *Tracker) WithLogger(l *slog.Logger) *Tracker {
	clone := *t
	clone.logger = l
	return &clone
}

// Name implements tracker.Backend.
func (t *Tracker) Name() string { return BackendName }

// ListIssues implements tracker.Backend. A prefix restricts the listing to
// sub-issues of that issue.
func (t *Tracker) ListIssues(ctx context.Context, prefix string, filter tracker.ListFilter) ([]types.ListItem, error) {
	var labels []string
	if strings.TrimSpace(prefix) != "" {
		parent, err := parseNumber(prefix)
		if err != nil {
			return nil, err
		}
		labels = append(labels, ParentLabel(parent))
	}

	issues, err := tracker.RetryRead(ctx, func(ctx context.Context) ([]Issue, error) {
		issues, err := t.client.FetchIssues(ctx, "all", labels...)
		if err != nil {
			return nil, t.wrap(err, "")
		}
		return issues, nil
	})
	if err != nil {
		return nil, err
	}

	items := make([]types.ListItem, 0, len(issues))
	for i := range issues {
		view := ViewFromIssue(&issues[i])
		if !filter.Matches(view) {
			continue
		}
		items = append(items, types.ListItem{
			Issue:    strconv.Itoa(issues[i].Number),
			Priority: view.Priority,
			Status:   view.Status,
			Assignee: view.Assignee,
			Title:    issues[i].Title,
		})
	}
	return items, nil
}

// CreateIssue implements tracker.Backend. A sub-issue gets a parent label, a
// note in its body, and a comment on the parent pointing back at it.
func (t *Tracker) CreateIssue(ctx context.Context, parent string, rec *types.Record, assignee string) (*types.Outcome, error) {
	parentNum := 0
	if strings.TrimSpace(parent) != "" {
		n, err := parseNumber(parent)
		if err != nil {
			return nil, err
		}
		if _, err := t.fetch(ctx, n); err != nil {
			if tracker.Kind(err) == tracker.ErrNotFound {
				return nil, tracker.NewUserError(tracker.ErrNotFound, "Failed to create sub-issue: Parent issue #%d not found", n)
			}
			return nil, err
		}
		parentNum = n
	}

	view := reduce.Derive(rec)
	title := rec.Title
	if title == "" {
		title = "No title provided"
	}
	body := rec.Description
	if body == "" {
		body = coerce.Stringify(rec.Extra["body"])
	}
	if parentNum > 0 {
		body += SubIssueNote(parentNum)
	}
	var assignees []string
	if assignee != "" {
		assignees = []string{assignee}
	}

	created, err := t.client.CreateIssue(ctx, title, body, CreateLabels(view.Status, view.Priority, parentNum), assignees)
	if err != nil {
		return nil, t.wrap(err, "")
	}
	t.logger.Debug("created issue", "issue", created.Number, "parent", parentNum)

	out := &types.Outcome{
		Issue:   strconv.Itoa(created.Number),
		Status:  types.OutcomeSuccess,
		Message: fmt.Sprintf("issue #%d created successfully.", created.Number),
	}
	if parentNum > 0 {
		out.ParentIssue = strconv.Itoa(parentNum)
		if _, err := t.client.CreateComment(ctx, parentNum, fmt.Sprintf("Sub-issue created: #%d", created.Number)); err != nil {
			// The sub-issue already exists at this point.
			t.logger.Warn("comment on parent issue", "parent", parentNum, "error", err)
		}
	}
	return out, nil
}

// ReadIssue implements tracker.Backend.
func (t *Tracker) ReadIssue(ctx context.Context, id string) (types.Detail, error) {
	n, err := parseNumber(id)
	if err != nil {
		return types.Detail{}, err
	}
	issue, err := tracker.RetryRead(ctx, func(ctx context.Context) (*Issue, error) {
		return t.fetch(ctx, n)
	})
	if err != nil {
		return types.Detail{}, err
	}

	fields := map[string]any{
		"title":    issue.Title,
		"body":     issue.Body,
		"state":    issue.State,
		"labels":   LabelNames(issue.Labels),
		"html_url": issue.HTMLURL,
	}
	if issue.CreatedAt != nil {
		fields["created_at"] = types.NewTimestamp(*issue.CreatedAt).String()
	}
	if issue.UpdatedAt != nil {
		fields["updated_at"] = types.NewTimestamp(*issue.UpdatedAt).String()
	}
	if p := ParentFromLabels(issue.Labels); p > 0 {
		fields["parent_issue"] = strconv.Itoa(p)
	}
	return types.Detail{Issue: strconv.Itoa(issue.Number), View: ViewFromIssue(issue), Fields: fields}, nil
}

// AppendEvent implements tracker.Backend. Status and priority replace the
// matching labels, a terminal status closes the issue, title and body in the
// event's extra fields edit the issue, and the event itself is kept as a comment.
// GitHub offers no compare-and-swap, so the guard runs against a fresh read.
func (t *Tracker) AppendEvent(ctx context.Context, id string, ev types.Event, guard tracker.Guard) error {
	n, issue, err := t.guarded(ctx, id, guard)
	if err != nil {
		return err
	}

	labels := ReplaceStateLabels(LabelNames(issue.Labels), ev.Status, ev.Priority)
	req := IssueRequest{Labels: &labels}
	if ev.Status != "" && types.IsTerminal(ev.Status) {
		closed := "closed"
		req.State = &closed
	}
	if title, ok := ev.Extra["title"].(string); ok && title != "" {
		req.Title = &title
	}
	for _, key := range []string{"body", "description"} {
		if body, ok := ev.Extra[key].(string); ok {
			req.Body = &body
			break
		}
	}
	if _, err := t.client.UpdateIssue(ctx, n, req); err != nil {
		return t.wrap(err, id)
	}
	t.comment(ctx, n, ev)
	return nil
}

// SetAssignee implements tracker.Backend. An empty assignee clears the assignment.
func (t *Tracker) SetAssignee(ctx context.Context, id, assignee string, ev types.Event, guard tracker.Guard) error {
	n, _, err := t.guarded(ctx, id, guard)
	if err != nil {
		return err
	}
	assignees := []string{}
	if assignee != "" {
		assignees = []string{assignee}
	}
	if _, err := t.client.UpdateIssue(ctx, n, IssueRequest{Assignees: &assignees}); err != nil {
		return t.wrap(err, id)
	}
	ev.Assignee = assignee
	t.comment(ctx, n, ev)
	return nil
}

// ValidateAssignee implements tracker.AssigneeValidator: the login must exist.
func (t *Tracker) ValidateAssignee(ctx context.Context, name string) error {
	_, err := t.client.GetUser(ctx, name)
	if err == nil {
		return nil
	}
	if IsNotFound(err) {
		return tracker.NewUserError(tracker.ErrInvalidAssignee,
			"Invalid assignee '%s'. User must exist and have access to the repository.", name)
	}
	return tracker.Unavailable(BackendName, err)
}

// guarded fetches issue id and runs guard against its view.
func (t *Tracker) guarded(ctx context.Context, id string, guard tracker.Guard) (int, *Issue, error) {
	n, err := parseNumber(id)
	if err != nil {
		return 0, nil, err
	}
	issue, err := tracker.RetryRead(ctx, func(ctx context.Context) (*Issue, error) {
		return t.fetch(ctx, n)
	})
	if err != nil {
		return 0, nil, err
	}
	if guard != nil {
		if err := guard(ViewFromIssue(issue)); err != nil {
			if issue.State == "closed" && tracker.Kind(err) == tracker.ErrAlreadyTerminal {
				return 0, nil, tracker.NewUserError(tracker.ErrAlreadyTerminal, "This issue is already closed.")
			}
			return 0, nil, err
		}
	}
	return n, issue, nil
}

func (t *Tracker) fetch(ctx context.Context, n int) (*Issue, error) {
	issue, err := t.client.FetchIssueByNumber(ctx, n)
	if err != nil {
		return nil, t.wrap(err, strconv.Itoa(n))
	}
	return issue, nil
}

func (t *Tracker) comment(ctx context.Context, n int, ev types.Event) {
	body := EventComment(ev)
	if body == "" {
		return
	}
	if _, err := t.client.CreateComment(ctx, n, body); err != nil {
		t.logger.Warn("record event comment", "issue", n, "error", err)
	}
}

// wrap converts client errors into tracker error kinds.
func (t *Tracker) wrap(err error, id string) error {
	if IsNotFound(err) && id != "" {
		return tracker.NotFoundf("issue #%s does not exist", id)
	}
	return tracker.Unavailable(BackendName, err)
}

// parseNumber accepts "12" or "#12".
func parseNumber(id string) (int, error) {
	s := strings.TrimPrefix(strings.TrimSpace(id), "#")
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: invalid issue number %q", tracker.ErrMalformedInput, id)
	}
	return n, nil
}

var _ tracker.Backend = (*Tracker)(nil)
var _ tracker.AssigneeValidator = (*Tracker)(nil)
