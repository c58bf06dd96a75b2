// Package filelog implements the local issue backend: a directory tree with
// one JSON record per issue.
//
// Issue 0/2/5 lives at <root>/0/2/5/0.2.5.json. A record holds the issue's
// top-level fields and its append-only "updates" list. Allocation of child ids
// and the terminal check before an append both run under a per-path lock that
// combines an in-process mutex with an flock on <root>/.locks/<path>.lock, so
// concurrent writers on the same path serialize while unrelated paths proceed.
package filelog

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/issueboard/internal/idgen"
	"github.com/steveyegge/issueboard/internal/lockfile"
	"github.com/steveyegge/issueboard/internal/reduce"
	"github.com/steveyegge/issueboard/internal/roster"
	"github.com/steveyegge/issueboard/internal/tracker"
	"github.com/steveyegge/issueboard/internal/types"
)

// BackendName is the registry name of the local backend.
const BackendName = "local"

const locksDir = ".locks"

// Store is the local file-tree backend.
type Store struct {
	root        string
	roster      roster.Roster
	logger      *slog.Logger
	locks       *keyedMutex
	parallelism int
}

// Option configures a Store.
type Option func(*Store)

// WithRoster sets the roster used to validate assignees. A nil roster turns
// validation off; without this option the roster is empty and every explicit
// assignee is rejected.
func WithRoster(r roster.Roster) Option {
	return func(s *Store) { s.roster = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithParallelism bounds how many records List decodes at once.
func WithParallelism(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// New opens (creating if needed) a board rooted at root.
func New(root string, opts ...Option) (*Store, error) {
	if root == "" {
		return nil, &tracker.ErrNotInitialized{Tracker: BackendName, Reason: "board directory not set"}
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve board root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, tracker.Unavailable(BackendName, fmt.Errorf("create board root: %w", err))
	}
	s := &Store{
		root:        abs,
		roster:      roster.Static{},
		logger:      slog.Default(),
		locks:       newKeyedMutex(),
		parallelism: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the board's root directory.
func (s *Store) Root() string { return s.root }

// Name implements tracker.Backend.
func (s *Store) Name() string { return BackendName }

// ListIssues implements tracker.Backend. Issues are returned in hierarchical
// numeric order (1, 1/1, 1/2, 2, 10, ...).
func (s *Store) ListIssues(ctx context.Context, prefix string, filter tracker.ListFilter) ([]types.ListItem, error) {
	start, err := parsePath(prefix)
	if err != nil {
		return nil, err
	}
	paths, err := s.scan(ctx, start)
	if err != nil {
		return nil, err
	}

	items := make([]*types.ListItem, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i] = s.listItem(p, filter)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, tracker.Unavailable(BackendName, err)
	}

	out := make([]types.ListItem, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out, nil
}

// listItem decodes one record. Decode failures become error items rather than
// failing the listing; items excluded by the filter yield nil.
func (s *Store) listItem(p types.Path, filter tracker.ListFilter) *types.ListItem {
	rec, err := s.readRecord(p)
	if err != nil {
		s.logger.Warn("cannot decode issue record", "issue", p.String(), "error", err)
		return &types.ListItem{
			Issue:   p.String(),
			Status:  types.OutcomeError,
			Message: fmt.Sprintf("Error Decoding Json: %v", err),
		}
	}
	view := reduce.Derive(rec)
	if !filter.Matches(view) {
		return nil
	}
	return &types.ListItem{
		Issue:    p.String(),
		Priority: types.NormalizePriority(view.Priority),
		Status:   view.Status,
		Assignee: view.Assignee,
		Title:    rec.Title,
	}
}

// scan walks from start and returns every path whose directory holds its record.
func (s *Store) scan(ctx context.Context, start types.Path) ([]types.Path, error) {
	startDir := start.Dir(s.root)
	var paths []types.Path
	err := filepath.WalkDir(startDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == startDir {
				return fs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != startDir {
			if _, ok := types.ParseSegment(d.Name()); !ok {
				return fs.SkipDir
			}
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil || rel == "." {
			return nil
		}
		p, err := types.ParsePath(filepath.ToSlash(rel))
		if err != nil {
			return nil
		}
		if _, err := os.Stat(p.RecordFile(s.root)); err == nil {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, tracker.Unavailable(BackendName, fmt.Errorf("scan board: %w", err))
	}
	sort.Slice(paths, func(i, j int) bool { return lessPath(paths[i], paths[j]) })
	return paths, nil
}

func lessPath(a, b types.Path) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// ChildNames implements idgen.ChildScanner: the numeric child directories of
// parent that contain a record.
func (s *Store) ChildNames(ctx context.Context, parent types.Path) ([]string, error) {
	entries, err := os.ReadDir(parent.Dir(s.root))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n, ok := types.ParseSegment(e.Name())
		if !ok {
			continue
		}
		if _, err := os.Stat(parent.Child(n).RecordFile(s.root)); err == nil {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// CreateIssue implements tracker.Backend. The parent must exist unless it is the root.
func (s *Store) CreateIssue(ctx context.Context, parent string, rec *types.Record, _ string) (*types.Outcome, error) {
	pp, err := parsePath(parent)
	if err != nil {
		return nil, err
	}
	unlock, err := s.lock(ctx, pp)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !pp.IsRoot() {
		if _, err := os.Stat(pp.RecordFile(s.root)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, tracker.NewUserError(tracker.ErrNotFound, "Failed to create sub-issue: Parent issue %s not found", pp.String())
			}
			return nil, tracker.Unavailable(BackendName, err)
		}
	}

	id, err := idgen.NextChildID(ctx, s, pp)
	if err != nil {
		return nil, tracker.Unavailable(BackendName, err)
	}
	if err := os.MkdirAll(id.Dir(s.root), 0o755); err != nil {
		return nil, tracker.Unavailable(BackendName, fmt.Errorf("create issue dir: %w", err))
	}
	if err := publishJSON(id.RecordFile(s.root), rec); err != nil {
		return nil, tracker.Unavailable(BackendName, fmt.Errorf("write issue %s: %w", id.String(), err))
	}
	s.logger.Debug("created issue", "issue", id.String(), "file", id.RecordFile(s.root))

	out := &types.Outcome{
		Issue:   id.String(),
		Status:  types.OutcomeSuccess,
		Message: fmt.Sprintf("issue %s created successfully.", id.String()),
	}
	if !pp.IsRoot() {
		out.ParentIssue = pp.String()
	}
	return out, nil
}

// ReadIssue implements tracker.Backend.
func (s *Store) ReadIssue(ctx context.Context, id string) (types.Detail, error) {
	p, err := parseIssuePath(id)
	if err != nil {
		return types.Detail{}, err
	}
	rec, err := s.readRecord(p)
	if err != nil {
		return types.Detail{}, err
	}
	return types.Detail{
		Issue:  p.String(),
		View:   reduce.Derive(rec),
		Fields: rec.Fields(),
	}, nil
}

// AppendEvent implements tracker.Backend. The guard and the write run under the issue's lock.
func (s *Store) AppendEvent(ctx context.Context, id string, ev types.Event, guard tracker.Guard) error {
	p, err := parseIssuePath(id)
	if err != nil {
		return err
	}
	unlock, err := s.lock(ctx, p)
	if err != nil {
		return err
	}
	defer unlock()

	rec, err := s.readRecord(p)
	if err != nil {
		return err
	}
	if guard != nil {
		if err := guard(reduce.Derive(rec)); err != nil {
			return err
		}
	}
	rec.Updates = append(rec.Updates, ev)
	if err := atomicWriteJSON(p.RecordFile(s.root), rec); err != nil {
		return tracker.Unavailable(BackendName, fmt.Errorf("write issue %s: %w", p.String(), err))
	}
	s.logger.Debug("appended event", "issue", p.String(), "events", len(rec.Updates))
	return nil
}

// SetAssignee implements tracker.Backend. The assignment is an ordinary event.
func (s *Store) SetAssignee(ctx context.Context, id, assignee string, ev types.Event, guard tracker.Guard) error {
	ev.Assignee = assignee
	return s.AppendEvent(ctx, id, ev, guard)
}

// ValidateAssignee implements tracker.AssigneeValidator against the agent roster.
func (s *Store) ValidateAssignee(ctx context.Context, name string) error {
	if err := roster.Check(ctx, s.roster, name); err != nil {
		if errors.Is(err, roster.ErrNotOnRoster) {
			return tracker.NewUserError(tracker.ErrInvalidAssignee, "%s.", err.Error())
		}
		return tracker.Unavailable(BackendName, err)
	}
	return nil
}

func (s *Store) readRecord(p types.Path) (*types.Record, error) {
	data, err := os.ReadFile(p.RecordFile(s.root))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, tracker.NewUserError(tracker.ErrNotFound, "Error, issue %s does not exist.", p.String())
	}
	if err != nil {
		return nil, tracker.Unavailable(BackendName, err)
	}
	var rec types.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: issue %s: %w", tracker.ErrMalformedInput, p.String(), err)
	}
	return &rec, nil
}

// lock takes the in-process and cross-process locks for p.
func (s *Store) lock(ctx context.Context, p types.Path) (func(), error) {
	key := p.String()
	if err := s.locks.Lock(ctx, key); err != nil {
		return nil, tracker.Unavailable(BackendName, err)
	}
	fl, err := lockfile.Acquire(s.lockPath(p))
	if err != nil {
		s.locks.Unlock(key)
		return nil, tracker.Unavailable(BackendName, err)
	}
	return func() {
		if err := fl.Release(); err != nil {
			s.logger.Warn("release lock", "issue", key, "error", err)
		}
		s.locks.Unlock(key)
	}, nil
}

func (s *Store) lockPath(p types.Path) string {
	name := "root"
	if !p.IsRoot() {
		name = strings.TrimSuffix(p.RecordName(), ".json")
	}
	return filepath.Join(s.root, locksDir, name+".lock")
}

func parsePath(s string) (types.Path, error) {
	p, err := types.ParsePath(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tracker.ErrMalformedInput, err)
	}
	return p, nil
}

func parseIssuePath(s string) (types.Path, error) {
	p, err := parsePath(s)
	if err != nil {
		return nil, err
	}
	if p.IsRoot() {
		return nil, fmt.Errorf("%w: issue id is required", tracker.ErrMalformedInput)
	}
	return p, nil
}

// writeTemp encodes data into a uniquely named sibling of path and returns its name.
func writeTemp(path string, data any) (string, error) {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return "", fmt.Errorf("generating random suffix: %w", err)
	}
	tmp := path + ".tmp." + hex.EncodeToString(randBytes)

	// #nosec G304 - path is built from the board root
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

// atomicWriteJSON replaces path with data via temp file and rename.
func atomicWriteJSON(path string, data any) error {
	tmp, err := writeTemp(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// publishJSON writes a new file at path, failing if one already exists.
// The hard link makes the complete record appear at once and never clobbers.
func publishJSON(path string, data any) error {
	tmp, err := writeTemp(path, data)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp) }()
	if err := os.Link(tmp, path); err != nil {
		return err
	}
	return nil
}

// Register the local backend.
func init() {
	tracker.Register(BackendName, func(cfg *tracker.Config) (tracker.Backend, error) {
		validate := true
		if v := cfg.Get("validate_assignees"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("local.validate_assignees: %w", err)
			}
			validate = b
		}
		if !validate {
			return New(cfg.GetDefault("board", DefaultBoard), WithRoster(nil))
		}

		agents := roster.Multi{}
		if dir := cfg.Get("agents_dir"); dir != "" {
			agents = append(agents, roster.Dir(dir))
		}
		if list := cfg.Get("agents"); list != "" {
			var names roster.Static
			for _, n := range strings.Split(list, ",") {
				if n = strings.TrimSpace(n); n != "" {
					names = append(names, n)
				}
			}
			agents = append(agents, names)
		}
		return New(cfg.GetDefault("board", DefaultBoard), WithRoster(agents))
	})
}

// DefaultBoard is the board directory used when none is configured.
const DefaultBoard = ".issueboard/board"

var _ idgen.ChildScanner = (*Store)(nil)
var _ tracker.AssigneeValidator = (*Store)(nil)
