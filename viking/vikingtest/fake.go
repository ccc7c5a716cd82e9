// Package vikingtest provides an in-memory viking.Service for tests.
package vikingtest

import (
	"context"
	"sync"

	"github.com/jonwraymond/openviking-mcp/auth"
	"github.com/jonwraymond/openviking-mcp/viking"
)

// Call is one recorded service call.
type Call struct {
	Op   string
	RC   auth.RequestContext
	Args map[string]any
}

// Service is a scriptable viking.Service. Results and Errors are keyed by
// operation name ("fs.ls", "sessions.create", ...). Unscripted operations
// succeed with a nil result.
type Service struct {
	mu sync.Mutex

	Results map[string]any
	Errors  map[string]error

	InitErr  error
	CloseErr error
	Healthy  bool

	WorkspaceDir string

	calls       []Call
	initialized bool
	inits       int
	closes      int
}

// New returns a healthy fake rooted at workspace.
func New(workspace string) *Service {
	return &Service{
		Results:      map[string]any{},
		Errors:       map[string]error{},
		Healthy:      true,
		WorkspaceDir: workspace,
	}
}

// Set scripts the result of op.
func (s *Service) Set(op string, result any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Results[op] = result
}

// Fail scripts op to return err.
func (s *Service) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors[op] = err
}

// Calls returns the recorded calls in order.
func (s *Service) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the recorded calls of op.
func (s *Service) CallsTo(op string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Counts returns how often Initialize and Close ran.
func (s *Service) Counts() (inits, closes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inits, s.closes
}

func (s *Service) record(op string, rc auth.RequestContext, args map[string]any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: op, RC: rc, Args: args})
	return s.Results[op], s.Errors[op]
}

func (s *Service) Initialize(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inits++
	if s.InitErr != nil {
		return s.InitErr
	}
	s.initialized = true
	return nil
}

func (s *Service) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	s.initialized = false
	return s.CloseErr
}

func (s *Service) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

func (s *Service) Workspace() string { return s.WorkspaceDir }

func (s *Service) InitializeAccountDirectories(_ context.Context, rc auth.RequestContext) error {
	_, err := s.record("dirs.account", rc, nil)
	return err
}

func (s *Service) InitializeUserDirectories(_ context.Context, rc auth.RequestContext) error {
	_, err := s.record("dirs.user", rc, nil)
	return err
}

func (s *Service) InitializeAgentDirectories(_ context.Context, rc auth.RequestContext) error {
	_, err := s.record("dirs.agent", rc, nil)
	return err
}

func (s *Service) FS() viking.FS               { return fs{s} }
func (s *Service) Search() viking.Search       { return search{s} }
func (s *Service) Resources() viking.Resources { return resources{s} }
func (s *Service) Sessions() viking.Sessions   { return sessions{s} }
func (s *Service) Relations() viking.Relations { return relations{s} }
func (s *Service) Pack() viking.Pack           { return pack{s} }
func (s *Service) Debug() viking.Debug         { return debug{s} }

type fs struct{ s *Service }

func (f fs) Ls(_ context.Context, rc auth.RequestContext, uri string, opts viking.LsOptions) (any, error) {
	return f.s.record("fs.ls", rc, map[string]any{"uri": uri, "opts": opts})
}

func (f fs) Tree(_ context.Context, rc auth.RequestContext, uri string, opts viking.TreeOptions) (any, error) {
	return f.s.record("fs.tree", rc, map[string]any{"uri": uri, "opts": opts})
}

func (f fs) Stat(_ context.Context, rc auth.RequestContext, uri string) (any, error) {
	return f.s.record("fs.stat", rc, map[string]any{"uri": uri})
}

func (f fs) Mkdir(_ context.Context, rc auth.RequestContext, uri string) error {
	_, err := f.s.record("fs.mkdir", rc, map[string]any{"uri": uri})
	return err
}

func (f fs) Rm(_ context.Context, rc auth.RequestContext, uri string, recursive bool) error {
	_, err := f.s.record("fs.rm", rc, map[string]any{"uri": uri, "recursive": recursive})
	return err
}

func (f fs) Mv(_ context.Context, rc auth.RequestContext, fromURI, toURI string) error {
	_, err := f.s.record("fs.mv", rc, map[string]any{"from_uri": fromURI, "to_uri": toURI})
	return err
}

func (f fs) Read(_ context.Context, rc auth.RequestContext, uri string, offset, limit int) (any, error) {
	return f.s.record("fs.read", rc, map[string]any{"uri": uri, "offset": offset, "limit": limit})
}

func (f fs) Abstract(_ context.Context, rc auth.RequestContext, uri string) (any, error) {
	return f.s.record("fs.abstract", rc, map[string]any{"uri": uri})
}

func (f fs) Overview(_ context.Context, rc auth.RequestContext, uri string) (any, error) {
	return f.s.record("fs.overview", rc, map[string]any{"uri": uri})
}

func (f fs) Grep(_ context.Context, rc auth.RequestContext, uri, pattern string, caseInsensitive bool) (any, error) {
	return f.s.record("fs.grep", rc, map[string]any{"uri": uri, "pattern": pattern, "case_insensitive": caseInsensitive})
}

func (f fs) Glob(_ context.Context, rc auth.RequestContext, pattern, uri string) (any, error) {
	return f.s.record("fs.glob", rc, map[string]any{"pattern": pattern, "uri": uri})
}

type search struct{ s *Service }

func (x search) Find(_ context.Context, rc auth.RequestContext, q viking.SearchQuery) (any, error) {
	return x.s.record("search.find", rc, map[string]any{"query": q})
}

func (x search) Search(_ context.Context, rc auth.RequestContext, q viking.SearchQuery) (any, error) {
	return x.s.record("search.search", rc, map[string]any{"query": q})
}

type resources struct{ s *Service }

func (r resources) AddResource(_ context.Context, rc auth.RequestContext, req viking.AddResourceRequest) (any, error) {
	return r.s.record("resources.add", rc, map[string]any{"request": req})
}

func (r resources) AddSkill(_ context.Context, rc auth.RequestContext, req viking.AddSkillRequest) (any, error) {
	return r.s.record("resources.skill", rc, map[string]any{"request": req})
}

func (r resources) WaitProcessed(_ context.Context, timeout *float64) (any, error) {
	return r.s.record("resources.wait", auth.RequestContext{}, map[string]any{"timeout": timeout})
}

type sessions struct{ s *Service }

func (x sessions) Create(_ context.Context, rc auth.RequestContext) (viking.Session, error) {
	res, err := x.s.record("sessions.create", rc, nil)
	if s, ok := res.(viking.Session); ok {
		return s, err
	}
	return viking.Session{ID: "session-1"}, err
}

func (x sessions) List(_ context.Context, rc auth.RequestContext) (any, error) {
	return x.s.record("sessions.list", rc, nil)
}

func (x sessions) Get(_ context.Context, rc auth.RequestContext, sessionID string) (viking.Session, error) {
	res, err := x.s.record("sessions.get", rc, map[string]any{"session_id": sessionID})
	if s, ok := res.(viking.Session); ok {
		return s, err
	}
	return viking.Session{ID: sessionID}, err
}

func (x sessions) Delete(_ context.Context, rc auth.RequestContext, sessionID string) error {
	_, err := x.s.record("sessions.delete", rc, map[string]any{"session_id": sessionID})
	return err
}

func (x sessions) Commit(_ context.Context, rc auth.RequestContext, sessionID string) (any, error) {
	return x.s.record("sessions.commit", rc, map[string]any{"session_id": sessionID})
}

func (x sessions) Extract(_ context.Context, rc auth.RequestContext, sessionID string) (any, error) {
	return x.s.record("sessions.extract", rc, map[string]any{"session_id": sessionID})
}

func (x sessions) AddMessage(_ context.Context, rc auth.RequestContext, sessionID, role string, parts []viking.Part) (int, error) {
	res, err := x.s.record("sessions.add_message", rc, map[string]any{"session_id": sessionID, "role": role, "parts": parts})
	n, _ := res.(int)
	return n, err
}

type relations struct{ s *Service }

func (r relations) List(_ context.Context, rc auth.RequestContext, uri string) (any, error) {
	return r.s.record("relations.list", rc, map[string]any{"uri": uri})
}

func (r relations) Link(_ context.Context, rc auth.RequestContext, fromURI string, toURIs []string, reason string) error {
	_, err := r.s.record("relations.link", rc, map[string]any{"from_uri": fromURI, "to_uris": toURIs, "reason": reason})
	return err
}

func (r relations) Unlink(_ context.Context, rc auth.RequestContext, fromURI, uri string) error {
	_, err := r.s.record("relations.unlink", rc, map[string]any{"from_uri": fromURI, "uri": uri})
	return err
}

type pack struct{ s *Service }

func (p pack) Export(_ context.Context, rc auth.RequestContext, uri, to string) (string, error) {
	res, err := p.s.record("pack.export", rc, map[string]any{"uri": uri, "to": to})
	if file, ok := res.(string); ok {
		return file, err
	}
	return to, err
}

func (p pack) Import(_ context.Context, rc auth.RequestContext, filePath, parent string, force, vectorize bool) (string, error) {
	res, err := p.s.record("pack.import", rc, map[string]any{
		"file_path": filePath, "parent": parent, "force": force, "vectorize": vectorize,
	})
	uri, _ := res.(string)
	return uri, err
}

type debug struct{ s *Service }

func (d debug) Healthy(context.Context) (bool, error) {
	_, err := d.s.record("debug.healthy", auth.RequestContext{}, nil)
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	return d.s.Healthy, err
}

func (d debug) Observer(_ context.Context, component string) (any, error) {
	return d.s.record("debug.observer", auth.RequestContext{}, map[string]any{"component": component})
}

var _ viking.Service = (*Service)(nil)
