package viking

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jonwraymond/openviking-mcp/auth"
)

type fsClient struct{ c *Client }

func (f fsClient) Ls(ctx context.Context, rc auth.RequestContext, uri string, opts LsOptions) (any, error) {
	q := url.Values{}
	q.Set("uri", uri)
	q.Set("simple", strconv.FormatBool(opts.Simple))
	q.Set("recursive", strconv.FormatBool(opts.Recursive))
	q.Set("output", opts.Output)
	q.Set("abs_limit", strconv.Itoa(opts.AbsLimit))
	q.Set("show_all_hidden", strconv.FormatBool(opts.ShowAllHidden))
	q.Set("node_limit", strconv.Itoa(opts.NodeLimit))
	return f.c.get(ctx, "/fs/ls", rc, q)
}

func (f fsClient) Tree(ctx context.Context, rc auth.RequestContext, uri string, opts TreeOptions) (any, error) {
	q := url.Values{}
	q.Set("uri", uri)
	q.Set("output", opts.Output)
	q.Set("abs_limit", strconv.Itoa(opts.AbsLimit))
	q.Set("show_all_hidden", strconv.FormatBool(opts.ShowAllHidden))
	q.Set("node_limit", strconv.Itoa(opts.NodeLimit))
	return f.c.get(ctx, "/fs/tree", rc, q)
}

func (f fsClient) Stat(ctx context.Context, rc auth.RequestContext, uri string) (any, error) {
	return f.c.get(ctx, "/fs/stat", rc, url.Values{"uri": {uri}})
}

func (f fsClient) Mkdir(ctx context.Context, rc auth.RequestContext, uri string) error {
	return f.c.call(ctx, http.MethodPost, "/fs/mkdir", &rc, nil, map[string]any{"uri": uri}, nil, false)
}

func (f fsClient) Rm(ctx context.Context, rc auth.RequestContext, uri string, recursive bool) error {
	q := url.Values{"uri": {uri}, "recursive": {strconv.FormatBool(recursive)}}
	return f.c.call(ctx, http.MethodDelete, "/fs", &rc, q, nil, nil, false)
}

func (f fsClient) Mv(ctx context.Context, rc auth.RequestContext, fromURI, toURI string) error {
	body := map[string]any{"from_uri": fromURI, "to_uri": toURI}
	return f.c.call(ctx, http.MethodPost, "/fs/mv", &rc, nil, body, nil, false)
}

func (f fsClient) Read(ctx context.Context, rc auth.RequestContext, uri string, offset, limit int) (any, error) {
	q := url.Values{
		"uri":    {uri},
		"offset": {strconv.Itoa(offset)},
		"limit":  {strconv.Itoa(limit)},
	}
	return f.c.get(ctx, "/content/read", rc, q)
}

func (f fsClient) Abstract(ctx context.Context, rc auth.RequestContext, uri string) (any, error) {
	return f.c.get(ctx, "/content/abstract", rc, url.Values{"uri": {uri}})
}

func (f fsClient) Overview(ctx context.Context, rc auth.RequestContext, uri string) (any, error) {
	return f.c.get(ctx, "/content/overview", rc, url.Values{"uri": {uri}})
}

func (f fsClient) Grep(ctx context.Context, rc auth.RequestContext, uri, pattern string, caseInsensitive bool) (any, error) {
	body := map[string]any{"uri": uri, "pattern": pattern, "case_insensitive": caseInsensitive}
	return f.c.post(ctx, "/search/grep", rc, body, true)
}

func (f fsClient) Glob(ctx context.Context, rc auth.RequestContext, pattern, uri string) (any, error) {
	body := map[string]any{"pattern": pattern, "uri": uri}
	return f.c.post(ctx, "/search/glob", rc, body, true)
}

type searchClient struct{ c *Client }

func (s searchClient) Find(ctx context.Context, rc auth.RequestContext, q SearchQuery) (any, error) {
	q.SessionID = ""
	return s.c.post(ctx, "/search/find", rc, q, true)
}

func (s searchClient) Search(ctx context.Context, rc auth.RequestContext, q SearchQuery) (any, error) {
	return s.c.post(ctx, "/search/search", rc, q, true)
}

type resourcesClient struct{ c *Client }

func (r resourcesClient) AddResource(ctx context.Context, rc auth.RequestContext, req AddResourceRequest) (any, error) {
	var out any
	err := r.c.callLong(ctx, "/resources", &rc, req, &out)
	return out, err
}

func (r resourcesClient) AddSkill(ctx context.Context, rc auth.RequestContext, req AddSkillRequest) (any, error) {
	var out any
	err := r.c.callLong(ctx, "/skills", &rc, req, &out)
	return out, err
}

func (r resourcesClient) WaitProcessed(ctx context.Context, timeout *float64) (any, error) {
	var out any
	err := r.c.callLong(ctx, "/system/wait", nil, map[string]any{"timeout": timeout}, &out)
	return out, err
}

type sessionsClient struct{ c *Client }

func sessionPath(id string, suffix ...string) string {
	p := "/sessions/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

func (s sessionsClient) Create(ctx context.Context, rc auth.RequestContext) (Session, error) {
	var out Session
	err := s.c.call(ctx, http.MethodPost, "/sessions", &rc, nil, map[string]any{}, &out, false)
	return out, err
}

func (s sessionsClient) List(ctx context.Context, rc auth.RequestContext) (any, error) {
	return s.c.get(ctx, "/sessions", rc, nil)
}

func (s sessionsClient) Get(ctx context.Context, rc auth.RequestContext, sessionID string) (Session, error) {
	var out Session
	err := s.c.call(ctx, http.MethodGet, sessionPath(sessionID), &rc, nil, nil, &out, true)
	if err == nil && out.ID == "" {
		out.ID = sessionID
	}
	return out, err
}

func (s sessionsClient) Delete(ctx context.Context, rc auth.RequestContext, sessionID string) error {
	return s.c.call(ctx, http.MethodDelete, sessionPath(sessionID), &rc, nil, nil, nil, false)
}

func (s sessionsClient) Commit(ctx context.Context, rc auth.RequestContext, sessionID string) (any, error) {
	return s.c.post(ctx, sessionPath(sessionID, "commit"), rc, map[string]any{}, false)
}

func (s sessionsClient) Extract(ctx context.Context, rc auth.RequestContext, sessionID string) (any, error) {
	return s.c.post(ctx, sessionPath(sessionID, "extract"), rc, map[string]any{}, false)
}

func (s sessionsClient) AddMessage(ctx context.Context, rc auth.RequestContext, sessionID, role string, parts []Part) (int, error) {
	var out struct {
		MessageCount int `json:"message_count"`
	}
	body := map[string]any{"role": role, "parts": parts}
	err := s.c.call(ctx, http.MethodPost, sessionPath(sessionID, "messages"), &rc, nil, body, &out, false)
	return out.MessageCount, err
}

type relationsClient struct{ c *Client }

func (r relationsClient) List(ctx context.Context, rc auth.RequestContext, uri string) (any, error) {
	return r.c.get(ctx, "/relations", rc, url.Values{"uri": {uri}})
}

func (r relationsClient) Link(ctx context.Context, rc auth.RequestContext, fromURI string, toURIs []string, reason string) error {
	body := map[string]any{"from_uri": fromURI, "to_uris": toURIs, "reason": reason}
	return r.c.call(ctx, http.MethodPost, "/relations/link", &rc, nil, body, nil, false)
}

func (r relationsClient) Unlink(ctx context.Context, rc auth.RequestContext, fromURI, uri string) error {
	body := map[string]any{"from_uri": fromURI, "uri": uri}
	return r.c.call(ctx, http.MethodPost, "/relations/unlink", &rc, nil, body, nil, false)
}

type packClient struct{ c *Client }

func (p packClient) Export(ctx context.Context, rc auth.RequestContext, uri, to string) (string, error) {
	var out struct {
		File string `json:"file"`
	}
	body := map[string]any{"uri": uri, "to": to}
	err := p.c.call(ctx, http.MethodPost, "/pack/export", &rc, nil, body, &out, false)
	return out.File, err
}

func (p packClient) Import(ctx context.Context, rc auth.RequestContext, filePath, parent string, force, vectorize bool) (string, error) {
	var out struct {
		URI string `json:"uri"`
	}
	body := map[string]any{"file_path": filePath, "parent": parent, "force": force, "vectorize": vectorize}
	err := p.c.call(ctx, http.MethodPost, "/pack/import", &rc, nil, body, &out, false)
	return out.URI, err
}

type debugClient struct{ c *Client }

// Healthy pings /health once, outside the circuit breaker. An unreachable
// server is unhealthy rather than an error.
func (d debugClient) Healthy(ctx context.Context) (bool, error) {
	ok, err := d.c.ping(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, nil
	}
	return ok, nil
}

func (d debugClient) Observer(ctx context.Context, component string) (any, error) {
	name := component
	if name == ComponentSystem {
		name = "system"
	}
	var out any
	err := d.c.call(ctx, http.MethodGet, "/observer/"+url.PathEscape(name), nil, nil, nil, &out, true)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, rc auth.RequestContext, q url.Values) (any, error) {
	var out any
	err := c.call(ctx, http.MethodGet, path, &rc, q, nil, &out, true)
	return out, err
}

func (c *Client) post(ctx context.Context, path string, rc auth.RequestContext, body any, retryable bool) (any, error) {
	var out any
	err := c.call(ctx, http.MethodPost, path, &rc, nil, body, &out, retryable)
	return out, err
}
