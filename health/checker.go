package health

import (
	"context"
	"fmt"
	"time"
)

// Status orders outcomes from best to worst; the aggregate of several
// results is the worst one.
type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

var statusNames = [...]string{
	StatusHealthy:   "healthy",
	StatusDegraded:  "degraded",
	StatusUnhealthy: "unhealthy",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// Result is the outcome of one check. Duration is filled in by the
// Aggregator.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Duration  time.Duration
	Timestamp time.Time
	Error     error
}

func newResult(s Status, msg string, err error) Result {
	return Result{Status: s, Message: msg, Error: err, Timestamp: time.Now()}
}

func Healthy(msg string) Result  { return newResult(StatusHealthy, msg, nil) }
func Degraded(msg string) Result { return newResult(StatusDegraded, msg, nil) }

func Unhealthy(msg string, err error) Result {
	return newResult(StatusUnhealthy, msg, err)
}

// WithDetails returns r carrying details, which /health reports verbatim.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker probes one component. Check must honor ctx.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc is a Checker backed by a function.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

func (f *CheckerFunc) Name() string                     { return f.name }
func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }

// NewPingChecker maps ping's answer to a status: (true, nil) is healthy,
// (false, nil) degraded, and any error unhealthy.
func NewPingChecker(name string, ping func(context.Context) (bool, error)) *CheckerFunc {
	return NewCheckerFunc(name, func(ctx context.Context) Result {
		ok, err := ping(ctx)
		if err != nil {
			return Unhealthy(name+" unreachable", err)
		}
		if !ok {
			return Degraded(name + " reports unhealthy")
		}
		return Healthy(name + " reachable")
	})
}

// NewReadyChecker reports unhealthy while ready returns an error, which
// makes /readyz answer 503. The application context uses it between Start
// and Close.
func NewReadyChecker(name string, ready func() error) *CheckerFunc {
	return NewCheckerFunc(name, func(context.Context) Result {
		if err := ready(); err != nil {
			return Unhealthy(name+" not ready", fmt.Errorf("%w: %w", ErrNotReady, err))
		}
		return Healthy(name + " ready")
	})
}
