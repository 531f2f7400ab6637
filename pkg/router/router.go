package router

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/psantana5/promptmesh/pkg/models"
)

// ErrUnknownKind means a terminal result arrived for a kind no renderer was
// registered for. That is a wiring bug in the caller, not a user mistake.
var ErrUnknownKind = errors.New("no renderer registered for job kind")

// RendererFunc consumes the raw results document of one finished job.
type RendererFunc func(results json.RawMessage) error

// Router dispatches terminal results to the renderer registered for the
// job's kind. Registration happens once at startup; dispatch is read-only.
type Router struct {
	renderers map[models.JobKind]RendererFunc
}

// New creates an empty router.
func New() *Router {
	return &Router{renderers: make(map[models.JobKind]RendererFunc)}
}

// Register binds a renderer to a kind, replacing any previous binding.
func (r *Router) Register(kind models.JobKind, fn RendererFunc) {
	r.renderers[kind] = fn
}

// Dispatch invokes the renderer for kind with the results document.
func (r *Router) Dispatch(kind models.JobKind, results json.RawMessage) error {
	fn, ok := r.renderers[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return fn(results)
}
