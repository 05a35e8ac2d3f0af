package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	pdp_model "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/pdp/model"
)

// Evaluator is a stateful decision service consulted for gated tools.
type Evaluator interface {
	Evaluate(ctx context.Context, req *pdp_model.EvaluationRequest) (pdp_model.EvaluationResponse, error)
}

// Recorder is implemented by evaluators that can log an open call without
// deciding it.
type Recorder interface {
	Record(ctx context.Context, req *pdp_model.EvaluationRequest)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, req *pdp_model.EvaluationRequest) (pdp_model.EvaluationResponse, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, req *pdp_model.EvaluationRequest) (pdp_model.EvaluationResponse, error) {
	return f(ctx, req)
}

type registration struct {
	name      string
	evaluator Evaluator
}

// Registry routes gated calls to evaluators. Lookup order is "service.tool",
// then "service", then the default.
type Registry struct {
	mu       sync.RWMutex
	byTarget map[string]registration
	fallback registration
}

func NewRegistry(defaultName string, fallback Evaluator) *Registry {
	return &Registry{
		byTarget: make(map[string]registration),
		fallback: registration{name: defaultName, evaluator: fallback},
	}
}

// Register binds target ("service" or "service.tool") to an evaluator.
func (r *Registry) Register(target, name string, ev Evaluator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTarget[target] = registration{name: name, evaluator: ev}
}

// Lookup returns the evaluator for service/tool and its name. The evaluator is
// nil when nothing is registered and there is no default.
func (r *Registry) Lookup(service, tool string) (string, Evaluator) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if reg, ok := r.byTarget[service+"."+tool]; ok {
		return reg.name, reg.evaluator
	}
	if reg, ok := r.byTarget[service]; ok {
		return reg.name, reg.evaluator
	}
	return r.fallback.name, r.fallback.evaluator
}

// Binding is one configured target-to-evaluator route.
type Binding struct {
	Target    string
	Evaluator string
}

// BuildRegistry resolves bindings against the named in-process evaluators.
// An http(s) URL binds a remote decision service.
func BuildRegistry(defaultName string, named map[string]Evaluator, bindings []Binding, remoteTimeout time.Duration) (*Registry, error) {
	fallback, ok := named[defaultName]
	if !ok {
		return nil, fmt.Errorf("default evaluator %q is not available", defaultName)
	}
	reg := NewRegistry(defaultName, fallback)
	for _, b := range bindings {
		if b.Target == "" {
			return nil, fmt.Errorf("evaluator binding without target")
		}
		if strings.HasPrefix(b.Evaluator, "http://") || strings.HasPrefix(b.Evaluator, "https://") {
			reg.Register(b.Target, "http", NewHTTPEvaluator(b.Evaluator, remoteTimeout))
			continue
		}
		ev, ok := named[b.Evaluator]
		if !ok {
			return nil, fmt.Errorf("unknown evaluator %q for %s", b.Evaluator, b.Target)
		}
		reg.Register(b.Target, b.Evaluator, ev)
	}
	return reg, nil
}
