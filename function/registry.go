// Package function holds the user-defined scalar functions a filter clause
// may call.
//
// A Function is a named factory. Each compiled predicate asks the factory
// for its own Instance, so an implementation that keeps state between calls
// never shares it across predicates or execution contexts. Functions marked
// Stateless share a single instance.
package function

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
)

// Instance evaluates one function call. Arguments arrive in the predicate's
// runtime representation: nil, bool, int64, float64, string, []byte,
// time.Time, time.Duration or orb.Geometry.
type Instance interface {
	Call(args []any) (any, error)
}

// InstanceFunc adapts a plain function to Instance.
type InstanceFunc func(args []any) (any, error)

func (f InstanceFunc) Call(args []any) (any, error) { return f(args) }

// Factory creates a fresh Instance.
type Factory func() Instance

// Signature describes the arguments and result of a function.
// A nil data type accepts or returns any value.
type Signature struct {
	Parameters []arrow.DataType
	ReturnType arrow.DataType
	// Variadic allows extra arguments of the last parameter's type.
	Variadic bool
}

// Function describes a registered scalar function.
type Function struct {
	Name        string
	Description string
	Signature   Signature
	New         Factory
	// Stateless functions share one instance across all predicates.
	Stateless bool
}

// CheckArity validates the number of arguments at a call site.
func (f *Function) CheckArity(n int) error {
	want := len(f.Signature.Parameters)
	switch {
	case f.Signature.Variadic && n >= want-1:
		return nil
	case !f.Signature.Variadic && n == want:
		return nil
	case f.Signature.Variadic:
		return fmt.Errorf("function %s expects at least %d arguments, got %d", f.Name, want-1, n)
	}
	return fmt.Errorf("function %s expects %d arguments, got %d", f.Name, want, n)
}

// Registry maps case-insensitive names to functions. It is safe for
// concurrent use.
type Registry struct {
	mu     sync.RWMutex
	funcs  map[string]*Function
	shared map[string]Instance
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		funcs:  make(map[string]*Function),
		shared: make(map[string]Instance),
	}
}

// Register adds f. Names are unique ignoring case.
func (r *Registry) Register(f Function) error {
	if f.Name == "" {
		return fmt.Errorf("function name is required")
	}
	if f.New == nil {
		return fmt.Errorf("function %s: factory is required", f.Name)
	}

	key := strings.ToLower(f.Name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.funcs[key]; ok {
		return fmt.Errorf("function %s already registered", f.Name)
	}
	r.funcs[key] = &f
	return nil
}

// MustRegister is like Register but panics on error. Intended for init-time
// registration of built-in functions.
func (r *Registry) MustRegister(f Function) {
	if err := r.Register(f); err != nil {
		panic(err)
	}
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (*Function, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.funcs[strings.ToLower(name)]
	return f, ok
}

// Instance returns an instance for one call site: a fresh one from the
// factory, or the shared one for stateless functions.
func (r *Registry) Instance(f *Function) Instance {
	if !f.Stateless {
		return f.New()
	}
	key := strings.ToLower(f.Name)

	r.mu.RLock()
	inst, ok := r.shared[key]
	r.mu.RUnlock()
	if ok {
		return inst
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if inst, ok := r.shared[key]; ok {
		return inst
	}
	inst = f.New()
	r.shared[key] = inst
	return inst
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for _, f := range r.funcs {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}
