package commands

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/aedmark/OopisOS-sub001/internal/shared/types"
)

// Registry maps command names to implementations.
type Registry struct {
	commands sync.Map
	logger   *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{logger: logger}
}

// Register adds a command. Names must be unique.
func (r *Registry) Register(cmd Command) error {
	def := cmd.Definition()
	if def.Name == "" {
		return fmt.Errorf("command name cannot be empty")
	}
	if _, loaded := r.commands.LoadOrStore(def.Name, cmd); loaded {
		return fmt.Errorf("command already registered: %s", def.Name)
	}
	return nil
}

// MustRegister registers every command and panics on a conflict. Intended
// for wiring at startup.
func (r *Registry) MustRegister(cmds ...Command) {
	for _, cmd := range cmds {
		if err := r.Register(cmd); err != nil {
			panic(err)
		}
	}
}

// Unregister removes a command.
func (r *Registry) Unregister(name string) {
	r.commands.Delete(name)
}

// Get retrieves a command by name.
func (r *Registry) Get(name string) (Command, bool) {
	val, ok := r.commands.Load(name)
	if !ok {
		return nil, false
	}
	return val.(Command), true
}

// List returns all definitions sorted by name.
func (r *Registry) List() []Definition {
	var defs []Definition
	r.commands.Range(func(_, value interface{}) bool {
		defs = append(defs, value.(Command).Definition())
		return true
	})
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Names returns all command names sorted.
func (r *Registry) Names() []string {
	defs := r.List()
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

// Execute dispatches to the named command. A panic inside the command is
// recovered and turned into a failure result.
func (r *Registry) Execute(ctx context.Context, name string, args []string, env *Env) (result types.Result) {
	cmd, ok := r.Get(name)
	if !ok {
		return types.Fail("%s: command not found", name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("command panicked",
				zap.String("command", name),
				zap.Any("panic", rec),
				zap.Stack("stack"))
			result = types.Fail("%s: internal error", name)
		}
	}()

	return cmd.Execute(ctx, args, env)
}
