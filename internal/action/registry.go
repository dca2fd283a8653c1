package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexisbeaulieu97/postbuild/internal/buildctx"
	"github.com/alexisbeaulieu97/postbuild/internal/logger"
	"github.com/alexisbeaulieu97/postbuild/internal/model"
	"github.com/alexisbeaulieu97/postbuild/internal/runner"
	pberrors "github.com/alexisbeaulieu97/postbuild/pkg/errors"
)

// Observer receives progress notifications while a target's actions run.
type Observer interface {
	ActionStarted(outcome model.Outcome)
	ActionFinished(outcome model.Outcome)
}

// Option customises a Registry.
type Option func(*Registry)

// WithLogger sets the sink that receives action descriptions and failures.
func WithLogger(log *logger.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// WithObserver attaches an observer notified around every action.
func WithObserver(obs Observer) Option {
	return func(r *Registry) { r.observer = obs }
}

// WithDryRun expands and logs actions without spawning any process.
func WithDryRun(dryRun bool) Option {
	return func(r *Registry) { r.dryRun = dryRun }
}

// Registry maps build targets to their ordered post-build actions.
//
// Actions are registered during start-up. The first call to NotifyTargetBuilt seals the
// registry; from then on it is read-only, so no locking is needed. Callers must serialise
// notifications.
type Registry struct {
	targets  map[string][]Action
	order    []string
	runner   runner.Runner
	log      *logger.Logger
	observer Observer
	dryRun   bool
	sealed   bool
}

// NewRegistry creates an empty registry that spawns actions through run.
func NewRegistry(run runner.Runner, opts ...Option) *Registry {
	r := &Registry{
		targets: make(map[string][]Action),
		runner:  run,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register appends a to the actions of target.
func (r *Registry) Register(target string, a Action) error {
	if r.sealed {
		return pberrors.ErrRegistrySealed
	}
	if !validTarget(target) {
		return pberrors.NewValidationError("target", fmt.Sprintf("invalid target name %q", target), nil)
	}
	if err := a.validate(); err != nil {
		return err
	}

	stored := a.clone()
	stored.Target = target
	stored.OnFailure, _ = ParsePolicy(string(a.OnFailure))
	if stored.Name == "" {
		stored.Name = stored.Command[0]
	}

	if _, ok := r.targets[target]; !ok {
		r.order = append(r.order, target)
	}
	r.targets[target] = append(r.targets[target], stored)
	return nil
}

// Targets returns registered targets in order of first registration.
func (r *Registry) Targets() []string {
	return append([]string(nil), r.order...)
}

// Actions returns copies of the actions registered for target in execution order.
func (r *Registry) Actions(target string) []Action {
	registered := r.targets[target]
	out := make([]Action, len(registered))
	for i, a := range registered {
		out[i] = a.clone()
	}
	return out
}

// resolved is an action with every template expanded.
type resolved struct {
	description string
	command     runner.Command
}

func resolve(a Action, bctx buildctx.Context) (resolved, error) {
	args, err := bctx.ExpandAll(a.Command)
	if err != nil {
		return resolved{}, err
	}
	description, err := bctx.Expand(a.Description)
	if err != nil {
		return resolved{}, err
	}
	stdout, err := bctx.Expand(a.Stdout)
	if err != nil {
		return resolved{}, err
	}
	dir, err := bctx.Expand(a.Dir)
	if err != nil {
		return resolved{}, err
	}
	env, err := bctx.ExpandMap(a.Env)
	if err != nil {
		return resolved{}, err
	}

	cmd := runner.Command{Args: args, Dir: dir, Env: env, Stdout: stdout, ExpandGlobs: a.ExpandGlobs}
	if description == "" {
		description = model.Outcome{Command: args}.CommandLine()
	}
	return resolved{description: description, command: cmd}, nil
}

// NotifyTargetBuilt runs every action registered for target, one after another, in
// registration order.
//
// A template that cannot be expanded stops the chain with *errors.UnresolvedVariableError
// before the action's process is spawned. A failing action is handled by its policy: abort
// stops the chain and returns *errors.ActionFailedError alongside the outcomes so far, warn
// logs and continues, and ignore continues silently.
func (r *Registry) NotifyTargetBuilt(ctx context.Context, target string, bctx buildctx.Context) ([]model.Outcome, error) {
	r.sealed = true

	log := r.log.With("target", target)
	actions := r.targets[target]
	if len(actions) == 0 {
		log.Debug("no post-build actions registered")
		return nil, nil
	}

	outcomes := make([]model.Outcome, 0, len(actions))
	for i, a := range actions {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		actionLog := log.With("action", a.Name)
		res, err := resolve(a, bctx)
		if err != nil {
			var unresolved *pberrors.UnresolvedVariableError
			if errors.As(err, &unresolved) {
				unresolved.Action = a.Name
			}
			actionLog.Error(err, "cannot expand action")
			return outcomes, err
		}

		outcome := r.run(ctx, actionLog, i, a, res)
		outcomes = append(outcomes, outcome)

		if outcome.Error == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		switch a.OnFailure {
		case PolicyAbort:
			actionLog.Error(outcome.Error, failureMessage(outcome.Error)+", aborting")
			return outcomes, outcome.Error
		case PolicyWarn:
			actionLog.Warn(outcome.Error, failureMessage(outcome.Error)+", continuing")
		default:
			actionLog.Debug(fmt.Sprintf("ignoring failure: %v", outcome.Error))
		}
	}

	return outcomes, nil
}

func (r *Registry) run(ctx context.Context, log *logger.Logger, index int, a Action, res resolved) model.Outcome {
	start := time.Now()
	outcome := model.Outcome{
		Target:      a.Target,
		Action:      a.Name,
		Index:       index,
		Description: res.description,
		Command:     res.command.Args,
		Status:      model.StatusRunning,
		ExitCode:    -1,
		Timestamp:   start,
	}

	log.Info(res.description)
	r.notifyStarted(outcome)
	defer func() { r.notifyFinished(outcome) }()

	if r.dryRun {
		outcome.Status = model.StatusSkipped
		outcome.ExitCode = 0
		log.Debug(fmt.Sprintf("dry-run: %s", outcome.CommandLine()))
		return outcome
	}

	runCtx := ctx
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	result, err := r.runner.Run(runCtx, res.command)
	outcome.Duration = time.Since(start)
	outcome.ExitCode = result.ExitCode

	program := res.command.Args[0]
	var cause error
	switch {
	case err != nil && ctx.Err() != nil:
		outcome.Status = model.StatusFailed
		outcome.Error = ctx.Err()
		return outcome
	case errors.Is(err, context.DeadlineExceeded):
		cause = fmt.Errorf("timed out after %s: %w", a.Timeout, err)
		log.Debug(fmt.Sprintf("%s timed out", program))
	case err != nil:
		cause = err
		var spawnErr *pberrors.SpawnError
		if errors.As(err, &spawnErr) {
			log.Debug(fmt.Sprintf("could not launch %s", program))
		}
	case result.ExitCode != 0:
		log.Debug(fmt.Sprintf("%s exited with status %d", program, result.ExitCode))
	default:
		outcome.Status = model.StatusSuccess
		log.Duration("post-build action finished", outcome.Duration)
		return outcome
	}

	failure := pberrors.NewActionFailedError(a.Target, a.Name, index, result.ExitCode, cause)
	failure.Stderr = result.Stderr
	outcome.Error = failure
	outcome.Status = model.StatusFailed
	if a.OnFailure == PolicyIgnore {
		outcome.Status = model.StatusIgnored
	}
	return outcome
}

// failureMessage distinguishes a tool that could not be started from one that ran and failed.
func failureMessage(err error) string {
	var failed *pberrors.ActionFailedError
	if errors.As(err, &failed) && failed.IsSpawnFailure() {
		return "post-build tool could not be launched"
	}
	return "post-build tool reported failure"
}

func (r *Registry) notifyStarted(o model.Outcome) {
	if r.observer != nil {
		r.observer.ActionStarted(o)
	}
}

func (r *Registry) notifyFinished(o model.Outcome) {
	if r.observer != nil {
		r.observer.ActionFinished(o)
	}
}
