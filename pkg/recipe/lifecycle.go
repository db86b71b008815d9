package recipe

import (
	"context"
	"fmt"
	"os"

	recipeerrors "github.com/provide-io/flavor/go/fmtpack/pkg/recipe/errors"
)

// State is a point in one invocation's lifecycle.
type State int

const (
	Declared State = iota
	OptionsResolved
	SourceFetched
	Built
	Packaged
	InfoEmitted
)

func (s State) String() string {
	switch s {
	case Declared:
		return "Declared"
	case OptionsResolved:
		return "OptionsResolved"
	case SourceFetched:
		return "SourceFetched"
	case Built:
		return "Built"
	case Packaged:
		return "Packaged"
	case InfoEmitted:
		return "InfoEmitted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Lifecycle runs the stages of one invocation strictly in order. A failed
// stage leaves the state where it was, so later stages cannot run.
type Lifecycle struct {
	recipe *Recipe
	env    Env
	state  State
	bc     *BuildContext
}

// NewLifecycle starts an invocation in the Declared state.
func NewLifecycle(r *Recipe, env Env) *Lifecycle {
	return &Lifecycle{recipe: r, env: env, state: Declared}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	return l.state
}

// Context returns the build context, or nil before options are resolved.
func (l *Lifecycle) Context() *BuildContext {
	return l.bc
}

// advance runs stage when the lifecycle is at from and moves it to to once
// stage succeeds. A failed stage leaves the state unchanged.
func (l *Lifecycle) advance(from, to State, stage func() error) error {
	if l.state != from {
		return fmt.Errorf("%w: %s -> %s from %s", recipeerrors.ErrInvalidTransition, from, to, l.state)
	}
	if err := stage(); err != nil {
		return err
	}
	l.state = to
	return nil
}

// ResolveOptions validates the identity, resolves options and creates the
// build context.
func (l *Lifecycle) ResolveOptions(settings Settings, overrides map[string]string, folders Folders) (*BuildContext, error) {
	err := l.advance(Declared, OptionsResolved, func() error {
		if err := l.recipe.Identity.Validate(); err != nil {
			return err
		}
		resolved, err := l.recipe.Resolve(settings, overrides)
		if err != nil {
			return err
		}
		for _, name := range resolved.Removed() {
			if _, overridden := overrides[name]; overridden {
				reason, _ := resolved.RemovalReason(name)
				l.env.logger().Warn("⚠️ Option override ignored", "option", name, "reason", reason)
			}
		}
		l.bc = l.recipe.NewBuildContext(resolved, folders)
		l.env.logger().Debug("⚙️ Options resolved", "package_id", l.bc.PackageID, "options", resolved.Names(), "removed", resolved.Removed())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return l.bc, nil
}

// FetchSource runs the source stage.
func (l *Lifecycle) FetchSource(ctx context.Context) error {
	return l.advance(OptionsResolved, SourceFetched, func() error {
		return l.recipe.Source(ctx, l.env, l.bc)
	})
}

// ReuseSource skips the source stage when the source tree is already in
// place from an earlier invocation.
func (l *Lifecycle) ReuseSource() error {
	return l.advance(OptionsResolved, SourceFetched, func() error {
		if info, err := os.Stat(l.bc.SourceTree); err != nil || !info.IsDir() {
			return fmt.Errorf("%w: no source tree at %s", recipeerrors.ErrFetchFailed, l.bc.SourceTree)
		}
		l.env.logger().Info("♻️ Reusing fetched sources", "path", l.bc.SourceTree)
		return nil
	})
}

// Build runs the build stage.
func (l *Lifecycle) Build(ctx context.Context) error {
	return l.advance(SourceFetched, Built, func() error {
		return l.recipe.Build(ctx, l.env, l.bc)
	})
}

// Package runs the package stage.
func (l *Lifecycle) Package(ctx context.Context) error {
	return l.advance(Built, Packaged, func() error {
		return l.recipe.Package(ctx, l.env, l.bc)
	})
}

// EmitInfo derives the package info.
func (l *Lifecycle) EmitInfo() (*PackageInfo, error) {
	var info *PackageInfo
	err := l.advance(Packaged, InfoEmitted, func() error {
		var err error
		info, err = l.recipe.Info(l.bc)
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// Run drives every stage in order and stops at the first failure.
func (l *Lifecycle) Run(ctx context.Context, settings Settings, overrides map[string]string, folders Folders) (*PackageInfo, error) {
	if _, err := l.ResolveOptions(settings, overrides, folders); err != nil {
		return nil, err
	}
	if err := l.FetchSource(ctx); err != nil {
		return nil, err
	}
	if err := l.Build(ctx); err != nil {
		return nil, err
	}
	if err := l.Package(ctx); err != nil {
		return nil, err
	}
	return l.EmitInfo()
}
