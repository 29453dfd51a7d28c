package ocdsmerge

import (
	"fmt"
	"time"
)

// OrderContext carries the release an order expression is evaluated against.
type OrderContext struct {
	Release map[string]any
	Index   int
	Now     *time.Time
}

func (ctx OrderContext) withDefaultNow() OrderContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx OrderContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx OrderContext) label() string {
	return fmt.Sprintf("release[%d]", ctx.Index)
}

// binding exposes every top-level release field plus release, index and now.
func (ctx OrderContext) binding() map[string]any {
	env := make(map[string]any, len(ctx.Release)+3)
	for key, value := range ctx.Release {
		env[key] = value
	}
	release := ctx.Release
	if release == nil {
		release = map[string]any{}
	}
	env["release"] = release
	env["index"] = ctx.Index
	env["now"] = ctx.timestamp()
	return env
}

// Evaluator executes order expressions against a release.
type Evaluator interface {
	Evaluate(ctx OrderContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx OrderContext) (any, error)
}
