package ocdsmerge

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNoEvaluator = errors.New("ocdsmerge: evaluator not configured")

// Order expression engines.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// NewEvaluator returns the evaluator for engine, wiring cache and registry.
// The js engine requires the js_eval build tag.
func NewEvaluator(engine string, cache ProgramCache, registry *FunctionRegistry) (Evaluator, error) {
	var evaluator Evaluator
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineExpr:
		evaluator = NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(registry))
	case EngineCEL:
		evaluator = NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(registry))
	case EngineJS, "javascript", "goja":
		evaluator = NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(registry))
	default:
		return nil, fmt.Errorf("ocdsmerge: unknown order engine %q", engine)
	}
	if evaluator == nil {
		return nil, fmt.Errorf("%w: %s engine unavailable in this build", ErrNoEvaluator, engine)
	}
	return evaluator, nil
}

// resolveOrder compiles the configured order expression, if any.
func (cfg mergerConfig) resolveOrder() (CompiledRule, string, error) {
	if cfg.orderExpr == "" {
		return nil, "", nil
	}
	evaluator := cfg.evaluator
	if evaluator == nil {
		registry := cfg.functions
		if registry == nil {
			registry = DefaultFunctionRegistry()
		}
		var err error
		evaluator, err = NewEvaluator(cfg.orderEngine, cfg.programCache, registry)
		if err != nil {
			return nil, "", err
		}
	}
	engine := evaluatorEngineName(evaluator)
	rule, err := evaluator.Compile(cfg.orderExpr)
	if err != nil {
		return nil, engine, wrapEvaluationError(engine, cfg.orderExpr, "", err)
	}
	return rule, engine, nil
}

func evaluatorEngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return EngineExpr
	case *celEvaluator:
		return EngineCEL
	case *jsEvaluator:
		return EngineJS
	default:
		return "custom"
	}
}

// jsEvaluator runs order expressions with goja. Builds without js_eval never
// construct one.
type jsEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// JSEvaluatorOption configures the JS evaluator.
type JSEvaluatorOption func(*jsEvaluator)

// JSWithProgramCache shares compiled programs through cache.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(e *jsEvaluator) {
		e.cache = cache
	}
}

// JSWithFunctionRegistry exposes a copy of registry to expressions.
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(e *jsEvaluator) {
		if registry != nil {
			e.registry = registry.Clone()
		}
	}
}
