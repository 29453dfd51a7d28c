package ocdsmerge

// Option configures a Merger.
type Option func(*mergerConfig)

type mergerConfig struct {
	schema       map[string]any
	rules        *Rules
	overrides    Overrides
	policy       CollisionPolicy
	warnings     WarningHandler
	logger       Logger
	ruleCache    RuleCache
	orderExpr    string
	orderEngine  string
	evaluator    Evaluator
	programCache ProgramCache
	functions    *FunctionRegistry
}

func applyOptions(opts []Option) mergerConfig {
	cfg := mergerConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithSchema derives merge rules from a release schema document. Local $ref
// pointers are resolved before compilation.
func WithSchema(schema map[string]any) Option {
	return func(cfg *mergerConfig) {
		cfg.schema = schema
	}
}

// WithRules uses rules instead of compiling a schema. The reserved top-level
// directives from DefaultRules still apply unless rules redefines them.
func WithRules(rules Rules) Option {
	return func(cfg *mergerConfig) {
		cfg.rules = &rules
	}
}

// WithRuleOverrides selects append or merge-by-position for array paths.
func WithRuleOverrides(overrides Overrides) Option {
	return func(cfg *mergerConfig) {
		cfg.overrides = overrides
	}
}

// WithCollisionPolicy selects how duplicate array ids are reported.
func WithCollisionPolicy(policy CollisionPolicy) Option {
	return func(cfg *mergerConfig) {
		cfg.policy = policy
	}
}

// WithWarningHandler receives advisory warnings such as DuplicateIDWarning.
func WithWarningHandler(handler WarningHandler) Option {
	return func(cfg *mergerConfig) {
		cfg.warnings = handler
	}
}

// WithOrderExpression sorts releases by the value expression yields for each
// release instead of by `date`.
func WithOrderExpression(expression string) Option {
	return func(cfg *mergerConfig) {
		cfg.orderExpr = expression
	}
}

// WithOrderEngine selects the engine for the order expression: "expr"
// (default), "cel" or "js". Ignored when WithEvaluator is set.
func WithOrderEngine(engine string) Option {
	return func(cfg *mergerConfig) {
		cfg.orderEngine = engine
	}
}

// WithEvaluator configures the evaluator that runs the order expression.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *mergerConfig) {
		cfg.evaluator = e
	}
}

func (cfg mergerConfig) warningHandler() WarningHandler {
	if cfg.warnings != nil {
		return cfg.warnings
	}
	return noopWarningHandler{}
}

func (cfg mergerConfig) mergeLogger() Logger {
	if cfg.logger != nil {
		return cfg.logger
	}
	return noopLogger{}
}
