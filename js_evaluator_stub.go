//go:build !js_eval

package ocdsmerge

// NewJSEvaluator is unavailable without the js_eval build tag.
func NewJSEvaluator(...JSEvaluatorOption) Evaluator {
	return nil
}

// JSEvaluatorAvailable reports whether the binary was built with js_eval.
func JSEvaluatorAvailable() bool {
	return false
}

// Evaluate is unavailable without the js_eval build tag.
func (e *jsEvaluator) Evaluate(OrderContext, string) (any, error) {
	return nil, ErrNoEvaluator
}

// Compile is unavailable without the js_eval build tag.
func (e *jsEvaluator) Compile(string) (CompiledRule, error) {
	return nil, ErrNoEvaluator
}
