//go:build !js_eval

package appstate

// NewJSEvaluator is unavailable without the js_eval build tag.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	_ = jsSettings(opts)
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}
