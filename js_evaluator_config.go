package appstate

// jsRuleSettings holds what the JavaScript rule engine shares with the store:
// compiled rule programs and rule helpers.
type jsRuleSettings struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// JSEvaluatorOption configures the JavaScript rule engine. The options are
// available without the js_eval build tag so configuration code compiles
// either way.
type JSEvaluatorOption func(*jsRuleSettings)

// JSWithProgramCache shares compiled rule programs through cache.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(s *jsRuleSettings) {
		s.cache = cache
	}
}

// JSWithFunctionRegistry exposes the registered helpers as global functions
// inside rules.
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(s *jsRuleSettings) {
		if registry != nil {
			s.registry = registry.Clone()
		}
	}
}

func jsSettings(opts []JSEvaluatorOption) jsRuleSettings {
	var settings jsRuleSettings
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}
	return settings
}
