package script

// DefaultConditionGlobals returns the global names available to edge
// condition expressions, bound to placeholder values. The engine supplies
// the real values from the decision state at evaluation time; registering
// the names here lets the compiler resolve them.
func DefaultConditionGlobals() map[string]any {
	return map[string]any{
		"scenario":       "",
		"options":        []any{},
		"prediction":     "",
		"confidence":     0.0,
		"human_decision": "",
		"human_approved": false,
		"status":         "",
	}
}
