package workflow

import "sort"

// Match selects the workflow definition governing a new request.
//
// Definitions are filtered to those applying to the given type and marked
// active, ordered by Priority ascending with stored order breaking ties,
// and the first whose conditions all hold wins. A definition with zero
// conditions matches unconditionally.
//
// Returns (nil, nil) when no definition matches; the caller decides the
// fallback. Condition evaluation errors (missing or malformed payload
// fields) propagate instead of being treated as a non-match.
func Match(defs []*WorkflowDefinition, t WorkItemType, payload Payload) (*WorkflowDefinition, error) {
	candidates := make([]*WorkflowDefinition, 0, len(defs))
	for _, def := range defs {
		if def.IsActive && def.AppliesTo == t {
			candidates = append(candidates, def)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority < candidates[j].Priority
	})

	for _, def := range candidates {
		ok, err := matches(def, payload)
		if err != nil {
			return nil, err
		}
		if ok {
			return def, nil
		}
	}
	return nil, nil
}

func matches(def *WorkflowDefinition, payload Payload) (bool, error) {
	for _, cond := range def.Conditions {
		ok, err := cond.Eval(payload)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
