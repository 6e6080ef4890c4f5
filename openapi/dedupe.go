package openapi

// DedupeParameters collapses parameters sharing a name. A path parameter
// replaces an earlier non-path entry of the same name; otherwise the first
// entry wins. Distinct names keep their first-seen order.
func DedupeParameters(params []*Parameter) []*Parameter {
	if len(params) == 0 {
		return params
	}

	index := make(map[string]int, len(params))
	out := make([]*Parameter, 0, len(params))

	for _, p := range params {
		if p == nil {
			continue
		}

		i, seen := index[p.Name]
		if !seen {
			index[p.Name] = len(out)
			out = append(out, p)

			continue
		}

		if out[i].In != "path" && p.In == "path" {
			out[i] = p
		}
	}

	return out
}
