package types

// DecodeStructure converts a loosely-typed structure description (as decoded
// from JSON into maps and slices) into a Structure. Malformed entries are
// coerced, never rejected: a folder entry that is not an object becomes an
// empty folder, and non-string file names are dropped.
func DecodeStructure(raw any) Structure {
	m, ok := raw.(map[string]any)
	if !ok {
		return Structure{}
	}
	return Structure{
		Files:   coerceFiles(m["files"]),
		Folders: coerceFolders(m["folders"]),
	}
}

func coerceFiles(raw any) []string {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func coerceFolders(raw any) []Folder {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]Folder, 0, len(list))
	for _, v := range list {
		m, ok := v.(map[string]any)
		if !ok {
			out = append(out, Folder{})
			continue
		}
		name, _ := m["name"].(string)
		out = append(out, Folder{
			Name:    name,
			Files:   coerceFiles(m["files"]),
			Folders: coerceFolders(m["folders"]),
		})
	}
	return out
}
