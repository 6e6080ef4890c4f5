package openapi

const multipartForm = "multipart/form-data"

// fileFields are the properties every uploaded file descriptor declares.
// A descriptor also declares a "buffer" property; only its presence counts.
var fileFields = []string{"fieldname", "originalname", "encoding", "mimetype", "size"}

// IsFileSchema reports whether s describes an uploaded file: an object with
// the file descriptor properties and a buffer key, or an anyOf wrapper with
// at least one such branch.
func IsFileSchema(s *Schema) bool {
	if s == nil {
		return false
	}

	if isFileObject(s) {
		return true
	}

	for _, branch := range s.AnyOf {
		if isFileObject(branch) {
			return true
		}
	}

	return false
}

func isFileObject(s *Schema) bool {
	if s == nil || s.Type != "object" || s.Properties == nil {
		return false
	}

	for _, name := range fileFields {
		if _, ok := s.Properties[name]; !ok {
			return false
		}
	}

	_, ok := s.Properties["buffer"]

	return ok
}

// BinaryFileSchema returns the schema used for file fields of multipart forms.
func BinaryFileSchema() *Schema {
	return &Schema{Type: "string", Format: "binary", Required: RequiredFlag(false)}
}

// RewriteFileFields simplifies the multipart request bodies of every
// operation: file descriptors become binary strings and other array fields
// become plain strings with an empty default. The document is modified in
// place and returned.
func RewriteFileFields(doc *Document) *Document {
	if doc == nil {
		return doc
	}

	for _, item := range doc.Paths {
		if item == nil {
			continue
		}

		for _, op := range item.Operations() {
			if op.RequestBody == nil {
				continue
			}

			media, ok := op.RequestBody.Content[multipartForm]
			if !ok || media == nil || media.Schema == nil {
				continue
			}

			rewriteFormProperties(media.Schema)
		}
	}

	return doc
}

func rewriteFormProperties(schema *Schema) {
	for name, prop := range schema.Properties {
		switch {
		case IsFileSchema(prop):
			schema.Properties[name] = BinaryFileSchema()
		case prop != nil && prop.Type == "array":
			schema.Properties[name] = &Schema{Type: "string", Default: []any{}}
		}
	}
}
