package registry

// ValueElement is the name of the annotation element that lists service
// interfaces.
const ValueElement = "value"

// Interfaces returns the declared types named by the value element of a.
// Both a single type reference and an array of them are accepted; nested
// arrays are flattened. An empty array yields an empty, non-nil slice.
func Interfaces(a Annotation) ([]DeclaredType, error) {
	v, ok := a.Values[ValueElement]
	if !ok {
		return nil, &MalformedAnnotationError{AnnotationType: a.Type, Element: ValueElement}
	}
	types := []DeclaredType{}
	if err := collectTypes(a, v, &types); err != nil {
		return nil, err
	}
	return types, nil
}

func collectTypes(a Annotation, v Value, types *[]DeclaredType) error {
	switch v := v.(type) {
	case TypeValue:
		*types = append(*types, v.Type)
	case ArrayValue:
		for _, e := range v.Elems {
			if err := collectTypes(a, e, types); err != nil {
				return err
			}
		}
	default:
		return &MalformedAnnotationError{AnnotationType: a.Type, Element: ValueElement}
	}
	return nil
}
