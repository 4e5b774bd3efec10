package registry

// BinaryName computes the binary name of t: enclosing types are joined with
// '$' and the package is joined with '.'. So a type C declared in B, which is
// declared in package a, has binary name "a.B$C". A top-level type in the
// unnamed package is named by its simple name alone.
func BinaryName(t DeclaredType) string {
	return binaryName(t, t.SimpleName())
}

func binaryName(el Element, name string) string {
	enclosing := el.Enclosing()
	if enclosing == nil || enclosing.Kind() == KindPackage {
		if enclosing == nil || enclosing.QualifiedName() == "" {
			return name
		}
		return enclosing.QualifiedName() + "." + name
	}
	return binaryName(enclosing, enclosing.SimpleName()+"$"+name)
}
