// Package registry builds service-provider registry files.
//
// A registry file lives at META-INF/services/<interface> under an output root
// and lists, one per line, the binary names of the types that provide the
// interface. The Driver in this package collects providers from annotated
// declarations over several processing rounds, checks that they actually
// conform to the interfaces they name (when the "verify" option is given),
// and in the terminal round merges what it collected with any registry files
// that already exist before writing them back.
//
// The package knows nothing about a particular compiler or language front
// end. Hosts describe declarations with the Element and DeclaredType
// interfaces, answer subtype queries through Types, give access to the
// output root through Filer, and receive diagnostics through Messager. The
// processor package is the host for Go sources.
package registry
