package registry

import "fmt"

// qualify computes the externally-visible name for a capability. spec.md
// §3/§4.5 define the canonical form as "{serverName}_{localName}" and
// name it "the default external name" unconditionally — the only
// escape hatch to a shorter name is an explicit config alias (§4.5's
// "Optional aliasing"), never automatic same-name detection. Qualifying
// unconditionally also makes QualifiedName a pure function of
// (serverName, localName): registering backends in a different order, or
// adding a backend later that happens to share a local name with one
// already registered, can never change a name already handed out.
func qualify(serverName, localName string) string {
	return fmt.Sprintf("%s_%s", serverName, localName)
}
