package registry

import "strings"

// destructivePatterns are substrings that, found in a tool's local name,
// mark it destructive by default (SPEC_FULL.md §5, grounded in the
// teacher's static denylist but generalized to patterns so it covers
// arbitrary backends rather than one fixed k8s/Helm/Flux tool list).
var destructivePatterns = []string{
	"delete", "drop", "remove", "rm_", "destroy", "purge", "uninstall",
}

// isDestructive reports whether a tool's local name matches a destructive
// pattern. Blocked tools are still listed (as Card.Blocked = true) unless
// the gateway runs in yolo mode (policies.yolo).
func isDestructive(localName string) bool {
	lower := strings.ToLower(localName)
	for _, p := range destructivePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
