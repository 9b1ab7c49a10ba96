package builder

import (
	"os"
	"strings"
)

// GuardEnv is the environment variable carrying the recursion guard into the
// build tool's process tree.
const GuardEnv = "FLEETBUILD_NESTED"

// ExecContext describes how the current process was invoked. Nested is true
// when fleetbuild is running underneath a build it started itself, typically
// from the build tool's post-build hook.
type ExecContext struct {
	Nested bool
}

// FromEnv reads the recursion guard from the process environment.
func FromEnv() ExecContext {
	return FromLookup(os.LookupEnv)
}

// FromLookup reads the recursion guard through lookup.
func FromLookup(lookup func(string) (string, bool)) ExecContext {
	v, ok := lookup(GuardEnv)
	if !ok {
		return ExecContext{}
	}
	v = strings.TrimSpace(v)
	return ExecContext{Nested: v != "" && v != "0" && !strings.EqualFold(v, "false")}
}

// Environ returns base with the recursion guard set. Any existing guard entry
// in base is replaced.
func Environ(base []string) []string {
	env := make([]string, 0, len(base)+1)
	for _, kv := range base {
		if strings.HasPrefix(kv, GuardEnv+"=") {
			continue
		}
		env = append(env, kv)
	}
	return append(env, GuardEnv+"=1")
}
