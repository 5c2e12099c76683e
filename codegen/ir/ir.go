// Package ir is the deterministic, JSON-serializable intermediate
// representation of one generation session: the units resolved, scheduled,
// and emitted, kept ordered so callers inspecting or diffing a session's
// output never depend on Go's randomized map iteration.
package ir

type (
	// Session is the generator-facing intermediate representation of one
	// generation request, intended to be stable and ordered
	// deterministically so tooling can iterate it without relying on map
	// iteration order.
	Session struct {
		// Namespace is the configured output namespace of this session
		// (config.Options.Namespace, e.g. "windows.win32").
		Namespace string `json:"namespace"`
		// ClassName groups the P/Invoke extern declarations this session
		// emitted.
		ClassName string `json:"class_name"`
		// Units is the set of emitted compilation units, in the order
		// their keys were first scheduled.
		Units []Unit `json:"units"`
	}

	// Unit describes one scheduled-and-emitted entity: its name, kind,
	// the file path it contributed to, and the further entities it
	// pulled in.
	Unit struct {
		// Name is the metadata entity's simple name (method or type name).
		Name string `json:"name"`
		// Kind is the EntityKind this unit was emitted under ("method",
		// "struct", "union", "enum", "interface", "delegate",
		// "constant", "handle").
		Kind string `json:"kind"`
		// Path is the generated file path this unit's section
		// contributed to.
		Path string `json:"path"`
		// DependsOn lists the names of further entities this unit's
		// projection required, in discovery order.
		DependsOn []string `json:"depends_on,omitempty"`
	}
)
