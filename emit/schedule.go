package emit

import (
	"github.com/win32gen/win32gen/accumulate"
	"github.com/win32gen/win32gen/metadata"
)

// KindOf resolves the EntityKind an arbitrary dependency Entity should be
// scheduled under, by looking up its TypeDef and mapping metadata.TypeKind
// to accumulate.EntityKind. Every handle typedef schedules under
// KindHandle, whether or not handlepolicy finds it eligible for a
// safe-handle wrapper, since its own type declaration is always emitted
// (the handle emitter itself decides whether to also emit a wrapper).
func (c *Context) KindOf(e metadata.Entity) accumulate.EntityKind {
	for td, err := range c.Idx.IterAllTopLevelTypes() {
		if err != nil || td.Entity != e {
			continue
		}
		switch td.Kind {
		case metadata.KindEnum:
			return accumulate.KindEnum
		case metadata.KindDelegate:
			return accumulate.KindDelegate
		case metadata.KindInterface:
			return accumulate.KindInterface
		case metadata.KindHandleTypedef:
			return accumulate.KindHandle
		default:
			return accumulate.KindStruct
		}
	}
	return accumulate.KindStruct
}
