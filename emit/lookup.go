package emit

import "github.com/win32gen/win32gen/metadata"

// findTypeDef resolves e to its full TypeDef via the shared metadata index.
// Every entity-kind emitter needs this first step before it can inspect
// fields, methods, or attributes.
func findTypeDef(c *Context, e metadata.Entity) (metadata.TypeDef, bool, error) {
	for td, err := range c.Idx.IterAllTopLevelTypes() {
		if err != nil {
			return metadata.TypeDef{}, false, err
		}
		if td.Entity == e {
			return td, true, nil
		}
	}
	return metadata.TypeDef{}, false, nil
}
