// Package shared collects the import-spec bookkeeping emitters share:
// merging several fragments' import lists into one deduplicated,
// deterministically ordered set before a codegen.File's header section is
// built.
package shared

import (
	"sort"

	"goa.design/goa/v3/codegen"
)

// MergeImportSpecs unions any number of ImportSpec slices, deduplicating by
// (Name, Path) and returning the result sorted by Path so header output is
// stable across runs regardless of which emitter contributed which import
// first.
func MergeImportSpecs(groups ...[]*codegen.ImportSpec) []*codegen.ImportSpec {
	uniq := make(map[string]*codegen.ImportSpec)
	for _, g := range groups {
		for _, im := range g {
			if im == nil || im.Path == "" {
				continue
			}
			uniq[im.Name+"\x00"+im.Path] = im
		}
	}
	if len(uniq) == 0 {
		return nil
	}
	keys := make([]string, 0, len(uniq))
	for k := range uniq {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*codegen.ImportSpec, 0, len(keys))
	for _, k := range keys {
		out = append(out, uniq[k])
	}
	return out
}
