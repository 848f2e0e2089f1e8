// Package audience derives the department/level targeting options for a
// campaign from the set of selected institutions. All functions are pure:
// fixed catalog in, deterministic sorted output out.
package audience

import (
	"fmt"
	"sort"
	"strings"
)

// Resolve computes the deduplicated, lexically sorted union of departments
// and levels across the selected institutions. An empty selection returns
// empty options without touching the catalog. Catalog entries with
// unusable metadata contribute nothing; they never suppress valid data
// from other selected institutions.
func Resolve(selectedIDs []string, catalog []Institution) Options {
	opts := Options{Departments: []string{}, Levels: []string{}}
	if len(selectedIDs) == 0 {
		return opts
	}

	selected := make(map[string]bool, len(selectedIDs))
	for _, id := range selectedIDs {
		selected[id] = true
	}

	deptSet := map[string]bool{}
	levelSet := map[string]bool{}
	for _, inst := range catalog {
		if !selected[inst.ID] {
			continue
		}
		for _, d := range inst.Departments {
			if d != "" {
				deptSet[d] = true
			}
		}
		for _, lv := range inst.Levels {
			if lv != "" {
				levelSet[lv] = true
			}
		}
	}

	opts.Departments = sortedKeys(deptSet)
	opts.Levels = sortedKeys(levelSet)
	return opts
}

// ResolveNames maps institution names back to IDs against the catalog.
// Older campaign records persist institutions by display name; unmatched
// names are dropped so partial targeting data still hydrates.
func ResolveNames(names []string, catalog []Institution) []string {
	byName := make(map[string]string, len(catalog))
	for _, inst := range catalog {
		byName[strings.ToLower(strings.TrimSpace(inst.Name))] = inst.ID
	}

	ids := []string{}
	for _, name := range names {
		if id, ok := byName[strings.ToLower(strings.TrimSpace(name))]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Prune drops any selected departments/levels that are no longer present
// in the options derived from the current institution selection. It
// returns the pruned selection plus the values that were removed, so the
// caller can surface a warning.
func Prune(sel Selection, opts Options) (Selection, []string) {
	var removed []string
	sel.Departments, removed = intersect(sel.Departments, opts.Departments, removed)
	sel.Levels, removed = intersect(sel.Levels, opts.Levels, removed)
	return sel, removed
}

// Summary renders a one-line human-readable description of the audience.
func Summary(sel Selection, catalog []Institution) string {
	if sel.TargetAll {
		return "All institutions"
	}
	if len(sel.InstitutionIDs) == 0 {
		return "No audience selected"
	}

	byID := make(map[string]string, len(catalog))
	for _, inst := range catalog {
		byID[inst.ID] = inst.Name
	}
	names := []string{}
	for _, id := range sel.InstitutionIDs {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	switch {
	case len(names) == 0:
		b.WriteString(fmt.Sprintf("%d institutions", len(sel.InstitutionIDs)))
	case len(names) <= 3:
		b.WriteString(strings.Join(names, ", "))
	default:
		b.WriteString(fmt.Sprintf("%s and %d more", strings.Join(names[:3], ", "), len(names)-3))
	}
	if len(sel.Departments) > 0 {
		b.WriteString(fmt.Sprintf(" · %d departments", len(sel.Departments)))
	}
	if len(sel.Levels) > 0 {
		b.WriteString(fmt.Sprintf(" · %d levels", len(sel.Levels)))
	}
	return b.String()
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func intersect(values, available []string, removed []string) ([]string, []string) {
	avail := make(map[string]bool, len(available))
	for _, v := range available {
		avail[v] = true
	}
	kept := []string{}
	for _, v := range values {
		if avail[v] {
			kept = append(kept, v)
		} else {
			removed = append(removed, v)
		}
	}
	return kept, removed
}
