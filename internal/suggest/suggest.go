// Package suggest offers "did you mean" candidates when a path lookup
// fails, based on Levenshtein distance to the names that actually exist.
package suggest

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/j0hanz/fscontext/internal/sandbox"
)

// Cap on returned candidates and on how different a name may be before it
// stops being a plausible typo.
const (
	maxSuggestions = 3
	maxDistance    = 5
)

// ForMissing returns up to three names in the missing path's parent
// directory that are closest to the requested name. The parent must itself
// resolve inside the sandbox; otherwise no suggestions are offered.
func ForMissing(sb *sandbox.Sandbox, missing string) []string {
	dir := filepath.Dir(missing)
	want := filepath.Base(missing)
	if want == "." || want == string(filepath.Separator) {
		return nil
	}

	resolved, err := sb.Resolve(dir)
	if err != nil {
		return nil
	}
	entries, err := os.ReadDir(resolved.ResolvedPath)
	if err != nil {
		return nil
	}

	type candidate struct {
		name string
		dist int
	}
	var cands []candidate
	wantLower := strings.ToLower(want)
	for _, e := range entries {
		name := e.Name()
		dist := edlib.LevenshteinDistance(wantLower, strings.ToLower(name))
		if dist > 0 && dist <= maxDistance {
			cands = append(cands, candidate{name: name, dist: dist})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].name < cands[j].name
	})

	out := make([]string, 0, maxSuggestions)
	for _, c := range cands {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, c.name)
	}
	return out
}
