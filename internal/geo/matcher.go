package geo

import (
	"sort"
	"strings"
)

// phraseIndex finds country mentions in free text. ISO codes are left out
// since two-letter codes collide with ordinary words ("in", "de").
type phraseIndex struct {
	phrases []string // normalized, longest first
	toInfo  map[string]CountryInfo
}

func newPhraseIndex(countries []CountryInfo) phraseIndex {
	idx := phraseIndex{toInfo: map[string]CountryInfo{}}
	add := func(s string, c CountryInfo) {
		k := normalizeKey(s)
		if k == "" {
			return
		}
		if _, exists := idx.toInfo[k]; !exists {
			idx.toInfo[k] = c
			idx.phrases = append(idx.phrases, k)
		}
	}
	for _, c := range countries {
		add(c.Name, c)
		for _, a := range c.Aliases {
			add(a, c)
		}
	}

	// Prefer longer phrases first to avoid "united" matching before "united states"
	sort.Slice(idx.phrases, func(i, j int) bool {
		if len(idx.phrases[i]) == len(idx.phrases[j]) {
			return idx.phrases[i] < idx.phrases[j]
		}
		return len(idx.phrases[i]) > len(idx.phrases[j])
	})
	return idx
}

// Mentions returns the countries named in text, longest phrase first.
func (d *DatasetResolver) Mentions(text string) []CountryInfo {
	t := " " + normalizeKey(text) + " "
	seen := map[string]struct{}{}
	var out []CountryInfo

	for _, p := range d.index.phrases {
		if !strings.Contains(t, " "+p+" ") {
			continue
		}
		c := d.index.toInfo[p]
		if _, ok := seen[c.ISO2]; ok {
			continue
		}
		seen[c.ISO2] = struct{}{}
		out = append(out, c)
	}
	return out
}
