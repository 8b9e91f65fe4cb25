package geo

import (
	"errors"
	"sort"
	"strings"
)

// supported is the country list offered by the preferences form.
var supported = []CountryInfo{
	{Name: "United States", ISO2: "us", Aliases: []string{"usa", "america", "united states of america"}},
	{Name: "India", ISO2: "in", Aliases: []string{"bharat"}},
	{Name: "United Kingdom", ISO2: "gb", Aliases: []string{"uk", "great britain", "britain", "england"}},
	{Name: "Canada", ISO2: "ca"},
	{Name: "Australia", ISO2: "au"},
	{Name: "Germany", ISO2: "de", Aliases: []string{"deutschland"}},
	{Name: "France", ISO2: "fr"},
	{Name: "Japan", ISO2: "jp", Aliases: []string{"nippon"}},
}

// DatasetResolver resolves ISO codes, names and aliases against a fixed
// country table.
type DatasetResolver struct {
	byKey map[string]CountryInfo // normalized code/name/alias -> info
	list  []CountryInfo
	index phraseIndex
}

func NewDatasetResolver(countries []CountryInfo) *DatasetResolver {
	byKey := map[string]CountryInfo{}
	list := make([]CountryInfo, 0, len(countries))
	for _, c := range countries {
		c.ISO2 = strings.ToLower(strings.TrimSpace(c.ISO2))
		c.Name = strings.TrimSpace(c.Name)
		if c.ISO2 == "" {
			continue
		}
		byKey[c.ISO2] = c
		byKey[normalizeKey(c.Name)] = c
		for _, a := range c.Aliases {
			if strings.TrimSpace(a) == "" {
				continue
			}
			byKey[normalizeKey(a)] = c
		}
		list = append(list, c)
	}
	return &DatasetResolver{byKey: byKey, list: list, index: newPhraseIndex(list)}
}

// Default returns the resolver for the supported country list.
func Default() *DatasetResolver {
	return NewDatasetResolver(supported)
}

func (d *DatasetResolver) ResolveCountry(name string) (CountryInfo, error) {
	key := normalizeKey(name)
	if key == "" {
		return CountryInfo{}, errors.New("empty country name")
	}
	if v, ok := d.byKey[key]; ok {
		return v, nil
	}
	return CountryInfo{}, ErrUnknownCountry
}

// Countries lists the table sorted by name.
func (d *DatasetResolver) Countries() []CountryInfo {
	out := append([]CountryInfo(nil), d.list...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
