package entities

import (
	_ "embed"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/racketdata/ttsync/pkg/optional"
)

//go:embed provinces.yaml
var provincesYAML []byte

// provinceTable holds the embedded prefix table, prefixes sorted longest
// first so "Lx" wins over "L" and "BBW" over "B".
var provinceTable = loadProvinceTable()

type provinceFile struct {
	Prefixes map[string]string `yaml:"prefixes"`
}

type provinceEntry struct {
	prefix   string
	province string
}

func loadProvinceTable() []provinceEntry {
	var file provinceFile
	if err := yaml.Unmarshal(provincesYAML, &file); err != nil {
		// The table is embedded at build time; a parse failure is a
		// programming error.
		panic("entities: invalid provinces.yaml: " + err.Error())
	}

	entries := make([]provinceEntry, 0, len(file.Prefixes))
	for prefix, province := range file.Prefixes {
		entries = append(entries, provinceEntry{prefix: prefix, province: province})
	}
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].prefix) != len(entries[j].prefix) {
			return len(entries[i].prefix) > len(entries[j].prefix)
		}
		return entries[i].prefix < entries[j].prefix
	})
	return entries
}

// DeriveProvince derives a province from the structural prefix of a club
// code, e.g. "H004" → "Hainaut". Matching is case-insensitive and prefers
// the longest known prefix. Returns absent when no prefix matches.
func DeriveProvince(code string) optional.Value[string] {
	upper := strings.ToUpper(strings.TrimSpace(code))
	for _, entry := range provinceTable {
		if strings.HasPrefix(upper, strings.ToUpper(entry.prefix)) {
			return optional.Of(entry.province)
		}
	}
	return optional.None[string]()
}
