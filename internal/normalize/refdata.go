package normalize

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/abbreviations.yaml data/merchants.yaml data/catalog.yaml
var embeddedData embed.FS

// MerchantRules is one chain's token substitution table. A rule mapping to
// the empty string drops the token (house brands, organic markers).
type MerchantRules struct {
	Aliases []string          `yaml:"aliases"`
	Rules   map[string]string `yaml:"rules"`
}

// RefData is the static reference data the normalizer works from. It is
// loaded once at process start and read-only afterwards; every concurrent
// parse shares the same instance.
type RefData struct {
	Abbreviations map[string]string
	Merchants     map[string]MerchantRules
	Catalog       []string

	catalogWords map[string]struct{}
}

type abbreviationsFile struct {
	Abbreviations map[string]string `yaml:"abbreviations"`
}

type merchantsFile struct {
	Merchants map[string]MerchantRules `yaml:"merchants"`
}

type catalogFile struct {
	Products []string `yaml:"products"`
}

// LoadRefData reads the versioned reference data. With an empty dir the
// embedded defaults apply; otherwise the three YAML files are read from dir.
func LoadRefData(dir string) (*RefData, error) {
	read := func(name string) ([]byte, error) {
		if dir == "" {
			return embeddedData.ReadFile("data/" + name)
		}
		return os.ReadFile(filepath.Join(dir, name))
	}

	var abbr abbreviationsFile
	b, err := read("abbreviations.yaml")
	if err != nil {
		return nil, fmt.Errorf("read abbreviations: %w", err)
	}
	if err := yaml.Unmarshal(b, &abbr); err != nil {
		return nil, fmt.Errorf("decode abbreviations: %w", err)
	}

	var merch merchantsFile
	b, err = read("merchants.yaml")
	if err != nil {
		return nil, fmt.Errorf("read merchants: %w", err)
	}
	if err := yaml.Unmarshal(b, &merch); err != nil {
		return nil, fmt.Errorf("decode merchants: %w", err)
	}

	var cat catalogFile
	b, err = read("catalog.yaml")
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if err := yaml.Unmarshal(b, &cat); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	rd := &RefData{
		Abbreviations: make(map[string]string, len(abbr.Abbreviations)),
		Merchants:     merch.Merchants,
		Catalog:       cat.Products,
		catalogWords:  make(map[string]struct{}),
	}
	for k, v := range abbr.Abbreviations {
		rd.Abbreviations[strings.ToUpper(k)] = strings.ToUpper(v)
	}
	for i, p := range rd.Catalog {
		p = strings.ToUpper(strings.TrimSpace(p))
		rd.Catalog[i] = p
		for _, w := range strings.Fields(p) {
			rd.catalogWords[w] = struct{}{}
		}
	}
	return rd, nil
}

// RulesFor resolves the merchant context string (as printed on the receipt
// or supplied by the caller) to a chain's rule table.
func (rd *RefData) RulesFor(merchant string) (MerchantRules, bool) {
	m := strings.ToUpper(strings.TrimSpace(merchant))
	if m == "" {
		return MerchantRules{}, false
	}
	// sorted keys keep alias resolution deterministic
	keys := make([]string, 0, len(rd.Merchants))
	for k := range rd.Merchants {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		mr := rd.Merchants[k]
		for _, alias := range mr.Aliases {
			if strings.Contains(m, strings.ToUpper(alias)) {
				return mr, true
			}
		}
	}
	return MerchantRules{}, false
}

// knownWord reports whether a token already reads as a catalog product word.
func (rd *RefData) knownWord(token string) bool {
	_, ok := rd.catalogWords[token]
	return ok
}
