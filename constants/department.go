package constants

import "strings"

// Department names as they are printed on receipts. Chains interleave these
// between an item's code/name line and its price line, so the tagger has to
// know the vocabulary up front.
var departmentVocabulary = []string{
	"GROCERY",
	"PRODUCE",
	"DELI",
	"BAKERY",
	"DAIRY",
	"MEAT",
	"SEAFOOD",
	"FROZEN",
	"FROZEN FOODS",
	"BEVERAGES",
	"HOUSEHOLD",
	"HEALTH & BEAUTY",
	"GEN MERCHANDISE",
	"GENERAL MERCHANDISE",
	"MISCELLANEOUS",
	"PET SUPPLIES",
	"BREAD & SNACKS",
	"PACKAGE FOOD",
	"SPECIALTY FOODS",
}

var departmentSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(departmentVocabulary))
	for _, d := range departmentVocabulary {
		m[normalizeHeader(d)] = struct{}{}
	}
	return m
}()

func normalizeHeader(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " AND ", " & ")
	return strings.Join(strings.Fields(s), " ")
}

// IsDepartment reports whether a line is exactly a known department header.
func IsDepartment(line string) bool {
	_, ok := departmentSet[normalizeHeader(line)]
	return ok
}

// Departments returns the vocabulary in printed form.
func Departments() []string {
	out := make([]string, len(departmentVocabulary))
	copy(out, departmentVocabulary)
	return out
}
