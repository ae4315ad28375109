package anonymize

import (
	"fmt"
	"sort"
	"strings"
)

// StylePair is one observed (declared style, computed style) combination.
type StylePair struct {
	Declared  string
	Computed  string // descriptive label
	Signature string // bitmap key the label was derived from
}

// AuditStyleNames checks that declared labels and signatures map one to one.
// A declared label spanning several signatures, or a signature carried under
// several declared labels, each yield one leakage warning.
func AuditStyleNames(pairs []StylePair) []Warning {
	bySig := make(map[string]map[string]bool)  // signature -> declared labels
	byDecl := make(map[string]map[string]bool) // declared -> signatures
	labels := make(map[string]map[string]bool) // signature -> computed labels
	for _, p := range pairs {
		addTo(bySig, p.Signature, p.Declared)
		addTo(byDecl, p.Declared, p.Signature)
		addTo(labels, p.Signature, p.Computed)
	}

	var warnings []Warning
	for _, decl := range sortedSet(keysOf(byDecl)) {
		sigs := sortedSet(byDecl[decl])
		if len(sigs) < 2 {
			continue
		}
		var computed []string
		for _, s := range sigs {
			computed = append(computed, sortedSet(labels[s])...)
		}
		warnings = append(warnings, Warning{
			Kind: WarnStyleLeakage,
			Message: fmt.Sprintf("declared style %q covers %d different contest sets (computed styles %s)",
				decl, len(sigs), strings.Join(computed, ", ")),
			Labels: append([]string{decl}, computed...),
		})
	}
	for _, sig := range sortedSet(keysOf(bySig)) {
		decls := sortedSet(bySig[sig])
		if len(decls) < 2 {
			continue
		}
		computed := sortedSet(labels[sig])
		warnings = append(warnings, Warning{
			Kind: WarnStyleLeakage,
			Message: fmt.Sprintf("contest set %s (computed styles %s) appears under declared styles %s",
				sig, strings.Join(computed, ", "), quoteAll(decls)),
			Labels: append(decls, computed...),
		})
	}
	return warnings
}

func stylePairs(buckets []*Bucket) []StylePair {
	pairs := make([]StylePair, len(buckets))
	for i, b := range buckets {
		pairs[i] = StylePair{Declared: b.Declared, Computed: b.Label, Signature: b.Sig.Key()}
	}
	return pairs
}

func addTo(m map[string]map[string]bool, k, v string) {
	if m[k] == nil {
		m[k] = make(map[string]bool)
	}
	m[k][v] = true
}

func keysOf(m map[string]map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

func sortedSet(s map[string]bool) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func quoteAll(ss []string) string {
	q := make([]string, len(ss))
	for i, s := range ss {
		q[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(q, ", ")
}
