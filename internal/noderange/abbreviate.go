package noderange

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Abbreviate is the reverse of Expand (SPEC_FULL.md §D.2): given a set
// of node names, produce a compact range expression such that
// Expand(Abbreviate(names), nil) reproduces the same set. Names that
// don't share a common non-numeric prefix/suffix with at least one
// other name are left as literal, comma-joined terms.
func Abbreviate(names []string) string {
	if len(names) == 0 {
		return ""
	}

	groups := make(map[[2]string][]numbered)
	var order [][2]string

	for _, n := range names {
		prefix, num, suffix, ok := splitNumeric(n)
		key := [2]string{prefix, suffix}
		if !ok {
			key = [2]string{n, "\x00literal"}
		}
		if _, exists := groups[key]; !exists {
			order = append(order, key)
		}
		groups[key] = append(groups[key], numbered{raw: n, value: num})
	}

	var terms []string
	for _, key := range order {
		members := groups[key]
		if key[1] == "\x00literal" {
			terms = append(terms, key[0])
			continue
		}
		terms = append(terms, formatGroup(key[0], key[1], members))
	}
	return strings.Join(terms, ",")
}

type numbered struct {
	raw   string
	value string
}

// splitNumeric splits a node name into its non-numeric prefix, its
// (one) embedded digit run, and whatever follows — "n10e1" is not
// split (two digit runs), so it falls back to literal form.
func splitNumeric(name string) (prefix, num, suffix string, ok bool) {
	start := -1
	end := -1
	for i, c := range name {
		if c >= '0' && c <= '9' {
			if start == -1 {
				start = i
			}
			end = i + 1
		} else if start != -1 {
			break
		}
	}
	if start == -1 {
		return "", "", "", false
	}
	rest := name[end:]
	for _, c := range rest {
		if c >= '0' && c <= '9' {
			return "", "", "", false
		}
	}
	return name[:start], name[start:end], rest, true
}

func formatGroup(prefix, suffix string, members []numbered) string {
	if len(members) == 1 {
		return prefix + members[0].value + suffix
	}

	sort.Slice(members, func(i, j int) bool {
		vi, _ := strconv.Atoi(members[i].value)
		vj, _ := strconv.Atoi(members[j].value)
		return vi < vj
	})

	width := len(members[0].value)
	var parts []string
	i := 0
	for i < len(members) {
		lo, _ := strconv.Atoi(members[i].value)
		j := i
		for j+1 < len(members) {
			next, _ := strconv.Atoi(members[j+1].value)
			cur, _ := strconv.Atoi(members[j].value)
			if next != cur+1 {
				break
			}
			j++
		}
		hi, _ := strconv.Atoi(members[j].value)
		if i == j {
			parts = append(parts, pad(lo, width))
		} else {
			parts = append(parts, fmt.Sprintf("%s-%s", pad(lo, width), pad(hi, width)))
		}
		i = j + 1
	}

	// A group that collapses to a single contiguous run reads as a
	// plain node-to-node range ("n1-n2"), not a one-element bracket
	// ("n[1-2]") — this is the form core.py's ReverseNodeRange produces
	// and the one expandHyphenRange parses back.
	if len(parts) == 1 {
		if lo, hi, ok := strings.Cut(parts[0], "-"); ok {
			return prefix + lo + suffix + "-" + prefix + hi + suffix
		}
	}
	return fmt.Sprintf("%s[%s]%s", prefix, strings.Join(parts, ","), suffix)
}
