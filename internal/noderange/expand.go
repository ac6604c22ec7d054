// Package noderange implements the node-range expression grammar
// spec.md §4.4 describes: a compact textual notation for naming many
// nodes at once (comma-separated terms, bracketed numeric ranges,
// "!"-prefixed exclusions, "@group" references), plus its reverse
// (Abbreviate) and the natural sort order the two share.
//
// Per spec.md's explicit instruction, noderange paths bypass the
// child-validity checks the Resolver applies elsewhere — expansion
// here never consults internal/schema, only the expression's own
// syntax plus (for group references) internal/configmanager, wired in
// by the caller.
package noderange

import (
	"strconv"
	"strings"

	apperr "github.com/clusterhub/clustercore/internal/errors"
)

// GroupResolver looks up a nodegroup's membership, used for "@group"
// terms. internal/core supplies this from internal/configmanager so
// that this package stays free of that dependency.
type GroupResolver func(group string) ([]string, error)

// Expand parses expr and returns its member node names in natural
// sort order, with duplicates removed. A term may be:
//
//	a literal node name           "n1"
//	a bracketed numeric range     "n[1-10]"
//	a bracketed list              "n[1,3,7]"
//	a mix of both, comma-joined   "n[1-3,7]"
//	multiple brackets in one term "n[1-2]e[1-2]" (cartesian product)
//	a bare node-to-node range     "n1-n3" (no brackets, same prefix/suffix)
//	a group reference             "@rack1"
//	an exclusion                  "!n3" (removes n3 from the result)
//
// groups may be nil if expr contains no "@" terms.
func Expand(expr string, groups GroupResolver) ([]string, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, apperr.InvalidArgument("empty noderange expression")
	}

	seen := make(map[string]bool)
	var include []string
	exclude := make(map[string]bool)

	for _, term := range splitTopLevel(expr) {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}

		negate := false
		if strings.HasPrefix(term, "!") {
			negate = true
			term = term[1:]
		}

		var names []string
		var err error
		switch {
		case strings.HasPrefix(term, "@"):
			if groups == nil {
				return nil, apperr.InvalidArgument("group reference not supported in this context: " + term)
			}
			names, err = groups(term[1:])
		default:
			names, err = expandTerm(term)
		}
		if err != nil {
			return nil, err
		}

		if negate {
			for _, n := range names {
				exclude[n] = true
			}
			continue
		}
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				include = append(include, n)
			}
		}
	}

	out := include[:0]
	for _, n := range include {
		if !exclude[n] {
			out = append(out, n)
		}
	}
	Sort(out)
	return out, nil
}

// splitTopLevel splits expr on commas that are not inside a bracket
// pair, so "n[1,3]" stays one term while "n1,n2" splits into two.
func splitTopLevel(expr string) []string {
	var terms []string
	depth := 0
	start := 0
	for i, c := range expr {
		switch c {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				terms = append(terms, expr[start:i])
				start = i + 1
			}
		}
	}
	terms = append(terms, expr[start:])
	return terms
}

// expandTerm expands one bracket-free-or-not term into its literal
// node names, handling one or more "prefix[range]" segments
// concatenated together (cartesian across multiple brackets).
func expandTerm(term string) ([]string, error) {
	if !strings.Contains(term, "[") {
		if names, ok := expandHyphenRange(term); ok {
			return names, nil
		}
	}

	segments, err := splitSegments(term)
	if err != nil {
		return nil, err
	}

	names := []string{""}
	for _, seg := range segments {
		var expansions []string
		if seg.bracket == "" {
			expansions = []string{seg.prefix}
		} else {
			values, err := expandBracket(seg.bracket)
			if err != nil {
				return nil, err
			}
			for _, v := range values {
				expansions = append(expansions, seg.prefix+v)
			}
		}

		var next []string
		for _, base := range names {
			for _, e := range expansions {
				next = append(next, base+e)
			}
		}
		names = next
	}
	return names, nil
}

// expandHyphenRange recognizes a bare "start-end" node range outside
// any bracket (e.g. "n1-n3" -> n1,n2,n3), the form core.py's NodeRange
// grammar accepts alongside bracketed ranges. ok is false for anything
// that isn't exactly two node names sharing a common non-numeric
// prefix/suffix around a single embedded digit run, so a plain
// hyphenated literal (or a descending/malformed pair) falls through
// unchanged to splitSegments.
func expandHyphenRange(term string) ([]string, bool) {
	dash := strings.IndexByte(term, '-')
	if dash <= 0 || dash == len(term)-1 {
		return nil, false
	}

	loPrefix, loNum, loSuffix, loOk := splitNumeric(term[:dash])
	hiPrefix, hiNum, hiSuffix, hiOk := splitNumeric(term[dash+1:])
	if !loOk || !hiOk || loPrefix != hiPrefix || loSuffix != hiSuffix {
		return nil, false
	}

	loN, err := strconv.Atoi(loNum)
	if err != nil {
		return nil, false
	}
	hiN, err := strconv.Atoi(hiNum)
	if err != nil || hiN < loN {
		return nil, false
	}

	width := len(loNum)
	if len(hiNum) > width {
		width = len(hiNum)
	}
	names := make([]string, 0, hiN-loN+1)
	for i := loN; i <= hiN; i++ {
		names = append(names, loPrefix+pad(i, width)+loSuffix)
	}
	return names, true
}

type segment struct {
	prefix  string
	bracket string
}

// splitSegments splits "n[1-2]e[1-2]" into [{prefix:"n",bracket:"1-2"},
// {prefix:"e",bracket:"1-2"}].
func splitSegments(term string) ([]segment, error) {
	var segments []segment
	for len(term) > 0 {
		open := strings.IndexByte(term, '[')
		if open == -1 {
			segments = append(segments, segment{prefix: term})
			break
		}
		close := strings.IndexByte(term[open:], ']')
		if close == -1 {
			return nil, apperr.InvalidArgument("unterminated bracket in noderange expression: " + term)
		}
		close += open

		segments = append(segments, segment{prefix: term[:open], bracket: term[open+1 : close]})
		term = term[close+1:]
	}
	return segments, nil
}

// expandBracket expands a bracket body like "1-10" or "1,3,05-07"
// into zero-padded string values, preserving the width of each
// sub-expression's widest bound.
func expandBracket(body string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if dash := strings.IndexByte(part, '-'); dash > 0 {
			lo, hi := part[:dash], part[dash+1:]
			loN, err := strconv.Atoi(lo)
			if err != nil {
				return nil, apperr.InvalidArgument("invalid noderange bound: " + lo)
			}
			hiN, err := strconv.Atoi(hi)
			if err != nil {
				return nil, apperr.InvalidArgument("invalid noderange bound: " + hi)
			}
			width := len(lo)
			if len(hi) > width {
				width = len(hi)
			}
			if hiN < loN {
				return nil, apperr.InvalidArgument("invalid noderange range (descending): " + part)
			}
			for i := loN; i <= hiN; i++ {
				out = append(out, pad(i, width))
			}
			continue
		}
		out = append(out, part)
	}
	return out, nil
}

func pad(n int, width int) string {
	s := strconv.Itoa(n)
	for len(s) < width {
		s = "0" + s
	}
	return s
}
