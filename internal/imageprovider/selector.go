package imageprovider

import (
	"strings"

	"golang.org/x/net/html"
)

// Supported selector subset:
//   - tag, .class, #id and their combinations (tag.class, tag#id)
//   - [attr], [attr=val], [attr*=val] with optional quotes
//   - descendant combinator (space separated parts)

type simpleSelector struct {
	tag      string
	id       string
	class    string
	attrKey  string
	attrVal  string
	attrSubs bool // *= matches a substring of the attribute value
}

// querySelectorAll returns the nodes matching selector in document order.
func querySelectorAll(doc *html.Node, selector string) []*html.Node {
	parts := strings.Fields(selector)
	if doc == nil || len(parts) == 0 {
		return nil
	}

	matches := matchDescendants(doc, parseSimpleSelector(parts[0]), true)
	for _, part := range parts[1:] {
		sel := parseSimpleSelector(part)
		seen := make(map[*html.Node]bool)
		var next []*html.Node
		for _, parent := range matches {
			for _, n := range matchDescendants(parent, sel, false) {
				if !seen[n] {
					seen[n] = true
					next = append(next, n)
				}
			}
		}
		matches = next
	}
	return matches
}

// querySelector returns the first node matching selector, or nil.
func querySelector(doc *html.Node, selector string) *html.Node {
	if nodes := querySelectorAll(doc, selector); len(nodes) > 0 {
		return nodes[0]
	}
	return nil
}

func matchDescendants(root *html.Node, sel simpleSelector, includeRoot bool) []*html.Node {
	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if matchesSelector(n, sel) {
			results = append(results, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if includeRoot {
		walk(root)
		return results
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return results
}

// parseSimpleSelector parses "tag.class", "#id", "tag[attr*=val]", etc.
func parseSimpleSelector(sel string) simpleSelector {
	var s simpleSelector

	if idx := strings.IndexByte(sel, '['); idx >= 0 {
		attrPart := strings.TrimSuffix(sel[idx+1:], "]")
		sel = sel[:idx]
		if eqIdx := strings.IndexByte(attrPart, '='); eqIdx >= 0 {
			key := attrPart[:eqIdx]
			if strings.HasSuffix(key, "*") {
				key = strings.TrimSuffix(key, "*")
				s.attrSubs = true
			}
			s.attrKey = key
			s.attrVal = strings.Trim(attrPart[eqIdx+1:], `"'`)
		} else {
			s.attrKey = attrPart
		}
	}

	if idx := strings.IndexByte(sel, '#'); idx >= 0 {
		s.id = sel[idx+1:]
		sel = sel[:idx]
	}

	if idx := strings.IndexByte(sel, '.'); idx >= 0 {
		s.class = sel[idx+1:]
		sel = sel[:idx]
	}

	s.tag = strings.ToLower(sel)
	return s
}

func matchesSelector(n *html.Node, s simpleSelector) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.tag != "" && n.Data != s.tag {
		return false
	}
	if s.id != "" && attr(n, "id") != s.id {
		return false
	}
	if s.class != "" && !hasClass(n, s.class) {
		return false
	}
	if s.attrKey != "" {
		val, ok := lookupAttr(n, s.attrKey)
		switch {
		case !ok:
			return false
		case s.attrSubs:
			if !strings.Contains(val, s.attrVal) {
				return false
			}
		case s.attrVal != "" && val != s.attrVal:
			return false
		}
	}
	return true
}

func hasClass(n *html.Node, class string) bool {
	for c := range strings.FieldsSeq(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// attr returns the value of an attribute on a node, or "".
func attr(n *html.Node, key string) string {
	val, _ := lookupAttr(n, key)
	return val
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// firstAttr returns the first non-empty value among keys.
func firstAttr(n *html.Node, keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(attr(n, key)); val != "" {
			return val
		}
	}
	return ""
}
