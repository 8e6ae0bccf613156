package rewrite

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

const (
	gtmHost = "https://www.googletagmanager.com"

	DefaultPostHogIngest     = "/ingest"
	DefaultPostHogHost       = "https://eu.i.posthog.com"
	DefaultPostHogAssetsHost = "https://eu-assets.i.posthog.com"
)

// Rule maps a source path pattern onto a destination.
//
// Source segments are literals, :name (exactly one segment), :name* (zero or
// more trailing segments) or :name+ (one or more trailing segments). The
// destination is an internal path starting with "/" or an absolute http(s) URL,
// and may reference the source's parameters.
type Rule struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// DefaultRules returns the homepage alias followed by the Google Tag Manager and
// PostHog proxy rules, with PostHog mounted at /ingest.
func DefaultRules(posthogHost, posthogAssetsHost string) []Rule {
	return DefaultRulesAt(DefaultPostHogIngest, posthogHost, posthogAssetsHost)
}

// DefaultRulesAt is DefaultRules with PostHog mounted at ingest instead.
func DefaultRulesAt(ingest, posthogHost, posthogAssetsHost string) []Rule {
	ingest = strings.Trim(ingest, "/")
	if ingest == "" {
		ingest = DefaultPostHogIngest
	} else {
		ingest = "/" + ingest
	}
	if posthogHost == "" {
		posthogHost = DefaultPostHogHost
	}
	if posthogAssetsHost == "" {
		posthogAssetsHost = DefaultPostHogAssetsHost
	}
	posthogHost = strings.TrimSuffix(posthogHost, "/")
	posthogAssetsHost = strings.TrimSuffix(posthogAssetsHost, "/")

	return []Rule{
		{Source: "/", Destination: "/home"},

		{Source: "/gm", Destination: gtmHost + "/gtm.js"},
		{Source: "/gtm/td", Destination: gtmHost + "/td"},
		{Source: "/debug/bootstrap", Destination: gtmHost + "/debug/bootstrap"},
		{Source: "/debug/:path*", Destination: gtmHost + "/debug/:path*"},
		{Source: "/controller.js", Destination: gtmHost + "/controller.js"},
		{Source: "/gtm/:path*", Destination: gtmHost + "/gtm/:path*"},

		{Source: ingest + "/static/:path*", Destination: posthogAssetsHost + "/static/:path*"},
		{Source: ingest + "/:path*", Destination: posthogHost + "/:path*"},
		{Source: ingest + "/flags", Destination: posthogHost + "/flags"},
	}
}

type segmentKind int

const (
	literalSegment segmentKind = iota
	paramSegment
	zeroOrMoreSegment
	oneOrMoreSegment
)

type segment struct {
	kind  segmentKind
	value string
}

type compiledRule struct {
	rule     Rule
	segments []segment
	external bool
}

// Match is the outcome of resolving a path against the table.
type Match struct {
	Rule        Rule
	Destination string
	// External is true when Destination is an absolute URL.
	External bool
}

// Table is an immutable, ordered list of compiled rules. The first matching
// rule wins.
type Table struct {
	rules []compiledRule
}

var paramToken = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)([*+]?)`)

// New compiles rules in order. A malformed source or destination is an error.
func New(rules []Rule) (*Table, error) {
	t := &Table{rules: make([]compiledRule, 0, len(rules))}

	for i, rule := range rules {
		compiled, err := compile(rule)
		if err != nil {
			return nil, fmt.Errorf("rewrite rule %d (%s -> %s): %w", i, rule.Source, rule.Destination, err)
		}
		t.rules = append(t.rules, compiled)
	}

	return t, nil
}

// Rules returns the table's rules in evaluation order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	for i, r := range t.rules {
		out[i] = r.rule
	}
	return out
}

// Resolve returns the destination of the first rule matching path.
func (t *Table) Resolve(path string) (Match, bool) {
	parts := splitPath(path)

	for _, r := range t.rules {
		params, ok := r.match(parts)
		if !ok {
			continue
		}
		return Match{
			Rule:        r.rule,
			Destination: substitute(r.rule.Destination, params),
			External:    r.external,
		}, true
	}

	return Match{}, false
}

func compile(rule Rule) (compiledRule, error) {
	if !strings.HasPrefix(rule.Source, "/") {
		return compiledRule{}, fmt.Errorf("source must start with /")
	}

	var (
		segments []segment
		names    = map[string]bool{}
	)
	parts := splitPath(rule.Source)
	for i, part := range parts {
		if !strings.HasPrefix(part, ":") {
			segments = append(segments, segment{kind: literalSegment, value: part})
			continue
		}

		m := paramToken.FindStringSubmatch(part)
		if m == nil || m[0] != part {
			return compiledRule{}, fmt.Errorf("invalid parameter %q", part)
		}

		kind := paramSegment
		switch m[2] {
		case "*":
			kind = zeroOrMoreSegment
		case "+":
			kind = oneOrMoreSegment
		}
		if kind != paramSegment && i != len(parts)-1 {
			return compiledRule{}, fmt.Errorf("parameter %q must be the last segment", part)
		}
		if names[m[1]] {
			return compiledRule{}, fmt.Errorf("duplicate parameter %q", m[1])
		}
		names[m[1]] = true
		segments = append(segments, segment{kind: kind, value: m[1]})
	}

	for _, m := range paramToken.FindAllStringSubmatch(rule.Destination, -1) {
		if !names[m[1]] {
			return compiledRule{}, fmt.Errorf("destination references unknown parameter %q", m[1])
		}
	}

	external := false
	switch {
	case strings.HasPrefix(rule.Destination, "/"):
	default:
		u, err := url.Parse(rule.Destination)
		if err != nil {
			return compiledRule{}, fmt.Errorf("invalid destination: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return compiledRule{}, fmt.Errorf("destination must be a path or an http(s) URL")
		}
		if u.Host == "" {
			return compiledRule{}, fmt.Errorf("destination URL must have a host")
		}
		external = true
	}

	return compiledRule{rule: rule, segments: segments, external: external}, nil
}

func (r compiledRule) match(parts []string) (map[string][]string, bool) {
	params := map[string][]string{}

	for i, seg := range r.segments {
		switch seg.kind {
		case literalSegment:
			if i >= len(parts) || parts[i] != seg.value {
				return nil, false
			}
		case paramSegment:
			if i >= len(parts) || parts[i] == "" {
				return nil, false
			}
			params[seg.value] = []string{parts[i]}
		case zeroOrMoreSegment, oneOrMoreSegment:
			var rest []string
			if i < len(parts) {
				rest = parts[i:]
			}
			if seg.kind == oneOrMoreSegment && len(rest) == 0 {
				return nil, false
			}
			params[seg.value] = rest
			return params, true
		}
	}

	if len(parts) != len(r.segments) {
		return nil, false
	}
	return params, true
}

func substitute(destination string, params map[string][]string) string {
	if len(params) == 0 {
		return destination
	}

	// Longest names first so :path does not clobber :pathname.
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	out := destination
	for _, name := range names {
		values := params[name]
		escaped := make([]string, len(values))
		for i, v := range values {
			escaped[i] = url.PathEscape(v)
		}
		joined := strings.Join(escaped, "/")

		for _, suffix := range []string{"*", "+", ""} {
			token := ":" + name + suffix
			if joined == "" {
				out = strings.ReplaceAll(out, "/"+token, "")
			}
			out = strings.ReplaceAll(out, token, joined)
		}
	}

	return out
}

func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
