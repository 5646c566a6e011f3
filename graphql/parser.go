package graphql

import (
	"strconv"
	"strings"

	"github.com/magictunnel/magictunnel/mtcerrors"
)

// DirectiveDef records a custom directive's declared locations and
// repeatability, used by the validator to check usage sites. The built-in
// directives (skip, include, deprecated, specifiedBy) are described in
// builtinDirectiveDefs, kept apart from any parsed Schema, and none of them
// is repeatable.
type DirectiveDef struct {
	Name        string
	Locations   []string
	Repeatable  bool
	ArgNames    []string
}

var builtinDirectiveDefs = map[string]DirectiveDef{
	"skip":        {Name: "skip", Locations: []string{"FIELD", "FIELD_DEFINITION"}, Repeatable: false, ArgNames: []string{"if"}},
	"include":     {Name: "include", Locations: []string{"FIELD", "FIELD_DEFINITION"}, Repeatable: false, ArgNames: []string{"if"}},
	"deprecated":  {Name: "deprecated", Locations: []string{"FIELD_DEFINITION", "ENUM_VALUE", "ARGUMENT_DEFINITION"}, Repeatable: false, ArgNames: []string{"reason"}},
	"specifiedBy": {Name: "specifiedBy", Locations: []string{"SCALAR"}, Repeatable: false, ArgNames: []string{"url"}},
}

// Parse runs the full C6 pipeline over raw SDL: extension merging, then
// type/operation extraction into an intermediate Schema.
func Parse(sdl string) (*Schema, error) {
	merged, err := MergeExtensions(sdl)
	if err != nil {
		return nil, err
	}
	return extractSchema(merged)
}

// ---------------------------------------------------------------------------
// Extension merging
// ---------------------------------------------------------------------------

type extensionBlock struct {
	kind string // type|interface|input|enum|union|scalar|schema
	name string
	body string // the raw text between braces, or the "= A | B" suffix for unions, or directive text for scalars
}

// MergeExtensions scans sdl for `extend <kind> <name> { ... }` blocks and
// splices their bodies into the base type's definition, creating the base if
// it is absent. The returned text contains no `extend` statements.
func MergeExtensions(sdl string) (string, error) {
	text := sdl
	var blocks []extensionBlock

	for {
		idx := findKeyword(text, "extend")
		if idx < 0 {
			break
		}
		restStart := idx + len("extend")
		rest := strings.TrimLeft(text[restStart:], " \t")
		restStart = len(text) - len(rest)
		kind, rest2 := takeIdentifier(rest)
		if kind == "" {
			return "", &mtcerrors.ValidationError{Rule: "extend-syntax", Reason: "extend without a type kind"}
		}
		rest2 = strings.TrimLeft(rest2, " \t")

		var block extensionBlock
		block.kind = kind

		switch kind {
		case "schema":
			braceOpen := strings.IndexByte(rest2, '{')
			if braceOpen < 0 {
				return "", &mtcerrors.ValidationError{Rule: "extend-syntax", Symbol: "schema", Reason: "extend schema missing body"}
			}
			absOpen := restStart + len(rest) - len(rest2) + braceOpen
			close, err := findMatchingBrace(text, absOpen)
			if err != nil {
				return "", err
			}
			block.body = text[absOpen+1 : close]
			text = text[:idx] + text[close+1:]

		case "type", "interface", "input", "enum":
			name, rest3 := takeIdentifier(rest2)
			if name == "" {
				return "", &mtcerrors.ValidationError{Rule: "extend-syntax", Reason: "extend missing target name"}
			}
			block.name = name
			braceOpen := strings.IndexByte(rest3, '{')
			if braceOpen < 0 {
				return "", &mtcerrors.ValidationError{Rule: "extend-syntax", Symbol: name, Reason: "extend missing body"}
			}
			consumedBeforeBrace := len(rest) - len(rest3) + braceOpen
			absOpen := restStart + consumedBeforeBrace
			close, err := findMatchingBrace(text, absOpen)
			if err != nil {
				return "", err
			}
			block.body = text[absOpen+1 : close]
			text = text[:idx] + text[close+1:]

		case "union":
			name, rest3 := takeIdentifier(rest2)
			if name == "" {
				return "", &mtcerrors.ValidationError{Rule: "extend-syntax", Reason: "extend missing target name"}
			}
			block.name = name
			lineEnd := strings.IndexByte(rest3, '\n')
			var line string
			var end int
			if lineEnd < 0 {
				line = rest3
				end = len(text)
			} else {
				line = rest3[:lineEnd]
				end = restStart + (len(rest) - len(rest3)) + lineEnd
			}
			block.body = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "="))
			text = text[:idx] + text[end:]

		case "scalar":
			name, rest3 := takeIdentifier(rest2)
			if name == "" {
				return "", &mtcerrors.ValidationError{Rule: "extend-syntax", Reason: "extend missing target name"}
			}
			block.name = name
			lineEnd := strings.IndexByte(rest3, '\n')
			var line string
			var end int
			if lineEnd < 0 {
				line = rest3
				end = len(text)
			} else {
				line = rest3[:lineEnd]
				end = restStart + (len(rest) - len(rest3)) + lineEnd
			}
			block.body = strings.TrimSpace(line)
			text = text[:idx] + text[end:]

		default:
			return "", &mtcerrors.ValidationError{Rule: "extend-syntax", Symbol: kind, Reason: "unsupported extension kind"}
		}

		blocks = append(blocks, block)
	}

	for _, b := range blocks {
		var err error
		text, err = applyExtension(text, b)
		if err != nil {
			return "", err
		}
	}

	return text, nil
}

func applyExtension(text string, b extensionBlock) (string, error) {
	switch b.kind {
	case "schema":
		_, close, found := findBlock(text, "schema", "")
		if !found {
			return text + "\nschema {\n" + b.body + "\n}\n", nil
		}
		return text[:close] + "\n" + b.body + "\n" + text[close:], nil

	case "type", "interface", "input", "enum":
		_, close, found := findBlock(text, b.kind, b.name)
		if !found {
			return text + "\n" + b.kind + " " + b.name + " {\n" + b.body + "\n}\n", nil
		}
		return text[:close] + "\n" + b.body + "\n" + text[close:], nil

	case "union":
		if lineEnd, found := findLineDeclEnd(text, "union", b.name); found {
			return text[:lineEnd] + " | " + b.body + text[lineEnd:], nil
		}
		return text + "\nunion " + b.name + " = " + b.body + "\n", nil

	case "scalar":
		if lineEnd, found := findLineDeclEnd(text, "scalar", b.name); found {
			return text[:lineEnd] + " " + b.body + text[lineEnd:], nil
		}
		return text + "\nscalar " + b.name + " " + b.body + "\n", nil
	}
	return text, nil
}

// findLineDeclEnd locates a single-line `kw name ...` declaration and
// returns the absolute offset of the end of its line (or end of text if it
// is the last line), where extension content should be appended.
func findLineDeclEnd(text, kw, name string) (int, bool) {
	search := 0
	for {
		idx := findKeyword(text[search:], kw)
		if idx < 0 {
			return 0, false
		}
		abs := search + idx
		rest := strings.TrimLeft(text[abs+len(kw):], " \t")
		gotName, rest2 := takeIdentifier(rest)
		if gotName == name {
			lineEnd := strings.IndexByte(rest2, '\n')
			consumed := abs + len(kw) + (len(text[abs+len(kw):]) - len(rest2))
			if lineEnd >= 0 {
				return consumed + lineEnd, true
			}
			return len(text), true
		}
		search = abs + len(kw)
	}
}

// findBlock locates `kind name? {` and returns the index of the opening and
// matching closing brace.
func findBlock(text, kind, name string) (open, close int, found bool) {
	search := 0
	for {
		idx := findKeyword(text[search:], kind)
		if idx < 0 {
			return 0, 0, false
		}
		idx += search
		rest := strings.TrimLeft(text[idx+len(kind):], " \t")
		gotName, rest2 := takeIdentifier(rest)
		if name == "" || gotName == name {
			// skip optional "implements ..." clause before the brace
			braceIdx := strings.IndexByte(rest2, '{')
			if braceIdx < 0 {
				search = idx + len(kind)
				continue
			}
			absOpen := idx + len(kind) + (len(rest) - len(rest2)) + braceIdx
			closeIdx, err := findMatchingBrace(text, absOpen)
			if err != nil {
				search = idx + len(kind)
				continue
			}
			return absOpen, closeIdx, true
		}
		search = idx + len(kind)
	}
}

// findMatchingBrace returns the index of the `}` matching the `{` at openIdx.
func findMatchingBrace(text string, openIdx int) (int, error) {
	depth := 0
	inString := false
	triple := false
	for i := openIdx; i < len(text); i++ {
		c := text[i]
		if inString {
			if triple {
				if strings.HasPrefix(text[i:], `"""`) {
					inString = false
					i += 2
				}
			} else if c == '"' && (i == 0 || text[i-1] != '\\') {
				inString = false
			}
			continue
		}
		switch {
		case strings.HasPrefix(text[i:], `"""`):
			inString = true
			triple = true
			i += 2
		case c == '"':
			inString = true
			triple = false
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, &mtcerrors.ValidationError{Rule: "bracket-balance", Reason: "unbalanced braces"}
}

// findKeyword finds the next occurrence of keyword as a standalone word
// (preceded by start-of-string/whitespace/newline, followed by whitespace or
// '{'). String and description literals are not skipped: a keyword inside
// one is found like any other.
func findKeyword(text, keyword string) int {
	for i := 0; i+len(keyword) <= len(text); i++ {
		if text[i:i+len(keyword)] != keyword {
			continue
		}
		if i > 0 {
			prev := text[i-1]
			if prev != '\n' && prev != ' ' && prev != '\t' && prev != '\r' {
				continue
			}
		}
		if i+len(keyword) < len(text) {
			next := text[i+len(keyword)]
			if next != ' ' && next != '\t' && next != '\n' && next != '\r' && next != '{' {
				continue
			}
		}
		return i
	}
	return -1
}

// takeIdentifier reads a leading [A-Za-z_][A-Za-z0-9_]* token and returns it
// plus the remaining string.
func takeIdentifier(s string) (string, string) {
	i := 0
	for i < len(s) && (isIdentStart(s[i]) || (i > 0 && isIdentPart(s[i]))) {
		if i == 0 && !isIdentStart(s[i]) {
			break
		}
		i++
	}
	return s[:i], s[i:]
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// ---------------------------------------------------------------------------
// Type extraction
// ---------------------------------------------------------------------------

func extractSchema(text string) (*Schema, error) {
	s := NewSchema()

	if q, m, sub, ok := parseSchemaBlock(text); ok {
		if q != "" {
			s.QueryTypeName = q
		}
		if m != "" {
			s.MutationTypeName = m
		}
		if sub != "" {
			s.SubscriptionTypeName = sub
		}
	}

	pos := 0
	for pos < len(text) {
		kw, kwIdx := nextKeywordAt(text, pos, "scalar", "type", "interface", "union", "enum", "input", "directive", "schema")
		if kwIdx < 0 {
			break
		}
		desc := leadingDescription(text[:kwIdx])

		switch kw {
		case "scalar":
			name, directives, next, err := parseScalarDecl(text, kwIdx)
			if err != nil {
				return nil, err
			}
			s.Scalars[name] = &ScalarType{Name: name, Directives: directives}
			pos = next

		case "union":
			name, members, directives, next, err := parseUnionDecl(text, kwIdx)
			if err != nil {
				return nil, err
			}
			s.Unions[name] = &UnionType{Name: name, PossibleTypes: members}
			_ = directives
			pos = next

		case "enum":
			name, body, directives, next, err := parseBracedDecl(text, kwIdx, "enum")
			if err != nil {
				return nil, err
			}
			values, err := parseEnumValues(body)
			if err != nil {
				return nil, err
			}
			s.Enums[name] = &EnumType{Name: name, Values: values}
			_ = directives
			pos = next

		case "input":
			name, body, directives, next, err := parseBracedDecl(text, kwIdx, "input")
			if err != nil {
				return nil, err
			}
			fields, err := parseInputFields(body)
			if err != nil {
				return nil, err
			}
			s.InputTypes[name] = &InputObjectType{Name: name, Description: desc, Fields: fields}
			_ = directives
			pos = next

		case "interface":
			name, body, implements, directives, next, err := parseObjectLikeDecl(text, kwIdx, "interface")
			if err != nil {
				return nil, err
			}
			fields, err := parseObjectFields(body)
			if err != nil {
				return nil, err
			}
			s.Interfaces[name] = &InterfaceType{Name: name, Fields: fields}
			_ = implements
			_ = directives
			pos = next

		case "type":
			name, body, implements, directives, next, err := parseObjectLikeDecl(text, kwIdx, "type")
			if err != nil {
				return nil, err
			}
			switch name {
			case s.QueryTypeName:
				ops, err := parseOperations(body, KindQuery)
				if err != nil {
					return nil, err
				}
				s.Operations = append(s.Operations, ops...)
			case s.MutationTypeName:
				ops, err := parseOperations(body, KindMutation)
				if err != nil {
					return nil, err
				}
				s.Operations = append(s.Operations, ops...)
			case s.SubscriptionTypeName:
				ops, err := parseOperations(body, KindSubscription)
				if err != nil {
					return nil, err
				}
				s.Operations = append(s.Operations, ops...)
			default:
				fields, err := parseObjectFields(body)
				if err != nil {
					return nil, err
				}
				s.Objects[name] = &ObjectType{Name: name, Implements: implements, Fields: fields, Directives: directives}
			}
			pos = next

		case "directive":
			def, next, err := parseDirectiveDefinition(text, kwIdx)
			if err != nil {
				return nil, err
			}
			if s.CustomDirectives == nil {
				s.CustomDirectives = make(map[string]DirectiveDef)
			}
			s.CustomDirectives[def.Name] = def
			pos = next

		case "schema":
			_, _, close, err := parseBraceBody(text, kwIdx)
			if err != nil {
				return nil, err
			}
			pos = close + 1

		default:
			pos = kwIdx + len(kw)
		}
	}

	return s, nil
}

// nextKeywordAt finds the earliest occurrence, at or after pos, of any of
// keywords as a standalone word, as findKeyword matches it (string and
// description literals are not skipped).
func nextKeywordAt(text string, pos int, keywords ...string) (string, int) {
	best := -1
	bestKw := ""
	for _, kw := range keywords {
		idx := findKeyword(text[pos:], kw)
		if idx < 0 {
			continue
		}
		abs := pos + idx
		if best == -1 || abs < best {
			best = abs
			bestKw = kw
		}
	}
	return bestKw, best
}

// leadingDescription extracts a trailing `"""..."""` or `"..."` description
// string immediately preceding (modulo whitespace) the end of prefix.
func leadingDescription(prefix string) string {
	trimmed := strings.TrimRight(prefix, " \t\r\n")
	if strings.HasSuffix(trimmed, `"""`) {
		body := trimmed[:len(trimmed)-3]
		start := strings.LastIndex(body, `"""`)
		if start >= 0 {
			return strings.TrimSpace(body[start+3:])
		}
	}
	if strings.HasSuffix(trimmed, `"`) && len(trimmed) >= 2 {
		body := trimmed[:len(trimmed)-1]
		start := strings.LastIndex(body, `"`)
		if start >= 0 && (start == 0 || body[start-1] != '\\') {
			return body[start+1:]
		}
	}
	return ""
}

func parseBraceBody(text string, kwIdx int) (name, body string, closeIdx int, err error) {
	rest := text[kwIdx:]
	braceRel := strings.IndexByte(rest, '{')
	if braceRel < 0 {
		return "", "", 0, &mtcerrors.ValidationError{Rule: "bracket-balance", Reason: "missing opening brace"}
	}
	open := kwIdx + braceRel
	close, err := findMatchingBrace(text, open)
	if err != nil {
		return "", "", 0, err
	}
	return "", text[open+1 : close], close, nil
}

func parseScalarDecl(text string, kwIdx int) (name string, directives []Directive, next int, err error) {
	rest := text[kwIdx+len("scalar"):]
	rest = strings.TrimLeft(rest, " \t")
	name, rest = takeIdentifier(rest)
	if name == "" {
		return "", nil, 0, &mtcerrors.ValidationError{Rule: "syntax", Reason: "scalar missing name"}
	}
	lineEnd := strings.IndexByte(rest, '\n')
	line := rest
	consumed := kwIdx + len("scalar") + (len(text[kwIdx+len("scalar"):]) - len(rest))
	if lineEnd >= 0 {
		line = rest[:lineEnd]
		consumed += lineEnd
	} else {
		consumed = len(text)
	}
	directives, _ = parseDirectives(line)
	return name, directives, consumed, nil
}

func parseUnionDecl(text string, kwIdx int) (name string, members []string, directives []Directive, next int, err error) {
	rest := text[kwIdx+len("union"):]
	rest = strings.TrimLeft(rest, " \t")
	name, rest = takeIdentifier(rest)
	if name == "" {
		return "", nil, nil, 0, &mtcerrors.ValidationError{Rule: "syntax", Reason: "union missing name"}
	}
	// consume up to next top-level keyword/blank separation: read to end of
	// the `= A | B | C` chain, which continues across lines that begin with
	// a leading `|`.
	i := 0
	for i < len(rest) {
		c := rest[i]
		if c == '\n' {
			// peek ahead: if the next non-space content doesn't start with
			// '|' or '=', the union list ends here.
			j := i + 1
			for j < len(rest) && (rest[j] == ' ' || rest[j] == '\t' || rest[j] == '\r') {
				j++
			}
			if j >= len(rest) || (rest[j] != '|' && rest[j] != '=') {
				break
			}
		}
		i++
	}
	line := rest[:i]
	next = kwIdx + len("union") + (len(text[kwIdx+len("union"):]) - len(rest)) + i
	eq := strings.IndexByte(line, '=')
	if eq < 0 {
		return "", nil, nil, 0, &mtcerrors.ValidationError{Rule: "syntax", Symbol: name, Reason: "union missing member list"}
	}
	memberPart := line[eq+1:]
	for _, m := range strings.Split(memberPart, "|") {
		m = strings.TrimSpace(m)
		if m != "" {
			members = append(members, m)
		}
	}
	return name, members, nil, next, nil
}

func parseBracedDecl(text string, kwIdx int, kw string) (name, body string, directives []Directive, next int, err error) {
	rest := text[kwIdx+len(kw):]
	rest = strings.TrimLeft(rest, " \t")
	name, rest = takeIdentifier(rest)
	if name == "" {
		return "", "", nil, 0, &mtcerrors.ValidationError{Rule: "syntax", Reason: kw + " missing name"}
	}
	braceRel := strings.IndexByte(rest, '{')
	if braceRel < 0 {
		return "", "", nil, 0, &mtcerrors.ValidationError{Rule: "bracket-balance", Symbol: name, Reason: kw + " missing body"}
	}
	preBrace := rest[:braceRel]
	directives, _ = parseDirectives(preBrace)
	open := kwIdx + len(kw) + (len(text[kwIdx+len(kw):]) - len(rest)) + braceRel
	close, err := findMatchingBrace(text, open)
	if err != nil {
		return "", "", nil, 0, err
	}
	return name, text[open+1 : close], directives, close + 1, nil
}

func parseObjectLikeDecl(text string, kwIdx int, kw string) (name, body string, implements []string, directives []Directive, next int, err error) {
	rest := text[kwIdx+len(kw):]
	rest = strings.TrimLeft(rest, " \t")
	name, rest = takeIdentifier(rest)
	if name == "" {
		return "", "", nil, nil, 0, &mtcerrors.ValidationError{Rule: "syntax", Reason: kw + " missing name"}
	}
	rest = strings.TrimLeft(rest, " \t")
	if strings.HasPrefix(rest, "implements") {
		rest = rest[len("implements"):]
		braceRel := strings.IndexByte(rest, '{')
		clause := rest
		if braceRel >= 0 {
			clause = rest[:braceRel]
		}
		for _, part := range strings.FieldsFunc(clause, func(r rune) bool { return r == '&' || r == ' ' || r == '\t' || r == '\n' || r == '\r' }) {
			part = strings.TrimSpace(part)
			if part != "" {
				implements = append(implements, part)
			}
		}
		if braceRel >= 0 {
			rest = rest[braceRel:]
		}
	}
	braceRel := strings.IndexByte(rest, '{')
	if braceRel < 0 {
		return "", "", nil, nil, 0, &mtcerrors.ValidationError{Rule: "bracket-balance", Symbol: name, Reason: kw + " missing body"}
	}
	preBrace := rest[:braceRel]
	directives, _ = parseDirectives(preBrace)
	consumedPrefix := kwIdx + len(kw) + (len(text[kwIdx+len(kw):]) - len(rest))
	open := consumedPrefix + braceRel
	close, err := findMatchingBrace(text, open)
	if err != nil {
		return "", "", nil, nil, 0, err
	}
	return name, text[open+1 : close], implements, directives, close + 1, nil
}

func parseSchemaBlock(text string) (query, mutation, subscription string, ok bool) {
	idx := findKeyword(text, "schema")
	for idx >= 0 {
		rest := text[idx+len("schema"):]
		braceRel := strings.IndexByte(strings.TrimLeft(rest, " \t\n\r"), '{')
		trimmed := strings.TrimLeft(rest, " \t\n\r")
		if braceRel != 0 {
			next := findKeyword(rest, "schema")
			if next < 0 {
				return "", "", "", false
			}
			idx += len("schema") + next
			continue
		}
		open := idx + len("schema") + (len(rest) - len(trimmed))
		close, err := findMatchingBrace(text, open)
		if err != nil {
			return "", "", "", false
		}
		body := text[open+1 : close]
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			parts := strings.SplitN(line, ":", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			val := strings.TrimSpace(parts[1])
			switch key {
			case "query":
				query = val
			case "mutation":
				mutation = val
			case "subscription":
				subscription = val
			}
		}
		return query, mutation, subscription, true
	}
	return "", "", "", false
}

func parseDirectiveDefinition(text string, kwIdx int) (DirectiveDef, int, error) {
	rest := text[kwIdx+len("directive"):]
	rest = strings.TrimLeft(rest, " \t")
	if !strings.HasPrefix(rest, "@") {
		return DirectiveDef{}, 0, &mtcerrors.ValidationError{Rule: "syntax", Reason: "directive definition missing @name"}
	}
	rest = rest[1:]
	name, rest2 := takeIdentifier(rest)
	if name == "" {
		return DirectiveDef{}, 0, &mtcerrors.ValidationError{Rule: "syntax", Reason: "directive definition missing name"}
	}

	var argNames []string
	trimmed := strings.TrimLeft(rest2, " \t")
	if strings.HasPrefix(trimmed, "(") {
		close := matchingParen(trimmed, 0)
		if close < 0 {
			return DirectiveDef{}, 0, &mtcerrors.ValidationError{Rule: "bracket-balance", Symbol: name, Reason: "unbalanced parens in directive args"}
		}
		argList := trimmed[1:close]
		for _, a := range splitArguments(argList) {
			a = strings.TrimSpace(a)
			if a == "" {
				continue
			}
			argName, _ := takeIdentifier(a)
			if argName != "" {
				argNames = append(argNames, argName)
			}
		}
		rest2 = trimmed[close+1:]
	}

	repeatable := false
	if strings.Contains(rest2, "repeatable") {
		repeatable = true
	}

	onIdx := strings.Index(rest2, " on ")
	var locations []string
	lineEnd := strings.IndexByte(rest2, '\n')
	if lineEnd < 0 {
		lineEnd = len(rest2)
	}
	if onIdx >= 0 && onIdx < lineEnd {
		locPart := rest2[onIdx+4 : lineEnd]
		for _, l := range strings.Split(locPart, "|") {
			l = strings.TrimSpace(l)
			if l != "" {
				locations = append(locations, l)
			}
		}
	}

	consumed := kwIdx + len("directive") + (len(text[kwIdx+len("directive"):]) - len(rest2)) + lineEnd
	return DirectiveDef{Name: name, Locations: locations, Repeatable: repeatable, ArgNames: argNames}, consumed, nil
}

// ---------------------------------------------------------------------------
// Directives
// ---------------------------------------------------------------------------

// parseDirectives scans s for every `@name` or `@name(k: v, ...)` occurrence
// and returns them in order, along with s with the directive text removed.
func parseDirectives(s string) ([]Directive, string) {
	var out []Directive
	var b strings.Builder
	i := 0
	for i < len(s) {
		if s[i] != '@' {
			b.WriteByte(s[i])
			i++
			continue
		}
		rest := s[i+1:]
		name, rest2 := takeIdentifier(rest)
		if name == "" {
			b.WriteByte(s[i])
			i++
			continue
		}
		consumed := 1 + (len(rest) - len(rest2))
		args := map[string]any{}
		trimmed := strings.TrimLeft(rest2, " \t")
		if strings.HasPrefix(trimmed, "(") {
			close := matchingParen(trimmed, 0)
			if close >= 0 {
				argList := trimmed[1:close]
				for _, a := range splitArguments(argList) {
					k, v, ok := splitArgKV(a)
					if ok {
						args[k] = decodeLiteral(v)
					}
				}
				consumed += (len(rest2) - len(trimmed)) + close + 1
			}
		}
		out = append(out, Directive{
			Name:         name,
			Arguments:    args,
			IsRepeatable: directiveRepeatable(name),
		})
		i += consumed
	}
	return out, b.String()
}

func directiveRepeatable(name string) bool {
	if d, ok := builtinDirectiveDefs[name]; ok {
		return d.Repeatable
	}
	return true
}

func splitArgKV(s string) (key, value string, ok bool) {
	colon := findTopLevelColon(s)
	if colon < 0 {
		return "", "", false
	}
	return strings.TrimSpace(s[:colon]), strings.TrimSpace(s[colon+1:]), true
}

// decodeLiteral interprets a raw directive-argument value token as a string,
// boolean, integer, or float by literal inspection, falling back to the raw
// string for anything else (including quoted strings, with quotes removed).
func decodeLiteral(raw string) any {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return raw[1 : len(raw)-1]
	}
	switch raw {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if i, err := strconv.Atoi(raw); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// ---------------------------------------------------------------------------
// Object/interface fields (non-root)
// ---------------------------------------------------------------------------

func parseObjectFields(body string) ([]ObjectField, error) {
	defs := splitTopLevelFields(body)
	var out []ObjectField
	for _, d := range defs {
		if strings.TrimSpace(d) == "" {
			continue
		}
		f, err := parseFieldDefinition(d)
		if err != nil {
			return nil, err
		}
		out = append(out, ObjectField{Name: f.Name, FieldType: f.ReturnType, Arguments: f.Arguments, Directives: f.Directives})
	}
	return out, nil
}

func parseOperations(body string, kind OperationKind) ([]Operation, error) {
	defs := splitTopLevelFields(body)
	var out []Operation
	for _, d := range defs {
		if strings.TrimSpace(d) == "" {
			continue
		}
		f, err := parseFieldDefinition(d)
		if err != nil {
			return nil, err
		}
		out = append(out, Operation{
			Name:        f.Name,
			Kind:        kind,
			Description: f.Description,
			Arguments:   f.Arguments,
			ReturnType:  f.ReturnType,
			Directives:  f.Directives,
		})
	}
	return out, nil
}

// parsedField is the shared intermediate result of parsing one field or
// operation definition.
type parsedField struct {
	Name        string
	Description string
	Arguments   []Argument
	ReturnType  string
	Directives  []Directive
}

// parseFieldDefinition parses a single field/operation definition of the
// form:
//
//	["desc"] name(arg: Type, ...): ReturnType @directive(...)
//
// The return-type colon is the rightmost colon outside both parentheses and
// any trailing directive's parens.
func parseFieldDefinition(raw string) (parsedField, error) {
	s := raw
	desc := ""
	s = strings.TrimLeft(s, " \t\r\n")
	if strings.HasPrefix(s, `"""`) {
		end := strings.Index(s[3:], `"""`)
		if end >= 0 {
			desc = strings.TrimSpace(s[3 : 3+end])
			s = s[3+end+3:]
		}
	} else if strings.HasPrefix(s, `"`) {
		end := strings.Index(s[1:], `"`)
		if end >= 0 {
			desc = s[1 : 1+end]
			s = s[1+end+1:]
		}
	}
	s = strings.TrimSpace(s)

	name, rest := takeIdentifier(s)
	if name == "" {
		return parsedField{}, &mtcerrors.ValidationError{Rule: "syntax", Reason: "field definition missing name: " + strings.TrimSpace(raw)}
	}
	rest = strings.TrimLeft(rest, " \t")

	var args []Argument
	if strings.HasPrefix(rest, "(") {
		close := matchingParen(rest, 0)
		if close < 0 {
			return parsedField{}, &mtcerrors.ValidationError{Rule: "bracket-balance", Symbol: name, Reason: "unbalanced parens in argument list"}
		}
		argList := rest[1:close]
		for _, a := range splitArguments(argList) {
			if strings.TrimSpace(a) == "" {
				continue
			}
			arg, err := parseArgument(a)
			if err != nil {
				return parsedField{}, err
			}
			args = append(args, arg)
		}
		rest = rest[close+1:]
	}

	colon := findTopLevelColon(rest)
	if colon < 0 {
		return parsedField{}, &mtcerrors.ValidationError{Rule: "syntax", Symbol: name, Reason: "field missing return type"}
	}
	typeAndDirectives := strings.TrimSpace(rest[colon+1:])
	directives, typeStr := parseDirectives(typeAndDirectives)
	returnType, _ := ParseType(strings.TrimSpace(typeStr))

	return parsedField{Name: name, Description: desc, Arguments: args, ReturnType: returnType, Directives: directives}, nil
}

// findTopLevelColon returns the index of the rightmost colon in s that is
// outside of parentheses and outside of any `@directive(...)` usage.
func findTopLevelColon(s string) int {
	depth := 0
	last := -1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ':':
			if depth == 0 {
				last = i
			}
		}
	}
	return last
}

func matchingParen(s string, openIdx int) int {
	depth := 0
	inString := false
	for i := openIdx; i < len(s); i++ {
		c := s[i]
		if inString {
			if c == '"' && s[i-1] != '\\' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseArgument parses a single `name: Type [= default] [@directive]`
// argument or input-object field definition, with an optional leading
// description.
func parseArgument(raw string) (Argument, error) {
	s := strings.TrimSpace(raw)
	desc := ""
	if strings.HasPrefix(s, `"""`) {
		end := strings.Index(s[3:], `"""`)
		if end >= 0 {
			desc = strings.TrimSpace(s[3 : 3+end])
			s = strings.TrimSpace(s[3+end+3:])
		}
	} else if strings.HasPrefix(s, `"`) {
		end := strings.Index(s[1:], `"`)
		if end >= 0 {
			desc = s[1 : 1+end]
			s = strings.TrimSpace(s[1+end+1:])
		}
	}

	colon := strings.IndexByte(s, ':')
	if colon < 0 {
		return Argument{}, &mtcerrors.ValidationError{Rule: "syntax", Reason: "argument missing type: " + raw}
	}
	name := strings.TrimSpace(s[:colon])
	rest := strings.TrimSpace(s[colon+1:])

	directives, rest2 := parseDirectives(rest)
	rest2 = strings.TrimSpace(rest2)

	typeStr, defaultRaw, hasDefault := splitDefault(rest2)
	normalized, required := ParseType(typeStr)

	var defaultValue any
	if hasDefault {
		defaultValue = decodeLiteral(defaultRaw)
	}

	return Argument{
		Name:         name,
		ArgType:      normalized,
		Description:  desc,
		Required:     required,
		DefaultValue: defaultValue,
		HasDefault:   hasDefault,
		Directives:   directives,
	}, nil
}

// splitDefault splits "Type = value" into ("Type", "value", true), or
// ("Type", "", false) if there is no default, respecting that a `=` never
// appears inside the bare type string itself.
func splitDefault(s string) (typeStr, defaultVal string, hasDefault bool) {
	idx := strings.IndexByte(s, '=')
	if idx < 0 {
		return strings.TrimSpace(s), "", false
	}
	return strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+1:]), true
}

// splitTopLevelFields splits a type/interface body into individual field
// definitions. Fields start at indentation <= 2 leading spaces (relative to
// the body's own indentation baseline); deeper indentation is part of the
// previous field's (multi-line) argument list. Leading description strings
// are attached to the field that follows them.
func splitTopLevelFields(body string) []string {
	lines := strings.Split(body, "\n")
	var fields []string
	var current strings.Builder
	var pendingDesc strings.Builder
	inTripleDesc := false

	flush := func() {
		if current.Len() > 0 {
			fields = append(fields, pendingDesc.String()+current.String())
			current.Reset()
			pendingDesc.Reset()
		}
	}

	baseIndent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				current.WriteByte('\n')
			}
			continue
		}
		indent := leadingSpaces(line)
		if baseIndent == -1 && !inTripleDesc {
			baseIndent = indent
		}

		trimmedLine := strings.TrimSpace(line)
		if inTripleDesc {
			pendingDesc.WriteString(line)
			pendingDesc.WriteByte('\n')
			if strings.Contains(trimmedLine, `"""`) && trimmedLine != `"""` || strings.Count(trimmedLine, `"""`) >= 1 {
				if strings.HasSuffix(trimmedLine, `"""`) {
					inTripleDesc = false
				}
			}
			continue
		}
		if strings.HasPrefix(trimmedLine, `"""`) && !(strings.HasSuffix(trimmedLine, `"""`) && len(trimmedLine) > 3) {
			flush()
			pendingDesc.WriteString(line)
			pendingDesc.WriteByte('\n')
			inTripleDesc = true
			continue
		}
		if strings.HasPrefix(trimmedLine, `"`) && !strings.HasPrefix(trimmedLine, `"""`) {
			flush()
			pendingDesc.WriteString(line)
			pendingDesc.WriteByte('\n')
			continue
		}

		if indent <= baseIndent+2 && current.Len() > 0 {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	flush()
	return fields
}

func leadingSpaces(line string) int {
	n := 0
	for _, c := range line {
		if c == ' ' {
			n++
		} else if c == '\t' {
			n += 2
		} else {
			break
		}
	}
	return n
}

// splitArguments splits a comma-separated argument or field list,
// respecting bracket/paren/brace/quote nesting. Newlines act as separators
// only at depth 0 (so a multi-line argument list without commas still
// splits correctly).
func splitArguments(s string) []string {
	var out []string
	depth := 0
	inString := false
	triple := false
	start := 0
	i := 0
	for i < len(s) {
		c := s[i]
		if inString {
			if triple {
				if strings.HasPrefix(s[i:], `"""`) {
					inString = false
					i += 3
					continue
				}
			} else if c == '"' && s[i-1] != '\\' {
				inString = false
			}
			i++
			continue
		}
		switch {
		case strings.HasPrefix(s[i:], `"""`):
			inString = true
			triple = true
			i += 3
			continue
		case c == '"':
			inString = true
			triple = false
		case c == '(', c == '[', c == '{':
			depth++
		case c == ')', c == ']', c == '}':
			depth--
		case c == ',' && depth == 0:
			out = append(out, s[start:i])
			start = i + 1
		case c == '\n' && depth == 0:
			piece := strings.TrimSpace(s[start:i])
			if piece != "" {
				out = append(out, s[start:i])
				start = i + 1
			} else {
				start = i + 1
			}
		}
		i++
	}
	if strings.TrimSpace(s[start:]) != "" {
		out = append(out, s[start:])
	}
	return out
}

// ---------------------------------------------------------------------------
// Enum values and input-object fields
// ---------------------------------------------------------------------------

func parseEnumValues(body string) ([]EnumValue, error) {
	var out []EnumValue
	for _, raw := range splitArguments(strings.ReplaceAll(body, ",", "\n")) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		directives, rest := parseDirectives(line)
		name, _ := takeIdentifier(strings.TrimSpace(rest))
		if name == "" {
			continue
		}
		ev := EnumValue{Name: name}
		for _, d := range directives {
			if d.Name == "deprecated" {
				ev.Deprecated = true
				if r, ok := d.Arguments["reason"].(string); ok {
					ev.DeprecationReason = r
				}
			}
		}
		out = append(out, ev)
	}
	return out, nil
}

func parseInputFields(body string) ([]InputObjectField, error) {
	defs := splitTopLevelFields(body)
	var out []InputObjectField
	for _, d := range defs {
		if strings.TrimSpace(d) == "" {
			continue
		}
		arg, err := parseArgument(d)
		if err != nil {
			return nil, err
		}
		out = append(out, InputObjectField{
			Name:         arg.Name,
			FieldType:    arg.ArgType,
			Required:     arg.Required,
			DefaultValue: arg.DefaultValue,
			HasDefault:   arg.HasDefault,
			Description:  arg.Description,
		})
	}
	return out, nil
}
