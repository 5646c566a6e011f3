package graphql

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationIssue is a single rule violation found while validating a
// Schema. Severity distinguishes a hard failure from an advisory warning;
// only errors cause Validate to return a non-nil error.
type ValidationIssue struct {
	Rule     string
	Message  string
	Severity string // "error" or "warning"
}

func (i ValidationIssue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Rule, i.Message)
}

// ValidationResult collects every issue found across both rule tiers.
type ValidationResult struct {
	Issues []ValidationIssue
}

func (r *ValidationResult) add(rule, severity, format string, args ...any) {
	r.Issues = append(r.Issues, ValidationIssue{Rule: rule, Severity: severity, Message: fmt.Sprintf(format, args...)})
}

// Errors returns only the error-severity issues.
func (r *ValidationResult) Errors() []ValidationIssue {
	var out []ValidationIssue
	for _, i := range r.Issues {
		if i.Severity == "error" {
			out = append(out, i)
		}
	}
	return out
}

// HasErrors reports whether any issue is error-severity.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors()) > 0
}

const (
	maxTypes          = 1000
	maxFieldsPerType  = 100
	maxListNestDepth  = 10
	minDeprecationLen = 10
)

var nameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate runs the full rule battery against schema: basic structural
// rules first, then the advanced semantic rules, never interleaved. A
// schema that fails a basic rule still runs the advanced tier, so callers
// see every issue in one pass; only the basic-before-advanced ORDERING is
// guaranteed, not early exit.
func Validate(schema *Schema) (*ValidationResult, error) {
	result := &ValidationResult{}

	validateBasic(schema, result)
	validateAdvanced(schema, result)

	if result.HasErrors() {
		return result, fmt.Errorf("graphql: schema validation failed with %d error(s)", len(result.Errors()))
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Basic rules
// ---------------------------------------------------------------------------

func validateBasic(schema *Schema, result *ValidationResult) {
	// Parse turns root type fields into Operations instead of Objects, so a
	// root type counts as defined if either holds it.
	rootDefined := func(name string, kind OperationKind) bool {
		if _, ok := schema.Objects[name]; ok {
			return true
		}
		for _, op := range schema.Operations {
			if op.Kind == kind {
				return true
			}
		}
		return false
	}
	if !rootDefined(schema.QueryTypeName, KindQuery) {
		result.add("root-type-exists", "error", "root query type %q is not defined", schema.QueryTypeName)
	}
	if schema.MutationTypeName != "" {
		if !rootDefined(schema.MutationTypeName, KindMutation) && hasExplicitMutationRef(schema) {
			result.add("root-type-exists", "error", "root mutation type %q is not defined", schema.MutationTypeName)
		}
	}

	for _, op := range schema.Operations {
		checkBalancedBrackets(result, "query", op.Name, op.ReturnType)
		for _, arg := range op.Arguments {
			checkBalancedBrackets(result, "argument", op.Name+"."+arg.Name, arg.ArgType)
		}
	}
	for _, obj := range schema.Objects {
		for _, f := range obj.Fields {
			checkBalancedBrackets(result, "field", obj.Name+"."+f.Name, f.FieldType)
		}
	}
	for _, in := range schema.InputTypes {
		for _, f := range in.Fields {
			checkBalancedBrackets(result, "input field", in.Name+"."+f.Name, f.FieldType)
		}
	}
}

func hasExplicitMutationRef(schema *Schema) bool {
	return schema.MutationTypeName != "Mutation" && schema.MutationTypeName != ""
}

func checkBalancedBrackets(result *ValidationResult, kind, owner, raw string) {
	depth := 0
	for _, c := range raw {
		switch c {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				result.add("malformed-brackets", "error", "%s %q has unbalanced list brackets in type %q", kind, owner, raw)
				return
			}
		}
	}
	if depth != 0 {
		result.add("malformed-brackets", "error", "%s %q has unbalanced list brackets in type %q", kind, owner, raw)
	}
}

// ---------------------------------------------------------------------------
// Advanced rules
// ---------------------------------------------------------------------------

func validateAdvanced(schema *Schema, result *ValidationResult) {
	checkComplexityLimits(schema, result)
	checkReservedNames(schema, result)
	checkEmptyAggregates(schema, result)
	checkArgumentUniqueness(schema, result)
	checkInterfaceCompatibility(schema, result)
	checkExtensionFieldConflicts(schema, result)
	checkInputCircularReferences(schema, result)
	checkTypeReferencesExist(schema, result)
	checkEnumDefaultMembership(schema, result)
	checkNameSyntax(schema, result)
	checkDeprecatedUsage(schema, result)
	checkDirectiveUsage(schema, result)
}

func allTypeNames(schema *Schema) []string {
	names := make([]string, 0, len(schema.Objects)+len(schema.Interfaces)+len(schema.Unions)+len(schema.Enums)+len(schema.InputTypes)+len(schema.Scalars))
	for n := range schema.Objects {
		names = append(names, n)
	}
	for n := range schema.Interfaces {
		names = append(names, n)
	}
	for n := range schema.Unions {
		names = append(names, n)
	}
	for n := range schema.Enums {
		names = append(names, n)
	}
	for n := range schema.InputTypes {
		names = append(names, n)
	}
	for n := range schema.Scalars {
		names = append(names, n)
	}
	return names
}

func checkComplexityLimits(schema *Schema, result *ValidationResult) {
	total := len(allTypeNames(schema))
	if total > maxTypes {
		result.add("complexity-type-count", "error", "schema defines %d types, exceeding the limit of %d", total, maxTypes)
	}
	for name, obj := range schema.Objects {
		if len(obj.Fields) > maxFieldsPerType {
			result.add("complexity-field-count", "error", "type %q defines %d fields, exceeding the limit of %d", name, len(obj.Fields), maxFieldsPerType)
		}
		for _, f := range obj.Fields {
			if depth := listNestingDepth(f.FieldType); depth > maxListNestDepth {
				result.add("complexity-list-depth", "error", "field %s.%s nests lists %d deep, exceeding the limit of %d", name, f.Name, depth, maxListNestDepth)
			}
		}
	}
	for _, op := range schema.Operations {
		if depth := listNestingDepth(op.ReturnType); depth > maxListNestDepth {
			result.add("complexity-list-depth", "error", "operation %s nests lists %d deep, exceeding the limit of %d", op.Name, depth, maxListNestDepth)
		}
	}
}

func listNestingDepth(raw string) int {
	depth, max := 0, 0
	for _, c := range raw {
		switch c {
		case '[':
			depth++
			if depth > max {
				max = depth
			}
		case ']':
			depth--
		}
	}
	return max
}

func checkReservedNames(schema *Schema, result *ValidationResult) {
	for name := range schema.Objects {
		if isIntrospectionMeta(name) {
			result.add("reserved-name", "error", "type %q uses the reserved __ prefix", name)
		}
	}
	for _, op := range schema.Operations {
		if isIntrospectionMeta(op.Name) {
			result.add("reserved-name", "error", "operation %q uses the reserved __ prefix", op.Name)
		}
	}
	for name, obj := range schema.Objects {
		for _, f := range obj.Fields {
			if isIntrospectionMeta(f.Name) {
				result.add("reserved-name", "error", "field %s.%s uses the reserved __ prefix", name, f.Name)
			}
		}
	}
}

func checkEmptyAggregates(schema *Schema, result *ValidationResult) {
	for name, obj := range schema.Objects {
		if len(obj.Fields) == 0 {
			result.add("empty-aggregate", "error", "type %q declares no fields", name)
		}
	}
	for name, iface := range schema.Interfaces {
		if len(iface.Fields) == 0 {
			result.add("empty-aggregate", "error", "interface %q declares no fields", name)
		}
	}
	for name, in := range schema.InputTypes {
		if len(in.Fields) == 0 {
			result.add("empty-aggregate", "error", "input %q declares no fields", name)
		}
	}
	for name, enum := range schema.Enums {
		if len(enum.Values) == 0 {
			result.add("empty-aggregate", "error", "enum %q declares no values", name)
		}
	}
	for name, union := range schema.Unions {
		if len(union.PossibleTypes) == 0 {
			result.add("empty-aggregate", "error", "union %q declares no member types", name)
		}
	}
}

func checkArgumentUniqueness(schema *Schema, result *ValidationResult) {
	checkArgs := func(owner string, args []Argument) {
		seen := map[string]bool{}
		for _, a := range args {
			if seen[a.Name] {
				result.add("duplicate-argument", "error", "%s declares argument %q more than once", owner, a.Name)
			}
			seen[a.Name] = true

			dseen := map[string]bool{}
			for _, d := range a.Directives {
				for k := range d.Arguments {
					key := d.Name + "." + k
					if dseen[key] {
						result.add("duplicate-directive-argument", "error", "%s.%s directive @%s declares argument %q more than once", owner, a.Name, d.Name, k)
					}
					dseen[key] = true
				}
			}
		}
	}
	for _, op := range schema.Operations {
		checkArgs(op.Name, op.Arguments)
	}
	for name, obj := range schema.Objects {
		for _, f := range obj.Fields {
			checkArgs(name+"."+f.Name, f.Arguments)
		}
	}
}

func checkInterfaceCompatibility(schema *Schema, result *ValidationResult) {
	for name, obj := range schema.Objects {
		for _, ifaceName := range obj.Implements {
			iface, ok := schema.Interfaces[ifaceName]
			if !ok {
				result.add("interface-not-found", "error", "type %q implements undefined interface %q", name, ifaceName)
				continue
			}
			objFields := map[string]ObjectField{}
			for _, f := range obj.Fields {
				objFields[f.Name] = f
			}
			for _, ifField := range iface.Fields {
				of, ok := objFields[ifField.Name]
				if !ok {
					result.add("interface-field-missing", "error", "type %q is missing field %q required by interface %q", name, ifField.Name, ifaceName)
					continue
				}
				if !typeCompatibleOverride(ifField.FieldType, of.FieldType) {
					result.add("interface-field-type-mismatch", "error", "type %q field %q has type %q, incompatible with interface %q's %q", name, ifField.Name, of.FieldType, ifaceName, ifField.FieldType)
				}
				checkInterfaceFieldArguments(name, ifaceName, ifField, of, result)
			}
		}
	}
}

// checkInterfaceFieldArguments verifies every argument the interface
// declares on a field is present on the implementing type's field, with an
// identical base type and nullability that is at least as required as the
// interface's.
func checkInterfaceFieldArguments(typeName, ifaceName string, ifField, of ObjectField, result *ValidationResult) {
	implArgs := map[string]Argument{}
	for _, a := range of.Arguments {
		implArgs[a.Name] = a
	}
	for _, ifArg := range ifField.Arguments {
		implArg, ok := implArgs[ifArg.Name]
		if !ok {
			result.add("interface-argument-missing", "error", "type %q field %q is missing argument %q required by interface %q", typeName, ifField.Name, ifArg.Name, ifaceName)
			continue
		}
		if BaseType(implArg.ArgType) != BaseType(ifArg.ArgType) {
			result.add("interface-argument-type-mismatch", "error", "type %q field %q argument %q has type %q, incompatible with interface %q's %q", typeName, ifField.Name, ifArg.Name, implArg.ArgType, ifaceName, ifArg.ArgType)
			continue
		}
		if ifArg.Required && !implArg.Required {
			result.add("interface-argument-nullability-mismatch", "error", "type %q field %q argument %q must be at least as required as interface %q's declaration", typeName, ifField.Name, ifArg.Name, ifaceName)
		}
	}
}

// typeCompatibleOverride reports whether implType is a valid override of
// ifaceType per interface-implementation covariance: base types must match
// exactly at every list-nesting level, and non-null may be added by the
// implementing type but never removed.
func typeCompatibleOverride(ifaceType, implType string) bool {
	ifaceType = strings.TrimSpace(ifaceType)
	implType = strings.TrimSpace(implType)

	ifaceRequired := strings.HasSuffix(ifaceType, "!")
	implRequired := strings.HasSuffix(implType, "!")
	if ifaceRequired && !implRequired {
		return false
	}
	ifaceRest := strings.TrimSuffix(ifaceType, "!")
	implRest := strings.TrimSuffix(implType, "!")

	ifaceIsList := strings.HasPrefix(ifaceRest, "[") && strings.HasSuffix(ifaceRest, "]")
	implIsList := strings.HasPrefix(implRest, "[") && strings.HasSuffix(implRest, "]")
	if ifaceIsList != implIsList {
		return false
	}
	if ifaceIsList {
		return typeCompatibleOverride(ifaceRest[1:len(ifaceRest)-1], implRest[1:len(implRest)-1])
	}
	return ifaceRest == implRest
}

func checkExtensionFieldConflicts(schema *Schema, result *ValidationResult) {
	for name, obj := range schema.Objects {
		seen := map[string]bool{}
		for _, f := range obj.Fields {
			if seen[f.Name] {
				result.add("extension-field-conflict", "error", "type %q declares field %q more than once (possibly via a conflicting extension)", name, f.Name)
			}
			seen[f.Name] = true
		}
	}
	for name, in := range schema.InputTypes {
		seen := map[string]bool{}
		for _, f := range in.Fields {
			if seen[f.Name] {
				result.add("extension-field-conflict", "error", "input %q declares field %q more than once (possibly via a conflicting extension)", name, f.Name)
			}
			seen[f.Name] = true
		}
	}
}

// checkInputCircularReferences walks each input object's non-null,
// non-list field references looking for a cycle; a required field whose
// type eventually requires itself back can never be satisfied.
func checkInputCircularReferences(schema *Schema, result *ValidationResult) {
	for name := range schema.InputTypes {
		visiting := map[string]bool{}
		if cyclePath, found := findInputCycle(schema, name, visiting, nil); found {
			result.add("input-circular-reference", "error", "input type cycle through required fields: %s", strings.Join(cyclePath, " -> "))
		}
	}
}

func findInputCycle(schema *Schema, typeName string, visiting map[string]bool, path []string) ([]string, bool) {
	if visiting[typeName] {
		return append(append([]string{}, path...), typeName), true
	}
	in, ok := schema.InputTypes[typeName]
	if !ok {
		return nil, false
	}
	visiting[typeName] = true
	defer delete(visiting, typeName)
	path = append(path, typeName)

	for _, f := range in.Fields {
		normalized, required := ParseType(f.FieldType)
		if !required || strings.HasPrefix(normalized, "[") {
			continue
		}
		base := BaseType(f.FieldType)
		if _, isInput := schema.InputTypes[base]; !isInput {
			continue
		}
		if cyclePath, found := findInputCycle(schema, base, visiting, path); found {
			return cyclePath, true
		}
	}
	return nil, false
}

// checkTypeReferencesExist ensures every named type referenced by an
// operation, field, or input field is either a built-in scalar or defined
// somewhere in the schema.
func checkTypeReferencesExist(schema *Schema, result *ValidationResult) {
	known := map[string]bool{}
	for _, n := range allTypeNames(schema) {
		known[n] = true
	}
	check := func(owner, raw string) {
		base := BaseType(raw)
		if base == "" || IsBuiltinScalar(base) || known[base] {
			return
		}
		result.add("undefined-type-reference", "error", "%s references undefined type %q", owner, base)
	}
	for _, op := range schema.Operations {
		check(op.Name, op.ReturnType)
		for _, a := range op.Arguments {
			check(op.Name+"."+a.Name, a.ArgType)
		}
	}
	for name, obj := range schema.Objects {
		for _, f := range obj.Fields {
			check(name+"."+f.Name, f.FieldType)
			for _, a := range f.Arguments {
				check(name+"."+f.Name+"."+a.Name, a.ArgType)
			}
		}
	}
	for name, in := range schema.InputTypes {
		for _, f := range in.Fields {
			check(name+"."+f.Name, f.FieldType)
		}
	}
}

func checkEnumDefaultMembership(schema *Schema, result *ValidationResult) {
	checkDefault := func(owner, rawType string, hasDefault bool, value any) {
		if !hasDefault {
			return
		}
		base := BaseType(rawType)
		enum, ok := schema.Enums[base]
		if !ok {
			return
		}
		strVal, ok := value.(string)
		if !ok {
			result.add("enum-default-membership", "error", "%s has a non-string default for enum type %q", owner, base)
			return
		}
		for _, v := range enum.Values {
			if v.Name == strVal {
				return
			}
		}
		result.add("enum-default-membership", "error", "%s default value %q is not a member of enum %q", owner, strVal, base)
	}
	for _, op := range schema.Operations {
		for _, a := range op.Arguments {
			checkDefault(op.Name+"."+a.Name, a.ArgType, a.HasDefault, a.DefaultValue)
		}
	}
	for name, in := range schema.InputTypes {
		for _, f := range in.Fields {
			checkDefault(name+"."+f.Name, f.FieldType, f.HasDefault, f.DefaultValue)
		}
	}
}

func checkNameSyntax(schema *Schema, result *ValidationResult) {
	checkName := func(kind, name string) {
		if !nameRegex.MatchString(name) {
			result.add("invalid-name-syntax", "error", "%s name %q does not match [A-Za-z_][A-Za-z0-9_]*", kind, name)
		}
	}
	for name := range schema.Objects {
		checkName("type", name)
	}
	for name, obj := range schema.Objects {
		for _, f := range obj.Fields {
			checkName("field "+name, f.Name)
		}
	}
	for _, op := range schema.Operations {
		checkName("operation", op.Name)
		for _, a := range op.Arguments {
			checkName("argument "+op.Name, a.Name)
		}
	}
	for name := range schema.Enums {
		checkName("enum", name)
	}
	for name := range schema.InputTypes {
		checkName("input", name)
	}
}

func checkDeprecatedUsage(schema *Schema, result *ValidationResult) {
	checkReason := func(owner, reason string, hasReason bool) {
		if !hasReason {
			return
		}
		if len(strings.TrimSpace(reason)) < minDeprecationLen {
			result.add("deprecated-reason-length", "error", "%s @deprecated reason must be at least %d characters", owner, minDeprecationLen)
		}
	}
	checkDirectives := func(owner string, directives []Directive, allowed bool) {
		for _, d := range directives {
			if d.Name != "deprecated" {
				continue
			}
			if !allowed {
				result.add("deprecated-placement", "error", "@deprecated is not permitted on %s", owner)
			}
			reason, hasReason := d.Arguments["reason"].(string)
			checkReason(owner, reason, hasReason)
		}
	}
	for _, op := range schema.Operations {
		checkDirectives(op.Name, op.Directives, true)
		for _, a := range op.Arguments {
			checkDirectives(op.Name+"."+a.Name, a.Directives, true)
		}
	}
	for name, obj := range schema.Objects {
		for _, f := range obj.Fields {
			checkDirectives(name+"."+f.Name, f.Directives, true)
		}
	}
	for name, enum := range schema.Enums {
		for _, v := range enum.Values {
			if v.Deprecated {
				checkReason(fmt.Sprintf("enum %s.%s", name, v.Name), v.DeprecationReason, v.DeprecationReason != "")
			}
		}
	}
}

// checkDirectiveUsage validates directive usages against their declared
// locations/repeatability (for custom directives) and enforces the
// built-in co-occurrence and argument rules for @skip/@include/@specifiedBy.
func checkDirectiveUsage(schema *Schema, result *ValidationResult) {
	for name := range schema.CustomDirectives {
		if _, isBuiltin := builtinDirectiveDefs[name]; isBuiltin {
			result.add("directive-builtin-redefined", "error", "schema redefines built-in directive @%s", name)
		}
	}

	checkUsage := func(owner, location string, directives []Directive) {
		seenNonRepeatable := map[string]bool{}
		hasSkip, hasInclude := false, false
		for _, d := range directives {
			switch d.Name {
			case "skip", "include":
				if d.Name == "skip" {
					hasSkip = true
				} else {
					hasInclude = true
				}
				if v, ok := d.Arguments["if"]; !ok {
					result.add("directive-skip-include-args", "error", "%s @%s requires a Boolean if argument", owner, d.Name)
				} else if _, ok := v.(bool); !ok {
					result.add("directive-skip-include-args", "error", "%s @%s if argument must be a Boolean", owner, d.Name)
				}
			case "specifiedBy":
				if _, ok := d.Arguments["url"]; !ok {
					result.add("directive-specifiedby-args", "error", "%s @specifiedBy requires a url argument", owner)
				}
			}

			def, isCustom := schema.CustomDirectives[d.Name]
			_, isBuiltin := builtinDirectiveDefs[d.Name]
			if !isCustom && !isBuiltin {
				result.add("directive-undefined", "error", "%s uses undefined directive @%s", owner, d.Name)
				continue
			}
			repeatable := d.IsRepeatable
			var locations []string
			if isCustom {
				repeatable = def.Repeatable
				locations = def.Locations
			} else {
				locations = builtinDirectiveDefs[d.Name].Locations
			}
			if !repeatable {
				if seenNonRepeatable[d.Name] {
					result.add("directive-not-repeatable", "error", "%s uses non-repeatable directive @%s more than once", owner, d.Name)
				}
				seenNonRepeatable[d.Name] = true
			}
			if len(locations) > 0 && !containsLocation(locations, location) {
				result.add("directive-invalid-location", "error", "%s uses @%s which is not valid at location %s", owner, d.Name, location)
			}
		}
		if hasSkip && hasInclude {
			result.add("directive-skip-include-cooccurrence", "error", "%s may not use both @skip and @include", owner)
		}
	}

	for _, op := range schema.Operations {
		checkUsage(op.Name, "FIELD_DEFINITION", op.Directives)
		for _, a := range op.Arguments {
			checkUsage(op.Name+"."+a.Name, "ARGUMENT_DEFINITION", a.Directives)
		}
	}
	for name, obj := range schema.Objects {
		checkUsage(name, "OBJECT", obj.Directives)
		for _, f := range obj.Fields {
			checkUsage(name+"."+f.Name, "FIELD_DEFINITION", f.Directives)
		}
	}
	for name, scalar := range schema.Scalars {
		checkUsage(name, "SCALAR", scalar.Directives)
	}
}

func containsLocation(locations []string, loc string) bool {
	for _, l := range locations {
		if strings.EqualFold(l, loc) {
			return true
		}
	}
	return false
}
