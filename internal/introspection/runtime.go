package introspection

import (
	"context"
	"fmt"
	"sort"
	"strings"

	executor "github.com/hanpama/reqgraph/internal/executor"
	schema "github.com/hanpama/reqgraph/internal/schema"
)

// Wrap returns a Runtime that answers introspection fields from sch, which
// should be the schema returned by Extend. Every other field goes to base.
func Wrap(base executor.Runtime, sch *schema.Schema) executor.Runtime {
	return &runtime{base: base, schema: sch}
}

type runtime struct {
	base   executor.Runtime
	schema *schema.Schema
}

func (r *runtime) ResolveField(ctx context.Context, info executor.ResolveInfo, source any, args map[string]any) (any, error) {
	if info.ParentType == r.schema.QueryType {
		switch info.FieldName {
		case "__schema":
			return r.schema, nil
		case "__type":
			name, _ := args["name"].(string)
			if t := r.schema.Types[name]; t != nil {
				return t, nil
			}
			return nil, nil
		}
	}
	if !strings.HasPrefix(info.ParentType, "__") {
		return r.base.ResolveField(ctx, info, source, args)
	}

	switch src := source.(type) {
	case *schema.Schema:
		return r.schemaField(src, info.FieldName), nil
	case *schema.Type:
		return r.typeField(src, info.FieldName, args), nil
	case *schema.TypeRef:
		return r.wrapperField(src, info.FieldName), nil
	case *schema.Field:
		return r.fieldField(src, info.FieldName, args), nil
	case *schema.InputValue:
		return r.inputValueField(src, info.FieldName), nil
	case *schema.EnumValue:
		return enumValueField(src, info.FieldName), nil
	case *schema.Directive:
		return r.directiveField(src, info.FieldName, args), nil
	}
	return nil, fmt.Errorf("unexpected %T for %s.%s", source, info.ParentType, info.FieldName)
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return r.base.ResolveType(ctx, abstractType, value)
}

func (r *runtime) SerializeLeafValue(ctx context.Context, typ string, value any) (any, error) {
	switch typ {
	case "__TypeKind", "__DirectiveLocation":
		return fmt.Sprint(value), nil
	}
	return r.base.SerializeLeafValue(ctx, typ, value)
}

func (r *runtime) schemaField(sch *schema.Schema, field string) any {
	switch field {
	case "description":
		return nullable(sch.Description)
	case "types":
		out := make([]*schema.Type, 0, len(sch.Types))
		for _, t := range sch.Types {
			out = append(out, t)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out
	case "queryType":
		return r.named(sch.QueryType)
	case "mutationType":
		return r.named(sch.MutationType)
	case "subscriptionType":
		return r.named(sch.SubscriptionType)
	case "directives":
		out := make([]*schema.Directive, 0, len(sch.Directives))
		for _, d := range sch.Directives {
			out = append(out, d)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out
	}
	return nil
}

func (r *runtime) typeField(t *schema.Type, field string, args map[string]any) any {
	switch field {
	case "kind":
		return string(t.Kind)
	case "name":
		return t.Name
	case "description":
		return nullable(t.Description)
	case "specifiedByURL":
		if t.SpecifiedByURL == nil {
			return nil
		}
		return *t.SpecifiedByURL
	case "fields":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil
		}
		out := []*schema.Field{}
		for _, f := range t.Fields {
			if strings.HasPrefix(f.Name, "__") || (f.IsDeprecated && !includeDeprecated(args)) {
				continue
			}
			out = append(out, f)
		}
		return out
	case "interfaces":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil
		}
		return r.namedList(t.Interfaces)
	case "possibleTypes":
		if !t.Kind.IsAbstract() {
			return nil
		}
		return r.namedList(t.PossibleTypes)
	case "enumValues":
		if t.Kind != schema.TypeKindEnum {
			return nil
		}
		out := []*schema.EnumValue{}
		for _, v := range t.EnumValues {
			if v.IsDeprecated && !includeDeprecated(args) {
				continue
			}
			out = append(out, v)
		}
		return out
	case "inputFields":
		if t.Kind != schema.TypeKindInputObject {
			return nil
		}
		return inputValues(t.InputFields, args)
	case "isOneOf":
		if t.Kind != schema.TypeKindInputObject {
			return nil
		}
		return t.OneOf
	}
	// ofType and anything else is null for named types
	return nil
}

// wrapperField answers __Type fields for LIST and NON_NULL wrappers.
func (r *runtime) wrapperField(ref *schema.TypeRef, field string) any {
	switch field {
	case "kind":
		return string(ref.Kind)
	case "ofType":
		return r.typeOf(ref.OfType)
	}
	return nil
}

func (r *runtime) fieldField(f *schema.Field, field string, args map[string]any) any {
	switch field {
	case "name":
		return f.Name
	case "description":
		return nullable(f.Description)
	case "args":
		return inputValues(f.Arguments, args)
	case "type":
		return r.typeOf(f.Type)
	case "isDeprecated":
		return f.IsDeprecated
	case "deprecationReason":
		if !f.IsDeprecated {
			return nil
		}
		return f.DeprecationReason
	}
	return nil
}

func (r *runtime) inputValueField(v *schema.InputValue, field string) any {
	switch field {
	case "name":
		return v.Name
	case "description":
		return nullable(v.Description)
	case "type":
		return r.typeOf(v.Type)
	case "defaultValue":
		if v.DefaultValue == nil {
			return nil
		}
		return schema.FormatValue(r.schema, v.Type, v.DefaultValue)
	case "isDeprecated":
		return v.IsDeprecated
	case "deprecationReason":
		if !v.IsDeprecated {
			return nil
		}
		return v.DeprecationReason
	}
	return nil
}

func enumValueField(v *schema.EnumValue, field string) any {
	switch field {
	case "name":
		return v.Name
	case "description":
		return nullable(v.Description)
	case "isDeprecated":
		return v.IsDeprecated
	case "deprecationReason":
		if !v.IsDeprecated {
			return nil
		}
		return v.DeprecationReason
	}
	return nil
}

func (r *runtime) directiveField(d *schema.Directive, field string, args map[string]any) any {
	switch field {
	case "name":
		return d.Name
	case "description":
		return nullable(d.Description)
	case "isRepeatable":
		return d.IsRepeatable
	case "locations":
		out := make([]any, len(d.Locations))
		for i, l := range d.Locations {
			out[i] = l
		}
		return out
	case "args":
		return inputValues(d.Arguments, args)
	}
	return nil
}

// typeOf maps a type reference to the value introspected as __Type: the
// named type itself, or the wrapper.
func (r *runtime) typeOf(ref *schema.TypeRef) any {
	if ref == nil {
		return nil
	}
	if ref.Kind == schema.TypeRefKindNamed {
		return r.named(ref.Named)
	}
	return ref
}

func (r *runtime) named(name string) any {
	if t := r.schema.Types[name]; t != nil {
		return t
	}
	return nil
}

func (r *runtime) namedList(names []string) []*schema.Type {
	out := make([]*schema.Type, 0, len(names))
	for _, name := range names {
		if t := r.schema.Types[name]; t != nil {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func inputValues(values []*schema.InputValue, args map[string]any) []*schema.InputValue {
	out := []*schema.InputValue{}
	for _, v := range values {
		if v.IsDeprecated && !includeDeprecated(args) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func includeDeprecated(args map[string]any) bool {
	b, _ := args["includeDeprecated"].(bool)
	return b
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
