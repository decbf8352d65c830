package schema

import (
	"fmt"
	"sort"
	"strings"

	language "github.com/hanpama/reqgraph/internal/language"
)

// BuildFromSDL parses and validates SDL with gqlparser and converts the result
// into an executable Schema. The validated AST is kept on the schema so the
// transport can validate incoming documents against it.
func BuildFromSDL(name, sdl string) (*Schema, error) {
	def, err := language.LoadSchema(name, sdl)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", name, err)
	}
	return BuildFromAST(def)
}

// BuildFromAST converts a validated gqlparser schema. Introspection types and
// prelude directives other than @skip and @include are left out; the
// introspection package adds its own.
func BuildFromAST(def *language.SchemaDefinition) (*Schema, error) {
	if def == nil || def.Query == nil {
		return nil, fmt.Errorf("schema has no query type")
	}
	s := NewSchema(def.Description)
	s.SetQueryType(def.Query.Name)
	if def.Mutation != nil {
		s.SetMutationType(def.Mutation.Name)
	}
	if def.Subscription != nil {
		s.SetSubscriptionType(def.Subscription.Name)
	}
	s.AST = def
	s.AddBuiltins()

	for _, d := range def.Types {
		if strings.HasPrefix(d.Name, "__") || IsBuiltinScalar(d.Name) {
			continue
		}
		t, err := buildDefinition(def, d)
		if err != nil {
			return nil, err
		}
		s.AddType(t)
	}
	for _, d := range def.Directives {
		if isPreludeDirective(d.Name) {
			continue
		}
		dir, err := buildDirective(d)
		if err != nil {
			return nil, err
		}
		s.AddDirective(dir)
	}
	return s, nil
}

// IntrospectionTypes converts the introspection types (__Schema, __Type and
// friends) declared by the gqlparser prelude.
func IntrospectionTypes() ([]*Type, error) {
	def, err := language.LoadSchema("prelude", "type Query { ok: Boolean }")
	if err != nil {
		return nil, err
	}
	var out []*Type
	for _, d := range def.Types {
		if !strings.HasPrefix(d.Name, "__") {
			continue
		}
		t, err := buildDefinition(def, d)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func buildDefinition(sch *language.SchemaDefinition, d *language.Definition) (*Type, error) {
	switch d.Kind {
	case language.Object, language.Interface:
		kind := TypeKindObject
		if d.Kind == language.Interface {
			kind = TypeKindInterface
		}
		t := NewType(d.Name, kind, d.Description)
		for _, name := range d.Interfaces {
			t.AddInterface(name)
		}
		for _, fd := range d.Fields {
			if strings.HasPrefix(fd.Name, "__") {
				continue
			}
			f, err := buildField(fd)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", d.Name, fd.Name, err)
			}
			t.AddField(f)
		}
		if kind == TypeKindInterface {
			for _, impl := range sch.PossibleTypes[d.Name] {
				if impl.Kind == language.Object {
					t.AddPossibleType(impl.Name)
				}
			}
		}
		return t, nil
	case language.Union:
		t := NewType(d.Name, TypeKindUnion, d.Description)
		for _, name := range d.Types {
			t.AddPossibleType(name)
		}
		return t, nil
	case language.Enum:
		t := NewType(d.Name, TypeKindEnum, d.Description)
		for _, ev := range d.EnumValues {
			v := NewEnumValue(ev.Name, ev.Description)
			if reason, ok := deprecation(ev.Directives); ok {
				v.Deprecate(reason)
			}
			t.AddEnumValue(v)
		}
		return t, nil
	case language.InputObject:
		t := NewType(d.Name, TypeKindInputObject, d.Description)
		t.OneOf = d.Directives.ForName("oneOf") != nil
		for _, fd := range d.Fields {
			iv, err := buildInputValue(fd.Name, fd.Description, fd.Type, fd.DefaultValue, fd.Directives)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", d.Name, fd.Name, err)
			}
			t.AddInputField(iv)
		}
		return t, nil
	case language.Scalar:
		t := NewType(d.Name, TypeKindScalar, d.Description)
		if dir := d.Directives.ForName("specifiedBy"); dir != nil {
			if arg := dir.Arguments.ForName("url"); arg != nil && arg.Value != nil {
				url := arg.Value.Raw
				t.SpecifiedByURL = &url
			}
		}
		return t, nil
	}
	return nil, fmt.Errorf("unsupported definition kind %q for %s", d.Kind, d.Name)
}

func buildField(fd *language.FieldDefinition) (*Field, error) {
	f := NewField(fd.Name, fd.Description, buildTypeRef(fd.Type))
	if reason, ok := deprecation(fd.Directives); ok {
		f.Deprecate(reason)
	}
	for _, ad := range fd.Arguments {
		iv, err := buildInputValue(ad.Name, ad.Description, ad.Type, ad.DefaultValue, ad.Directives)
		if err != nil {
			return nil, err
		}
		f.AddArgument(iv)
	}
	return f, nil
}

func buildInputValue(name, desc string, typ *language.Type, def *language.Value, dirs language.DirectiveList) (*InputValue, error) {
	iv := NewInputValue(name, desc, buildTypeRef(typ))
	if def != nil {
		v, err := def.Value(nil)
		if err != nil {
			return nil, fmt.Errorf("default value of %s: %w", name, err)
		}
		iv.DefaultValue = v
	}
	if reason, ok := deprecation(dirs); ok {
		iv.IsDeprecated = true
		iv.DeprecationReason = reason
	}
	return iv, nil
}

func buildDirective(d *language.DirectiveDefinition) (*Directive, error) {
	dir := NewDirective(d.Name, d.Description)
	dir.IsRepeatable = d.IsRepeatable
	for _, loc := range d.Locations {
		dir.Locations = append(dir.Locations, string(loc))
	}
	for _, ad := range d.Arguments {
		iv, err := buildInputValue(ad.Name, ad.Description, ad.Type, ad.DefaultValue, ad.Directives)
		if err != nil {
			return nil, fmt.Errorf("@%s: %w", d.Name, err)
		}
		dir.Arguments = append(dir.Arguments, iv)
	}
	return dir, nil
}

func buildTypeRef(t *language.Type) *TypeRef {
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(buildTypeRef(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		ref = NonNullType(ref)
	}
	return ref
}

const defaultDeprecationReason = "No longer supported"

func deprecation(dirs language.DirectiveList) (string, bool) {
	d := dirs.ForName("deprecated")
	if d == nil {
		return "", false
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw, true
	}
	return defaultDeprecationReason, true
}

// NewSchema returns an empty schema with the given description.
func NewSchema(description string) *Schema {
	return &Schema{
		Types:       map[string]*Type{},
		Directives:  map[string]*Directive{},
		Description: description,
	}
}

func (s *Schema) SetQueryType(name string) *Schema        { s.QueryType = name; return s }
func (s *Schema) SetMutationType(name string) *Schema     { s.MutationType = name; return s }
func (s *Schema) SetSubscriptionType(name string) *Schema { s.SubscriptionType = name; return s }

func (s *Schema) AddType(t *Type) *Schema {
	s.Types[t.Name] = t
	return s
}

func (s *Schema) AddDirective(d *Directive) *Schema {
	s.Directives[d.Name] = d
	return s
}

func NewType(name string, kind TypeKind, description string) *Type {
	return &Type{Name: name, Kind: kind, Description: description}
}

func (t *Type) AddField(f *Field) *Type {
	t.Fields = append(t.Fields, f)
	return t
}

func (t *Type) AddInterface(name string) *Type {
	t.Interfaces = append(t.Interfaces, name)
	return t
}

func (t *Type) AddPossibleType(name string) *Type {
	t.PossibleTypes = append(t.PossibleTypes, name)
	return t
}

func (t *Type) AddEnumValue(v *EnumValue) *Type {
	t.EnumValues = append(t.EnumValues, v)
	return t
}

func (t *Type) AddInputField(v *InputValue) *Type {
	t.InputFields = append(t.InputFields, v)
	return t
}

func NewField(name, description string, typ *TypeRef) *Field {
	return &Field{Name: name, Description: description, Type: typ}
}

func (f *Field) SetAsync(async bool) *Field {
	f.Async = async
	return f
}

func (f *Field) AddArgument(arg *InputValue) *Field {
	f.Arguments = append(f.Arguments, arg)
	return f
}

func (f *Field) Deprecate(reason string) *Field {
	f.IsDeprecated = true
	f.DeprecationReason = reason
	return f
}

func NewInputValue(name, description string, typ *TypeRef) *InputValue {
	return &InputValue{Name: name, Description: description, Type: typ}
}

func (v *InputValue) SetDefault(value any) *InputValue {
	v.DefaultValue = value
	return v
}

func NewEnumValue(name, description string) *EnumValue {
	return &EnumValue{Name: name, Description: description}
}

func (v *EnumValue) Deprecate(reason string) *EnumValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	return v
}

func NewDirective(name, description string) *Directive {
	return &Directive{Name: name, Description: description}
}
