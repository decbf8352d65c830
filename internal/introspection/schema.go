package introspection

import (
	"fmt"

	schema "github.com/hanpama/reqgraph/internal/schema"
)

// Extend returns a copy of sch with the introspection types and the
// __schema and __type root fields added. sch itself is not modified.
func Extend(sch *schema.Schema) (*schema.Schema, error) {
	queryType := sch.GetQueryType()
	if queryType == nil {
		return nil, fmt.Errorf("schema has no query type")
	}
	types, err := schema.IntrospectionTypes()
	if err != nil {
		return nil, fmt.Errorf("introspection types: %w", err)
	}

	extended := &schema.Schema{
		QueryType:        sch.QueryType,
		MutationType:     sch.MutationType,
		SubscriptionType: sch.SubscriptionType,
		Types:            make(map[string]*schema.Type, len(sch.Types)+len(types)),
		Directives:       sch.Directives,
		Description:      sch.Description,
		AST:              sch.AST,
	}
	for name, t := range sch.Types {
		extended.Types[name] = t
	}
	for _, t := range types {
		extended.AddType(t)
	}

	// The query type is copied so the root fields stay private to the
	// extended schema. Field definitions are shared.
	query := *queryType
	query.Fields = append(append([]*schema.Field(nil), queryType.Fields...),
		schema.NewField("__schema", "Access the current type schema of this server.",
			schema.NonNullType(schema.NamedType("__Schema"))),
		schema.NewField("__type", "Request the type information of a single type.",
			schema.NamedType("__Type")).
			AddArgument(schema.NewInputValue("name", "", schema.NonNullType(schema.NamedType("String")))),
	)
	extended.Types[query.Name] = &query
	return extended, nil
}
