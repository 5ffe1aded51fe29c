package tools

import "github.com/modelcontextprotocol/go-sdk/jsonschema"

func object(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	if props == nil {
		props = map[string]*jsonschema.Schema{}
	}
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

func str(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func num(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "number", Description: desc}
}

func integer(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: desc}
}

func enum(desc string, values ...string) *jsonschema.Schema {
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return &jsonschema.Schema{Type: "string", Description: desc, Enum: vals}
}

func arrayOf(desc string, items *jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Description: desc, Items: items}
}

func strList(desc string) *jsonschema.Schema {
	return arrayOf(desc, &jsonschema.Schema{Type: "string"})
}

func shoppingItemSchema() *jsonschema.Schema {
	return object(map[string]*jsonschema.Schema{
		"item":     str("The name of the item (e.g., 'Milk', 'Bread')."),
		"quantity": num("The quantity of the item."),
		"unit":     str("The unit of measurement (e.g., 'gallon', 'loaf', 'piece')."),
	}, "item", "quantity", "unit")
}
