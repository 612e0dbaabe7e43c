// Package modelfile loads entity data models from YAML descriptions.
//
// A document lists the schemas of the main model, the schemas of its
// referenced models and an optional entity container:
//
//	schemas:
//	  - namespace: Shop
//	    enums:
//	      - name: Color
//	        members: [{name: Red, value: 1}, {name: Green, value: 2}]
//	    entity_types:
//	      - name: Product
//	        key: [ID]
//	        properties:
//	          - {name: ID, type: Edm.Int32}
//	          - {name: Price, type: "Edm.Decimal,precision=18,scale=2,nullable"}
//	container:
//	  name: Default
//	  entity_sets: [{name: Products, entity_type: Shop.Product}]
//
// Property and parameter types use the compact form accepted by
// edm.ParseTypeSpec, with Collection(...) for collection types.
package modelfile

// Document is the root of a model description.
type Document struct {
	Schemas    []Schema   `yaml:"schemas"`
	References []Schema   `yaml:"references"`
	Container  *Container `yaml:"container"`
}

// Schema declares the elements of one namespace.
type Schema struct {
	Namespace    string       `yaml:"namespace"`
	Enums        []Enum       `yaml:"enums"`
	ComplexTypes []Structured `yaml:"complex_types"`
	EntityTypes  []Structured `yaml:"entity_types"`
	Terms        []Term       `yaml:"terms"`
	Operations   []Operation  `yaml:"operations"`
}

// Enum declares an enum type.
type Enum struct {
	Name       string   `yaml:"name"`
	Underlying string   `yaml:"underlying"`
	Flags      bool     `yaml:"flags"`
	Members    []Member `yaml:"members"`
}

// Member is one enum member.
type Member struct {
	Name  string `yaml:"name"`
	Value int64  `yaml:"value"`
}

// Structured declares an entity or complex type.
type Structured struct {
	Name          string        `yaml:"name"`
	Base          string        `yaml:"base"`
	Abstract      bool          `yaml:"abstract"`
	Open          bool          `yaml:"open"`
	HasStream     bool          `yaml:"has_stream"`
	Key           []string      `yaml:"key"`
	AlternateKeys [][]KeyAlias  `yaml:"alternate_keys"`
	Properties    []Property    `yaml:"properties"`
	Navigation    []NavProperty `yaml:"navigation"`
}

// KeyAlias names a property of an alternate key. Alias defaults to the
// property name.
type KeyAlias struct {
	Alias    string `yaml:"alias"`
	Property string `yaml:"property"`
}

// Property is a structural property.
type Property struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// NavProperty is a navigation property.
type NavProperty struct {
	Name           string `yaml:"name"`
	Target         string `yaml:"target"`
	Collection     bool   `yaml:"collection"`
	Nullable       bool   `yaml:"nullable"`
	ContainsTarget bool   `yaml:"contains_target"`
}

// Term declares a vocabulary term.
type Term struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	AppliesTo string `yaml:"applies_to"`
}

// Operation declares an action or function.
type Operation struct {
	Name          string      `yaml:"name"`
	Kind          string      `yaml:"kind"`
	Bound         bool        `yaml:"bound"`
	Composable    bool        `yaml:"composable"`
	Parameters    []Parameter `yaml:"parameters"`
	ReturnType    string      `yaml:"return_type"`
	EntitySetPath string      `yaml:"entity_set_path"`
}

// Parameter is an operation parameter.
type Parameter struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Optional bool   `yaml:"optional"`
}

// Container declares the entity container of the main model.
type Container struct {
	Namespace  string   `yaml:"namespace"`
	Name       string   `yaml:"name"`
	EntitySets []Source `yaml:"entity_sets"`
	Singletons []Source `yaml:"singletons"`
	Imports    []Import `yaml:"imports"`
}

// Source is an entity set or singleton.
type Source struct {
	Name       string `yaml:"name"`
	EntityType string `yaml:"entity_type"`
}

// Import is an operation import.
type Import struct {
	Name      string `yaml:"name"`
	Operation string `yaml:"operation"`
	EntitySet string `yaml:"entity_set"`
}
