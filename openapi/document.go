package openapi

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"gopkg.in/yaml.v3"
)

// Document is a concurrency-safe OpenAPI 3 description of the HTTP API,
// populated route by route as handlers are registered.
type Document struct {
	mu      sync.RWMutex
	spec    *openapi3.T
	schemas map[reflect.Type]string
}

func New(title, version string) *Document {
	return &Document{
		spec: &openapi3.T{
			OpenAPI: "3.0.3",
			Info: &openapi3.Info{
				Title:   title,
				Version: version,
			},
			Paths:      openapi3.NewPaths(),
			Components: &openapi3.Components{Schemas: make(openapi3.Schemas)},
		},
		schemas: make(map[reflect.Type]string),
	}
}

func (d *Document) Describe(description string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spec.Info.Description = description
	return d
}

func (d *Document) Server(url, description string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spec.Servers = append(d.spec.Servers, &openapi3.Server{URL: url, Description: description})
	return d
}

func (d *Document) Tag(name, description string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spec.Tags = append(d.spec.Tags, &openapi3.Tag{Name: name, Description: description})
	return d
}

func (d *Document) Spec() *openapi3.T {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.spec
}

// Validate checks the document against the OpenAPI 3 schema rules.
func (d *Document) Validate(ctx context.Context) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.spec.Validate(ctx)
}

func (d *Document) JSON() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return json.MarshalIndent(d.spec, "", "  ")
}

func (d *Document) YAML() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	intermediate, err := d.spec.MarshalYAML()
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(intermediate)
}

func (d *Document) JSONHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := d.JSON()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to render API document").SetInternal(err)
		}
		return c.JSONBlob(http.StatusOK, data)
	}
}

func (d *Document) YAMLHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := d.YAML()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to render API document").SetInternal(err)
		}
		return c.Blob(http.StatusOK, "application/yaml", data)
	}
}

// Operation starts describing method+path. Nothing is added to the document
// until Register is called.
func (d *Document) Operation(method, path string) *Operation {
	return &Operation{
		doc:    d,
		method: strings.ToUpper(method),
		path:   path,
		op:     &openapi3.Operation{Responses: openapi3.NewResponsesWithCapacity(4)},
	}
}

func (d *Document) addOperation(method, path string, op *openapi3.Operation) {
	d.mu.Lock()
	defer d.mu.Unlock()

	item := d.spec.Paths.Find(path)
	if item == nil {
		item = &openapi3.PathItem{}
		d.spec.Paths.Set(path, item)
	}
	item.SetOperation(method, op)
}

// schemaFor returns a component reference for named struct types and an
// inline schema for everything else.
func (d *Document) schemaFor(example any) *openapi3.SchemaRef {
	d.mu.Lock()
	defer d.mu.Unlock()

	if example == nil {
		return openapi3.NewObjectSchema().NewRef()
	}
	return d.typeSchema(reflect.TypeOf(example))
}

func (d *Document) typeSchema(t reflect.Type) *openapi3.SchemaRef {
	if t.Kind() == reflect.Pointer {
		inner := d.typeSchema(t.Elem())
		if inner.Ref != "" {
			return &openapi3.SchemaRef{Value: &openapi3.Schema{AllOf: openapi3.SchemaRefs{inner}, Nullable: true}}
		}
		inner.Value.Nullable = true
		return inner
	}

	switch t.Kind() {
	case reflect.String:
		return openapi3.NewStringSchema().NewRef()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return openapi3.NewIntegerSchema().NewRef()
	case reflect.Float32, reflect.Float64:
		return openapi3.NewFloat64Schema().NewRef()
	case reflect.Bool:
		return openapi3.NewBoolSchema().NewRef()
	case reflect.Slice, reflect.Array:
		return openapi3.NewArraySchema().WithItems(d.typeSchema(t.Elem()).Value).NewRef()
	case reflect.Map:
		return openapi3.NewObjectSchema().WithAdditionalProperties(d.typeSchema(t.Elem()).Value).NewRef()
	case reflect.Struct:
		if t.PkgPath() == "time" && t.Name() == "Time" {
			return openapi3.NewDateTimeSchema().NewRef()
		}
		if t.Name() == "" {
			return d.structSchema(t).NewRef()
		}
		name, ok := d.schemas[t]
		if !ok {
			name = d.componentName(t)
			d.schemas[t] = name
			placeholder := &openapi3.Schema{}
			d.spec.Components.Schemas[name] = placeholder.NewRef()
			*placeholder = *d.structSchema(t)
		}
		return openapi3.NewSchemaRef("#/components/schemas/"+name, d.spec.Components.Schemas[name].Value)
	default:
		return openapi3.NewObjectSchema().NewRef()
	}
}

func (d *Document) componentName(t reflect.Type) string {
	name := t.Name()
	for suffix := 2; ; suffix++ {
		if _, taken := d.spec.Components.Schemas[name]; !taken {
			return name
		}
		name = t.Name() + strconv.Itoa(suffix)
	}
}

// structSchema reads json, validate, doc, example, enum and pattern tags. A field is
// required when its validate tag says so; oneof values become an enum.
func (d *Document) structSchema(t reflect.Type) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	schema.Properties = make(openapi3.Schemas)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}
		name, _, _ := strings.Cut(jsonTag, ",")
		if name == "" {
			name = field.Name
		}

		ref := d.typeSchema(field.Type)
		if ref.Ref == "" {
			applyFieldTags(ref.Value, field)
		}
		schema.Properties[name] = ref

		for _, rule := range strings.Split(field.Tag.Get("validate"), ",") {
			if rule == "required" {
				schema.Required = append(schema.Required, name)
			}
		}
	}
	return schema
}

func applyFieldTags(s *openapi3.Schema, field reflect.StructField) {
	if doc := field.Tag.Get("doc"); doc != "" {
		s.Description = doc
	}
	if ex := field.Tag.Get("example"); ex != "" {
		s.Example = ex
	}
	if pattern := field.Tag.Get("pattern"); pattern != "" {
		s.Pattern = pattern
	}
	for _, v := range strings.Fields(field.Tag.Get("enum")) {
		s.Enum = append(s.Enum, v)
	}
	for _, rule := range strings.Split(field.Tag.Get("validate"), ",") {
		switch {
		case rule == "email":
			s.Format = "email"
		case strings.HasPrefix(rule, "oneof="):
			for _, v := range strings.Fields(strings.TrimPrefix(rule, "oneof=")) {
				s.Enum = append(s.Enum, v)
			}
		case strings.HasPrefix(rule, "len="):
			if n, err := strconv.ParseUint(strings.TrimPrefix(rule, "len="), 10, 64); err == nil {
				s.MinLength = n
				s.MaxLength = &n
			}
		}
	}
}
