package openapi

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePrimitives(t *testing.T) {
	g := NewSchemaGenerator()

	tests := []struct {
		name   string
		value  any
		typ    string
		format string
	}{
		{"bool", true, "boolean", ""},
		{"int", 0, "integer", "int32"},
		{"int64", int64(0), "integer", "int64"},
		{"uint", uint(0), "integer", "int64"},
		{"float32", float32(0), "number", "float"},
		{"float64", 0.0, "number", "double"},
		{"string", "", "string", ""},
		{"bytes", []byte{}, "string", "byte"},
		{"time", time.Time{}, "string", "date-time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := g.Generate(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, s.Type)
			assert.Equal(t, tt.format, s.Format)
		})
	}
}

func TestGenerateComposite(t *testing.T) {
	g := NewSchemaGenerator()

	t.Run("slice", func(t *testing.T) {
		s, err := g.Generate([]string{})
		require.NoError(t, err)
		assert.Equal(t, "array", s.Type)
		require.NotNil(t, s.Items)
		assert.Equal(t, "string", s.Items.Type)
	})

	t.Run("string map", func(t *testing.T) {
		s, err := g.Generate(map[string]int{})
		require.NoError(t, err)
		assert.Equal(t, "object", s.Type)
		require.NotNil(t, s.AdditionalProperties)
		assert.Equal(t, "integer", s.AdditionalProperties.Type)
	})

	t.Run("non-string map keys", func(t *testing.T) {
		s, err := g.Generate(map[int]string{})
		require.NoError(t, err)
		assert.Equal(t, "object", s.Type)
		assert.Nil(t, s.AdditionalProperties)
	})

	t.Run("pointer to primitive is nullable", func(t *testing.T) {
		var v *int
		s, err := g.Convert(reflect.TypeOf(v))
		require.NoError(t, err)
		assert.Equal(t, "integer", s.Type)
		assert.True(t, s.Nullable)
	})

	t.Run("pointer to struct is a nullable anyOf", func(t *testing.T) {
		type inner struct {
			A string `json:"a"`
		}

		var v *inner
		s, err := g.Convert(reflect.TypeOf(v))
		require.NoError(t, err)
		assert.Empty(t, s.Type)
		assert.True(t, s.Nullable)
		require.Len(t, s.AnyOf, 1)
		assert.Equal(t, "object", s.AnyOf[0].Type)
		assert.Contains(t, s.AnyOf[0].Properties, "a")
	})

	t.Run("interface", func(t *testing.T) {
		type holder struct {
			V any `json:"v"`
		}

		s, err := g.Generate(holder{})
		require.NoError(t, err)
		assert.Equal(t, &Schema{}, s.Properties["v"])
	})
}

func TestGenerateStruct(t *testing.T) {
	type Base struct {
		ID string `json:"id" validate:"required,uuid"`
	}

	type Payload struct {
		Base
		Email    string   `json:"email" validate:"required,email"`
		Name     string   `json:"name,omitempty" validate:"min=2,max=64" openapi:"description=Display name,example=Alice"`
		Age      int      `json:"age" validate:"gte=18,lte=130"`
		Role     string   `json:"role" validate:"oneof=admin user"`
		Tags     []string `json:"tags" validate:"max=5,dive,required"`
		Active   *bool    `json:"active" default:"true"`
		Limit    int      `json:"limit" default:"20"`
		Internal string   `json:"-"`
		NoTag    string
		hidden   string
	}

	s, err := NewSchemaGenerator().Generate(Payload{})
	require.NoError(t, err)

	assert.Equal(t, "object", s.Type)
	assert.Equal(t, []string{"id", "email"}, s.Required.Fields())

	require.Contains(t, s.Properties, "id")
	assert.Equal(t, "uuid", s.Properties["id"].Format)

	assert.Equal(t, "email", s.Properties["email"].Format)

	name := s.Properties["name"]
	assert.Equal(t, 2, *name.MinLength)
	assert.Equal(t, 64, *name.MaxLength)
	assert.Equal(t, "Display name", name.Description)
	assert.Equal(t, "Alice", name.Example)

	age := s.Properties["age"]
	assert.Equal(t, 18.0, *age.Minimum)
	assert.Equal(t, 130.0, *age.Maximum)

	assert.Equal(t, []any{"admin", "user"}, s.Properties["role"].Enum)

	tags := s.Properties["tags"]
	assert.Equal(t, 5, *tags.MaxItems)

	active := s.Properties["active"]
	assert.Equal(t, "boolean", active.Type)
	assert.True(t, active.Nullable)
	assert.Equal(t, true, active.Default)

	assert.Equal(t, int64(20), s.Properties["limit"].Default)

	assert.Contains(t, s.Properties, "NoTag")
	assert.NotContains(t, s.Properties, "Internal")
	assert.NotContains(t, s.Properties, "hidden")
}

func TestGenerateErrors(t *testing.T) {
	g := NewSchemaGenerator()

	t.Run("channel", func(t *testing.T) {
		type withChan struct {
			C chan int `json:"c"`
		}

		_, err := g.Generate(withChan{})
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})

	t.Run("func", func(t *testing.T) {
		_, err := g.Generate(func() {})
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})

	t.Run("recursive", func(t *testing.T) {
		type node struct {
			Children []node `json:"children"`
		}

		_, err := g.Generate(node{})
		assert.ErrorIs(t, err, ErrRecursiveType)
	})

	t.Run("nil type", func(t *testing.T) {
		_, err := g.Convert(nil)
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})

	t.Run("shared non-recursive type is allowed", func(t *testing.T) {
		type leaf struct {
			V int `json:"v"`
		}
		type pair struct {
			A leaf `json:"a"`
			B leaf `json:"b"`
		}

		s, err := g.Generate(pair{})
		require.NoError(t, err)
		assert.Len(t, s.Properties, 2)
	})
}

func TestConverterFunc(t *testing.T) {
	called := false
	c := ConverterFunc(func(reflect.Type) (*Schema, error) {
		called = true
		return &Schema{Type: "string"}, nil
	})

	s, err := c.Convert(reflect.TypeOf(0))
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "string", s.Type)
}
