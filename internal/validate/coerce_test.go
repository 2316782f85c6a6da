package validate

import (
	"reflect"
	"testing"
)

func TestCoerceArrayFields(t *testing.T) {
	tests := []struct {
		name string
		key  string
		in   any
		want any
	}{
		{
			name: "string-encoded array is parsed",
			key:  "tags",
			in:   `["auth","jwt"]`,
			want: []any{"auth", "jwt"},
		},
		{
			name: "native array passes through",
			key:  "tags",
			in:   []any{"auth"},
			want: []any{"auth"},
		},
		{
			name: "unparseable string left unchanged",
			key:  "tags",
			in:   "not json",
			want: "not json",
		},
		{
			name: "string-encoded object left unchanged",
			key:  "tags",
			in:   `{"a":1}`,
			want: `{"a":1}`,
		},
		{
			name: "unknown field never coerced",
			key:  "content",
			in:   `["looks","like","array"]`,
			want: `["looks","like","array"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Coerce(map[string]any{tt.key: tt.in})
			if !reflect.DeepEqual(out[tt.key], tt.want) {
				t.Fatalf("Coerce()[%s] = %#v, want %#v", tt.key, out[tt.key], tt.want)
			}
		})
	}
}

func TestCoerceNumericFields(t *testing.T) {
	tests := []struct {
		name string
		key  string
		in   any
		want any
	}{
		{
			name: "string number becomes float",
			key:  "limit",
			in:   "10",
			want: float64(10),
		},
		{
			name: "native number passes through",
			key:  "limit",
			in:   float64(5),
			want: float64(5),
		},
		{
			name: "non-numeric string unchanged",
			key:  "limit",
			in:   "ten",
			want: "ten",
		},
		{
			name: "infinity rejected",
			key:  "relevanceScore",
			in:   "Inf",
			want: "Inf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Coerce(map[string]any{tt.key: tt.in})
			if !reflect.DeepEqual(out[tt.key], tt.want) {
				t.Fatalf("Coerce()[%s] = %#v, want %#v", tt.key, out[tt.key], tt.want)
			}
		})
	}
}

// Coercion must be idempotent: applying it twice equals applying it once.
func TestCoerceIdempotent(t *testing.T) {
	in := map[string]any{
		"tags":  `["a","b"]`,
		"limit": "7",
		"title": "unchanged",
	}
	once := Coerce(in)
	twice := Coerce(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("coercion not idempotent: %#v vs %#v", once, twice)
	}
}

func TestCoerceNilMap(t *testing.T) {
	out := Coerce(nil)
	if out == nil || len(out) != 0 {
		t.Fatalf("Coerce(nil) = %#v, want empty map", out)
	}
}
