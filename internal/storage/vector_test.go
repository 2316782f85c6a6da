package storage

import (
	"reflect"
	"testing"
)

func TestVectorValueScanRoundTrip(t *testing.T) {
	in := Vector{0.25, -1.5, 0, 3}

	value, err := in.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}

	var out Vector
	if err := out.Scan(value); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip = %v, want %v", out, in)
	}
}

func TestVectorScan(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    Vector
		wantErr bool
	}{
		{
			name: "bytes literal",
			in:   []byte("[1,2.5,-3]"),
			want: Vector{1, 2.5, -3},
		},
		{
			name: "empty vector",
			in:   "[]",
			want: Vector{},
		},
		{
			name: "nil stays nil",
			in:   nil,
			want: nil,
		},
		{
			name:    "missing brackets",
			in:      "1,2,3",
			wantErr: true,
		},
		{
			name:    "non-numeric component",
			in:      "[1,x,3]",
			wantErr: true,
		},
		{
			name:    "unsupported source type",
			in:      42,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Vector
			err := v.Scan(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Scan() succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Scan() error = %v", err)
			}
			if !reflect.DeepEqual(v, tt.want) {
				t.Fatalf("Scan() = %v, want %v", v, tt.want)
			}
		})
	}
}

func TestVectorNilValue(t *testing.T) {
	var v Vector
	value, err := v.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if value != nil {
		t.Fatalf("nil vector Value() = %v, want nil", value)
	}
}
