package storage

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Vector marshals a float32 slice to and from the pgvector text format
// ("[0.1,0.2,...]") so embeddings travel through lib/pq without a dedicated
// driver type.
type Vector []float32

// Value renders the vector literal.
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	var b strings.Builder
	b.Grow(len(v) * 10)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String(), nil
}

// Scan parses the vector literal returned by the server.
func (v *Vector) Scan(src any) error {
	if src == nil {
		*v = nil
		return nil
	}

	var raw string
	switch s := src.(type) {
	case []byte:
		raw = string(s)
	case string:
		raw = s
	default:
		return fmt.Errorf("cannot scan %T into Vector", src)
	}

	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "[") || !strings.HasSuffix(raw, "]") {
		return fmt.Errorf("malformed vector literal %q", truncate(raw, 32))
	}
	raw = raw[1 : len(raw)-1]
	if raw == "" {
		*v = Vector{}
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make(Vector, len(parts))
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return fmt.Errorf("parse vector component %d: %w", i, err)
		}
		out[i] = float32(f)
	}
	*v = out
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
