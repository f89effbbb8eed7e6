package parser

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestNewUTF8Reader(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		input       []byte
		contentType string
		want        string
	}{
		{
			name:  "utf-8 passes through",
			input: []byte("<html><body>Amélie ☺</body></html>"),
			want:  "Amélie ☺",
		},
		{
			name:  "meta charset iso-8859-1",
			input: []byte(`<html><head><meta charset="ISO-8859-1"></head><body>Am` + string([]byte{0xE9}) + `lie</body></html>`),
			want:  "Amélie",
		},
		{
			name:  "meta charset windows-1252",
			input: []byte(`<html><head><meta charset="windows-1252"></head><body>Brand` + string([]byte{0x99}) + `</body></html>`),
			want:  "Brand™",
		},
		{
			name:        "charset from content type header",
			input:       []byte(`<html><body>L` + string([]byte{0xE9}) + `on</body></html>`),
			contentType: "text/html; charset=iso-8859-1",
			want:        "Léon",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reader, err := NewUTF8Reader(bytes.NewReader(tt.input), tt.contentType)
			if err != nil {
				t.Fatalf("NewUTF8Reader failed: %v", err)
			}
			output, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("read failed: %v", err)
			}
			if !strings.Contains(string(output), tt.want) {
				t.Errorf("expected %q in output, got %q", tt.want, output)
			}
		})
	}
}
