package interpolate

import (
	"reflect"
	"testing"
)

func TestString(t *testing.T) {
	data := map[string]interface{}{
		"fileName": "invoice-0042.pdf",
		"amount":   99.5,
		"vendor":   map[string]interface{}{"name": "Acme"},
	}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"single token", "New document {fileName}", "New document invoice-0042.pdf"},
		{"dot path", "Vendor: {vendor.name}", "Vendor: Acme"},
		{"numeric value", "Amount {amount} EUR", "Amount 99.5 EUR"},
		{"unresolved token left verbatim", "Ref {missing.path}", "Ref {missing.path}"},
		{"no tokens", "plain text", "plain text"},
		{"multiple tokens", "{fileName} from {vendor.name}", "invoice-0042.pdf from Acme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := String(tt.template, data); got != tt.want {
				t.Errorf("String(%q) = %q, want %q", tt.template, got, tt.want)
			}
		})
	}
}

func TestConfig(t *testing.T) {
	data := map[string]interface{}{"docType": "RECEIPT"}

	config := map[string]interface{}{
		"title":    "Review {docType}",
		"priority": 3,
		"tags":     []interface{}{"{docType}"}, // non-string entries untouched
	}

	got := Config(config, data)
	want := map[string]interface{}{
		"title":    "Review RECEIPT",
		"priority": 3,
		"tags":     []interface{}{"{docType}"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Config() = %v, want %v", got, want)
	}

	if Config(nil, data) != nil {
		t.Error("nil config should stay nil")
	}
}
