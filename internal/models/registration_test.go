package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistration_UnmarshalNumericFields(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		quantity int
		tables   int
		total    int
	}{
		{"numbers", `{"id":"r","quantity":2,"vendorTables":1,"totalAmount":630}`, 2, 1, 630},
		{"strings", `{"id":"r","quantity":"2","vendorTables":"3","totalAmount":"855"}`, 2, 3, 855},
		{"padded and empty", `{"id":"r","quantity":" 4 ","vendorTables":"","totalAmount":"190"}`, 4, 0, 190},
		{"null and absent", `{"id":"r","quantity":null}`, 0, 0, 0},
		{"float", `{"id":"r","totalAmount":265.0}`, 0, 0, 265},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reg Registration
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &reg))
			assert.Equal(t, "r", reg.ID)
			assert.Equal(t, tt.quantity, reg.Quantity)
			assert.Equal(t, tt.tables, reg.VendorTables)
			assert.Equal(t, tt.total, reg.TotalAmount)
		})
	}
}

func TestRegistration_UnmarshalRejectsText(t *testing.T) {
	var reg Registration
	assert.Error(t, json.Unmarshal([]byte(`{"id":"r","quantity":"two"}`), &reg))
}

func TestRegistration_MarshalKeepsNumbers(t *testing.T) {
	var reg Registration
	require.NoError(t, json.Unmarshal([]byte(`{"id":"r","quantity":"2","paymentStatus":"paid"}`), &reg))
	out, err := json.Marshal(reg)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"quantity":2`)
	assert.Contains(t, string(out), `"paymentStatus":"paid"`)
}
