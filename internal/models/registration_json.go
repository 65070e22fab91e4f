package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// UnmarshalJSON accepts quantity, vendorTables and totalAmount either as JSON
// numbers or as numeric strings. The browser form saved select values as
// strings, so records like {"quantity":"2"} are common in old backups.
func (r *Registration) UnmarshalJSON(data []byte) error {
	type plain Registration
	aux := struct {
		*plain
		Quantity     lenientInt `json:"quantity"`
		VendorTables lenientInt `json:"vendorTables"`
		TotalAmount  lenientInt `json:"totalAmount"`
	}{
		plain:        (*plain)(r),
		Quantity:     lenientInt(r.Quantity),
		VendorTables: lenientInt(r.VendorTables),
		TotalAmount:  lenientInt(r.TotalAmount),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Quantity = int(aux.Quantity)
	r.VendorTables = int(aux.VendorTables)
	r.TotalAmount = int(aux.TotalAmount)
	return nil
}

type lenientInt int

func (n *lenientInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := string(data)
	if strings.HasPrefix(s, `"`) {
		var err error
		if s, err = strconv.Unquote(s); err != nil {
			return fmt.Errorf("decode number %s: %w", data, err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
	}
	if v, err := strconv.Atoi(s); err == nil {
		*n = lenientInt(v)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("decode number %s: not numeric", data)
	}
	*n = lenientInt(math.Round(f))
	return nil
}
