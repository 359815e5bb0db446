// Package products is the client-side repository of the remote product collection.
package products

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Product is an item of the remote collection.
type Product struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price Price  `json:"price"`
}

// Price is a product price. It decodes from a JSON number or from a JSON
// string holding a decimal, as servers serializing decimals send it.
type Price float64

func (p Price) Float64() float64 {
	return float64(p)
}

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid price %q: %w", s, err)
		}
		// ParseFloat accepts "NaN" and "Inf", which are not prices
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("invalid price %q: not a finite number", s)
		}
		*p = Price(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid price %s: %w", data, err)
	}
	*p = Price(v)
	return nil
}

// page is the paginated envelope of the collection endpoint.
type page struct {
	Count    int       `json:"count"`
	Next     *string   `json:"next"`
	Previous *string   `json:"previous"`
	Results  []Product `json:"results"`
}

type createRequest struct {
	Name  string  `json:"name" validate:"required,max=100"`
	Price float64 `json:"price" validate:"gt=0"`
}
