package model

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

type specialRateJSON struct {
	Name string      `json:"name"`
	Rate json.Number `json:"rate"`
}

// EncodeSpecialRates serializes overlay components as [{"name":..,"rate":..}] with numeric rates.
func EncodeSpecialRates(rates []SpecialRate) (string, error) {
	out := make([]specialRateJSON, 0, len(rates))
	for _, sr := range rates {
		out = append(out, specialRateJSON{Name: sr.Name, Rate: json.Number(sr.Rate.String())})
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", eris.Wrap(err, "model: encode special rates")
	}
	return string(b), nil
}

// DecodeSpecialRates parses the output of EncodeSpecialRates. Blank input is an empty list.
func DecodeSpecialRates(s string) ([]SpecialRate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []SpecialRate{}, nil
	}
	var in []specialRateJSON
	if err := json.Unmarshal([]byte(s), &in); err != nil {
		return nil, eris.Wrap(err, "model: decode special rates")
	}
	out := make([]SpecialRate, 0, len(in))
	for _, sr := range in {
		r, err := decimal.NewFromString(sr.Rate.String())
		if err != nil {
			return nil, eris.Wrapf(err, "model: decode special rate %q", sr.Name)
		}
		out = append(out, SpecialRate{Name: sr.Name, Rate: r})
	}
	return out, nil
}

// EncodeNames serializes an ordered list of district names as a JSON array.
func EncodeNames(names []string) (string, error) {
	if names == nil {
		names = []string{}
	}
	b, err := json.Marshal(names)
	if err != nil {
		return "", eris.Wrap(err, "model: encode names")
	}
	return string(b), nil
}

// DecodeNames parses a JSON array of names. Blank input is an empty list.
func DecodeNames(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}, nil
	}
	var names []string
	if err := json.Unmarshal([]byte(s), &names); err != nil {
		return nil, eris.Wrap(err, "model: decode names")
	}
	return names, nil
}
