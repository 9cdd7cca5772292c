package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// looseInt decodes a JSON number or numeric string. Records written by the old web
// client store form values as strings, so both shapes are accepted. Anything else is 0.
type looseInt int

func (n *looseInt) UnmarshalJSON(data []byte) error {
	*n = looseInt(math.Trunc(parseLoose(data)))
	return nil
}

// looseFloat is the float counterpart of looseInt
type looseFloat float64

func (f *looseFloat) UnmarshalJSON(data []byte) error {
	*f = looseFloat(parseLoose(data))
	return nil
}

func parseLoose(data []byte) float64 {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		return num
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
