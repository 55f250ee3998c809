package dto

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aretw0/signoff/pkg/domain"
)

// UnmarshalInstance decodes an instance keeping numbers in Data as json.Number,
// so that large integers survive a round trip without float rounding.
func UnmarshalInstance(data []byte) (*domain.Instance, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var inst domain.Instance
	if err := dec.Decode(&inst); err != nil {
		return nil, fmt.Errorf("failed to unmarshal instance: %w", err)
	}
	if inst.Data == nil {
		inst.Data = make(map[string]any)
	}
	return &inst, nil
}
