package suggestion

import (
	"encoding/json"

	"github.com/kpeterson/optflow/pkg/quality"
)

func decodeParamValues(raw json.RawMessage) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}
	var values map[string]float64
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}
	return values
}

func marketdataQualityJSON(results map[string]quality.SymbolResult) json.RawMessage {
	raw, err := json.Marshal(results)
	if err != nil {
		return json.RawMessage("{}")
	}
	return raw
}
