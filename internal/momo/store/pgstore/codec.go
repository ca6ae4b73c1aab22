package pgstore

import (
	"encoding/json"

	"momo/internal/momo/model"
)

func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

func unmarshalMetadata(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func unmarshalTags(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func marshalRelations(r map[string]model.RelationKind) ([]byte, error) {
	if r == nil {
		r = map[string]model.RelationKind{}
	}
	return json.Marshal(r)
}

func unmarshalRelations(raw []byte) map[string]model.RelationKind {
	if len(raw) == 0 {
		return nil
	}
	var out map[string]model.RelationKind
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
