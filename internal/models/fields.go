package models

import "encoding/json"

// rawFields holds document keys this service does not own. They are carried
// through decode/encode so a rewrite never drops data written by other clients.
type rawFields map[string]json.RawMessage

func splitFields(data []byte, known ...string) (rawFields, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, key := range known {
		delete(all, key)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

func mergeFields(v interface{}, extra rawFields) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	for key, raw := range extra {
		if _, owned := out[key]; !owned {
			out[key] = raw
		}
	}
	return json.Marshal(out)
}
