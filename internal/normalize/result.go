package normalize

import (
	"fmt"
)

// Sample fields whose first element is a timestamp: [ts, value].
var pairFields = []string{"value", "histogram"}

// Sample fields holding a list of [ts, value] pairs.
var seriesFields = []string{"values", "histograms"}

// QueryResult rewrites the timestamps inside a query result
// ({"resultType": ..., "result": [...]}) into ISO 8601 strings.
//
// Vector samples ("value") and matrix series ("values") are converted, as
// are their native histogram counterparts. Metric labels and sample values
// are copied through untouched. Elements of any other shape, such as the
// bare [ts, value] pair of a scalar result, are returned as they are.
//
// Non-map input is returned unchanged. A map missing "resultType" or
// "result" still yields both keys, with nil and an empty list. Other
// top-level keys, such as "stats" or "warnings", are carried through
// as-is rather than dropped. The input is never modified.
func QueryResult(data interface{}) (interface{}, error) {
	m, ok := data.(map[string]interface{})
	if !ok {
		return data, nil
	}

	out := make(map[string]interface{}, len(m)+2)
	for k, v := range m {
		out[k] = v
	}
	out["resultType"] = m["resultType"]

	items, _ := m["result"].([]interface{})
	converted := make([]interface{}, 0, len(items))
	for i, item := range items {
		c, err := convertSample(item)
		if err != nil {
			return nil, fmt.Errorf("result[%d]: %w", i, err)
		}
		converted = append(converted, c)
	}
	out["result"] = converted

	return out, nil
}

func convertSample(item interface{}) (interface{}, error) {
	sample, ok := item.(map[string]interface{})
	if !ok {
		return item, nil
	}

	var out map[string]interface{}
	copyOnWrite := func() {
		if out != nil {
			return
		}
		out = make(map[string]interface{}, len(sample))
		for k, v := range sample {
			out[k] = v
		}
	}

	for _, field := range pairFields {
		pair, ok := asPair(sample[field])
		if !ok {
			continue
		}
		converted, err := convertPair(pair)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		copyOnWrite()
		out[field] = converted
	}

	for _, field := range seriesFields {
		series, ok := sample[field].([]interface{})
		if !ok {
			continue
		}
		converted := make([]interface{}, len(series))
		for i, entry := range series {
			pair, ok := asPair(entry)
			if !ok {
				converted[i] = entry
				continue
			}
			c, err := convertPair(pair)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", field, i, err)
			}
			converted[i] = c
		}
		copyOnWrite()
		out[field] = converted
	}

	if out == nil {
		return sample, nil
	}
	return out, nil
}

func asPair(v interface{}) ([]interface{}, bool) {
	pair, ok := v.([]interface{})
	if !ok || len(pair) != 2 {
		return nil, false
	}
	return pair, true
}

func convertPair(pair []interface{}) ([]interface{}, error) {
	ts, err := FormatTimestamp(pair[0])
	if err != nil {
		return nil, err
	}
	return []interface{}{ts, pair[1]}, nil
}
