package platform

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/binbill/internal/domain"
)

// DecodeList extracts a list from a platform response. The platform wraps
// lists differently per endpoint, so the known shapes are tried in order:
//
//	{"data": {"data": [...]}}
//	{"data": [...]}
//	{"collections": [...]}
//	[...]
//
// Anything else yields ErrUnrecognizedEnvelope.
func DecodeList[T any](body []byte) ([]T, error) {
	body = bytes.TrimSpace(body)
	if isArray(body) {
		return decodeArray[T](body)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedEnvelope, err)
	}

	if data, ok := top["data"]; ok {
		data = bytes.TrimSpace(data)
		if isObject(data) {
			var inner map[string]json.RawMessage
			if err := json.Unmarshal(data, &inner); err == nil {
				if nested, ok := inner["data"]; ok && isArray(bytes.TrimSpace(nested)) {
					return decodeArray[T](nested)
				}
			}
		}
		if isArray(data) {
			return decodeArray[T](data)
		}
	}

	if collections, ok := top["collections"]; ok && isArray(bytes.TrimSpace(collections)) {
		return decodeArray[T](collections)
	}

	return nil, ErrUnrecognizedEnvelope
}

func decodeArray[T any](raw json.RawMessage) ([]T, error) {
	out := []T{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode list items: %w", err)
	}
	return out, nil
}

func isArray(b []byte) bool  { return len(b) > 0 && b[0] == '[' }
func isObject(b []byte) bool { return len(b) > 0 && b[0] == '{' }

// decodeBatchResult extracts a bulk enrollment verdict. Accepted shapes:
//
//	{"data": {"successCount": .., "failedCount": .., "errors": [...]}}
//	{"successCount": .., "failedCount": .., "errors": [...]}
//
// An object carrying neither count yields ErrUnrecognizedEnvelope rather
// than an empty result.
func decodeBatchResult(body []byte) (*domain.BatchResult, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(body), &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedEnvelope, err)
	}

	if data, ok := top["data"]; ok && isObject(bytes.TrimSpace(data)) {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(data, &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnrecognizedEnvelope, err)
		}
		if hasCounts(inner) {
			return unmarshalBatchResult(data)
		}
	}
	if hasCounts(top) {
		return unmarshalBatchResult(body)
	}
	return nil, ErrUnrecognizedEnvelope
}

func hasCounts(m map[string]json.RawMessage) bool {
	_, success := m["successCount"]
	_, failed := m["failedCount"]
	return success || failed
}

func unmarshalBatchResult(raw []byte) (*domain.BatchResult, error) {
	var res domain.BatchResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode batch result: %w", err)
	}
	return &res, nil
}
