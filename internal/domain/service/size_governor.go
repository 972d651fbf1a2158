package service

import (
	"encoding/json"
	"strings"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
)

// MaxPayloadBytes is the broker's hard per-message payload ceiling (§4.4,
// §4.8).
const MaxPayloadBytes = 128 * 1024

// pagedArrayKeys names the response_data keys the governor knows how to
// trim from the oldest end when a payload is oversize (§4.8 step 2).
var pagedArrayKeys = []string{"entries", "readings", "records", "lines"}

const truncationMarker = "[response truncated to fit broker payload limit]"
const textEllipsis = "..."

// Govern enforces the 128 KiB payload ceiling on resp in place, applying
// the four-step reduction ladder from §4.8. It never changes status or
// correlation_id, and the returned byte count is always <= MaxPayloadBytes.
func Govern(resp *entity.CommandResponse) ([]byte, error) {
	b, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	if len(b) <= MaxPayloadBytes {
		return b, nil
	}

	if trimPagedArray(resp) {
		b, err = json.Marshal(resp)
		if err != nil {
			return nil, err
		}
		if len(b) <= MaxPayloadBytes {
			return b, nil
		}
	}

	resp.ResponseData = nil
	resp.Truncated = true
	resp.ResponseText = appendMarker(resp.ResponseText)
	b, err = json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	if len(b) <= MaxPayloadBytes {
		return b, nil
	}

	maxLen := MaxPayloadBytes / 2
	for {
		resp.ResponseText = truncateText(resp.ResponseText, maxLen)
		b, err = json.Marshal(resp)
		if err != nil || len(b) <= MaxPayloadBytes || maxLen == 0 {
			return b, err
		}
		maxLen /= 2
	}
}

// trimPagedArray drops elements from the oldest end of the first
// recognizable paginated array in response_data, halving the array on
// each pass until the marshalled response fits or the array is empty.
// Returns whether it found and trimmed anything.
func trimPagedArray(resp *entity.CommandResponse) bool {
	if resp.ResponseData == nil {
		return false
	}
	for _, key := range pagedArrayKeys {
		raw, ok := resp.ResponseData[key]
		if !ok {
			continue
		}
		arr, ok := raw.([]interface{})
		if !ok || len(arr) == 0 {
			continue
		}
		for len(arr) > 0 {
			b, err := json.Marshal(resp)
			if err == nil && len(b) <= MaxPayloadBytes {
				break
			}
			// drop oldest entries (front of slice) — half at a time,
			// at least one
			cut := len(arr) / 2
			if cut == 0 {
				cut = 1
			}
			arr = arr[cut:]
			resp.ResponseData[key] = arr
		}
		return true
	}
	return false
}

func appendMarker(text string) string {
	if text == "" {
		return truncationMarker
	}
	return text + " " + truncationMarker
}

func truncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	cut := maxLen - len(textEllipsis)
	if cut < 0 {
		cut = 0
	}
	return strings.TrimSpace(text[:cut]) + textEllipsis
}
