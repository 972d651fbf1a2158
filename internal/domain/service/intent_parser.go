package service

import (
	"context"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
)

// IntentParser is the contract shared by all three engines (§4.1): given
// free-form operator text, produce an optional ParsedIntent. A nil result
// with a nil error means "I have no opinion" — never an error on its
// own; a non-nil error reflects an engine-internal fault (e.g. malformed
// config). The cloud submit path logs such an error and leaves the
// envelope unparsed; the edge Executor reports it as the Failed reason.
type IntentParser interface {
	Parse(ctx context.Context, text string) (*entity.ParsedIntent, error)
	Name() string
}
