package match

import "errors"

var (
	ErrRollbackTooFar = errors.New("match: rollback target is outside the checkpoint window")
	ErrRollbackAhead  = errors.New("match: correction for a tick not simulated yet")
	ErrUnknownTick    = errors.New("match: no checksum for tick")
	ErrDesync         = errors.New("match: desync")
	ErrRateLimited    = errors.New("match: peer input rate exceeded")
	ErrIntakeFull     = errors.New("match: input intake full")
	ErrClosed         = errors.New("match: runner closed")
)
