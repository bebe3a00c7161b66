package orderbook

import (
	"errors"
	"fmt"
)

var (
	// ErrInternalState marks a broken book invariant. The book must not be
	// used after a handler returns it.
	ErrInternalState = errors.New("order book internal state violation")

	errUnknownOrder   = fmt.Errorf("%w: order not found in bucket", ErrInternalState)
	errBucketVolume   = fmt.Errorf("%w: bucket volume mismatch", ErrInternalState)
	errFokBudgetFill  = fmt.Errorf("%w: budget order not filled completely", ErrInternalState)
	errInvalidOrderID = fmt.Errorf("%w: index entry mismatch", ErrInternalState)
)
