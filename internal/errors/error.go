package errors

import "errors"

var (
	ErrImageRead             = errors.New("image could not be read")
	ErrBoardNotFound         = errors.New("board was not found on the image")
	ErrLowBoardConfidence    = errors.New("board detection confidence is below the minimum")
	ErrLowConfidencePosition = errors.New("extracted position has low confidence")
	ErrEvaluatorUnavailable  = errors.New("native evaluator is unavailable")
	ErrInvalidPosition       = errors.New("invalid board position")
	ErrHistoryItemNotFound   = errors.New("history item was not found")
	ErrInternal              = errors.New("internal error")
)
