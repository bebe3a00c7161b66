package protocol

import "errors"

var (
	ErrUnknownCommand   = errors.New("unknown command tag")
	ErrUnknownAction    = errors.New("unknown order action")
	ErrTradeBlockLength = errors.New("trade events block length is not a multiple of the record size")
)
