package protocol

import "errors"

var (
	ErrStructure = errors.New("protocol: unexpected request structure")
)
