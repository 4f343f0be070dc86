package pvrouter

import (
	"fmt"

	"github.com/juju/errors"
)

type InvalidChecksum struct {
	Received byte
	Actual   byte
}

func (self InvalidChecksum) Error() string {
	return fmt.Sprintf("checksum mismatch: expected=%02x received=%02x", self.Actual, self.Received)
}

var (
	ErrNoRecordEnd  = errors.New("no record end delimiter")
	ErrInvalidTag   = errors.New("invalid tag")
	ErrInvalidValue = errors.New("invalid value")
)
