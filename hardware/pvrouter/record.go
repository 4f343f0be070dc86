package pvrouter

import (
	"bytes"

	"github.com/juju/errors"
	"github.com/temoto/mk2pvrouter/crc"
	"github.com/temoto/mk2pvrouter/log2"
)

const DefaultChecksumAreaEnd = 1

type EmitFunc func(tag, value string)

// Parser splits frame into records and emits valid (tag, value) pairs.
//
//	0x0a | tag | 0x09 | value | 0x09 | checksum | 0x0d
//	       ^^^^^^^^^^^^^^^^^^^^^^^^^^^
//	checksum covers the above with ChecksumAreaEnd=1
type Parser struct {
	ChecksumAreaEnd int
	Log             *log2.Log

	stat *Stat
	tag  [TagSize]byte
	val  [ValueSize]byte
}

func NewParser(log *log2.Log, checksumAreaEnd int) *Parser {
	if checksumAreaEnd == 0 {
		checksumAreaEnd = DefaultChecksumAreaEnd
	}
	return &Parser{ChecksumAreaEnd: checksumAreaEnd, Log: log}
}

func (self *Parser) checkRecord(record []byte) error {
	received, actual, ok := crc.Check64(record, self.ChecksumAreaEnd)
	if !ok {
		if len(record) == 0 {
			return errors.NotValidf("record empty")
		}
		return InvalidChecksum{Received: received, Actual: actual}
	}
	return nil
}

// Parse walks frame and returns number of emitted records.
// Bad records are logged and skipped. Record without end delimiter aborts
// the rest of frame, records emitted before stay emitted.
func (self *Parser) Parse(frame []byte, emit EmitFunc) (int, error) {
	emitted := 0
	pos := 0
	for pos < len(frame) {
		lf := bytes.IndexByte(frame[pos:], LineFeed)
		if lf < 0 {
			break
		}
		start := pos + lf + 1
		cr := bytes.IndexByte(frame[start:], CarriageReturn)
		if cr < 0 {
			self.Log.Errorf("no record found at offset=%d", start)
			self.countAbort()
			return emitted, errors.Annotatef(ErrNoRecordEnd, "offset=%d", start)
		}
		end := start + cr
		record := frame[start:end]
		// skipped record: next search starts right after its line feed
		pos = start

		if err := self.checkRecord(record); err != nil {
			self.Log.Errorf("record=%q %v", record, err)
			self.countChecksum()
			continue
		}

		tagLen, ok := ExtractField(self.tag[:], record)
		if !validField(self.tag[:], tagLen, ok) {
			self.Log.Errorf("%v record=%q", ErrInvalidTag, record)
			self.countInvalid()
			continue
		}
		tag := string(self.tag[:tagLen])

		valLen, ok := ExtractField(self.val[:], record[tagLen+1:])
		if !validField(self.val[:], valLen, ok) {
			self.Log.Errorf("%v for tag %s", ErrInvalidValue, tag)
			self.countInvalid()
			continue
		}

		if self.stat != nil {
			self.stat.inc(&self.stat.Records)
		}
		emit(tag, string(self.val[:valLen]))
		emitted++
		pos = end + 1
	}
	return emitted, nil
}

func (self *Parser) countAbort() {
	if self.stat != nil {
		self.stat.inc(&self.stat.AbortedFrames)
	}
}
func (self *Parser) countChecksum() {
	if self.stat != nil {
		self.stat.inc(&self.stat.ChecksumErrors)
	}
}
func (self *Parser) countInvalid() {
	if self.stat != nil {
		self.stat.inc(&self.stat.InvalidFields)
	}
}
