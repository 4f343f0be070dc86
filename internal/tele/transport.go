package tele

import (
	"context"

	"github.com/temoto/mk2pvrouter/log2"
	tele_config "github.com/temoto/mk2pvrouter/tele/config"
)

// Tele transport contract:
// - Init fails only with invalid config, ignores network errors
// - Send* return true only after broker accepted message
// - application may start without network available
type Transporter interface {
	Init(ctx context.Context, log *log2.Log, teleConfig tele_config.Config) error
	SendReading(tag string, payload []byte) bool
	SendError(payload []byte) bool
	Close()
}
