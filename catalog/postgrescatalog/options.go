package postgrescatalog

import (
	"github.com/classroom-devices/loanledger/ledger"
)

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger logs executed SQL at debug level.
func WithLogger(logger ledger.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}
