package logging

import (
	"log"
	"os"
)

// One prefixed logger per subsystem so log lines can be grepped by origin.
var (
	Bot      = log.New(os.Stdout, "[bot] ", log.LstdFlags)
	Ledger   = log.New(os.Stdout, "[ledger] ", log.LstdFlags)
	Delivery = log.New(os.Stdout, "[delivery] ", log.LstdFlags)
	Queue    = log.New(os.Stdout, "[queue] ", log.LstdFlags)
)
