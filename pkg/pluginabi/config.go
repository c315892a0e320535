// Package pluginabi is the cgo boundary the host process loads as a
// shared library: RVExtension-style C exports that decode the host's
// flat string calls, dispatch them through internal/dispatcher, and
// encode the result back across the boundary.
package pluginabi

/*
#include <stdlib.h>
#include <stdio.h>
#include <string.h>
*/
import "C"

import (
	"github.com/OCAP2/extension/v5/internal/dispatcher"
)

// configStruct holds the process-wide state the exported C functions
// close over. There is exactly one, reachable only through Config,
// mirroring the single shared-library instance the host loads.
type configStruct struct {
	version    string
	dispatcher *dispatcher.Dispatcher
}

// Config is the single instance every exported function reads from.
var Config = configStruct{version: "no version set"}

// SetVersion sets the string RVExtensionVersion hands back to the host
// on its first call, before any command has been dispatched.
func SetVersion(version string) {
	Config.version = version
}

// SetDispatcher installs the dispatcher that RVExtension/RVExtensionArgs
// route every subsequent command through.
func SetDispatcher(d *dispatcher.Dispatcher) {
	Config.dispatcher = d
}

// GetDispatcher returns the configured dispatcher, or nil if none has
// been installed yet.
func GetDispatcher() *dispatcher.Dispatcher {
	return Config.dispatcher
}
