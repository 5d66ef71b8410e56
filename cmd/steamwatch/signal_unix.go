// Unix signal handling: shutdown plus the runtime reconfiguration signals.

//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// ///////////////////////////////////////////////
// Signal Handling
// ///////////////////////////////////////////////

// controlSignals maps each reconfiguration signal to its action.
var controlSignals = map[os.Signal]control{
	syscall.SIGUSR1: ctlToggleActiveInactive,
	syscall.SIGUSR2: ctlToggleActivity,
	syscall.SIGCONT: ctlToggleStatus,
	syscall.SIGTRAP: ctlIncreaseActive,
	syscall.SIGABRT: ctlDecreaseActive,
	syscall.SIGHUP:  ctlReloadSecrets,
}

// signalChannel returns a channel that receives SIGINT and SIGTERM.
func signalChannel() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch
}

// controlChannel returns a channel that receives the signals in
// [controlSignals].
func controlChannel() <-chan os.Signal {
	ch := make(chan os.Signal, 4)
	sigs := make([]os.Signal, 0, len(controlSignals))
	for s := range controlSignals {
		sigs = append(sigs, s)
	}
	signal.Notify(ch, sigs...)
	return ch
}

// signalName returns the conventional name, e.g. "SIGUSR1".
func signalName(s os.Signal) string {
	if sig, ok := s.(syscall.Signal); ok {
		if name := unixSignalNames[sig]; name != "" {
			return name
		}
	}
	return s.String()
}

var unixSignalNames = map[syscall.Signal]string{
	syscall.SIGUSR1: "SIGUSR1",
	syscall.SIGUSR2: "SIGUSR2",
	syscall.SIGCONT: "SIGCONT",
	syscall.SIGTRAP: "SIGTRAP",
	syscall.SIGABRT: "SIGABRT",
	syscall.SIGHUP:  "SIGHUP",
}
