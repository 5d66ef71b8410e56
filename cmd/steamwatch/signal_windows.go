// Windows signal handling. Only os.Interrupt exists there, so the runtime
// reconfiguration signals are unavailable; edit the config file instead.

//go:build windows

package main

import (
	"os"
	"os/signal"
)

// ///////////////////////////////////////////////
// Signal Handling
// ///////////////////////////////////////////////

// controlSignals is empty on Windows.
var controlSignals = map[os.Signal]control{}

// signalChannel returns a channel that receives os.Interrupt (Ctrl+C). The
// runtime maps CTRL_BREAK_EVENT and console-close events to it as well.
func signalChannel() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return ch
}

// controlChannel returns nil, which blocks forever in a select.
func controlChannel() <-chan os.Signal {
	return nil
}

// signalName returns the signal's string form.
func signalName(s os.Signal) string {
	return s.String()
}
