package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ///////////////////////////////////////////////
// PID Lock
// ///////////////////////////////////////////////

// pidLock is the advisory lock that keeps a second daemon from tracking the
// same account.
type pidLock struct {
	path  string
	token string
	f     *os.File
}

// pidToken generates a random 16-character hex token used to prove ownership
// of the PID file, so [pidLock.release] only deletes the file if this
// instance wrote it.
func pidToken() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// acquirePID creates or opens the PID file at path, takes the advisory lock,
// and writes "PID:TOKEN". The lock is held until [pidLock.release].
func acquirePID(path string) (*pidLock, error) {
	if alive, pid := checkStalePID(path); alive {
		return nil, fmt.Errorf("already monitoring this account (pid %d)", pid)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open PID file: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock PID file: %w", err)
	}
	if err := f.Truncate(0); err != nil {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("truncate PID file: %w", err)
	}
	token := pidToken()
	if _, err := fmt.Fprintf(f, "%d:%s", os.Getpid(), token); err != nil {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("write PID file: %w", err)
	}
	return &pidLock{path: path, token: token, f: f}, nil
}

// release unlocks and closes the file, removing it only if the stored token
// still matches.
func (l *pidLock) release() {
	if l == nil {
		return
	}
	if l.f != nil {
		_ = unlockFile(l.f)
		l.f.Close()
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return
	}
	parts := strings.SplitN(string(data), ":", 2)
	if len(parts) == 2 && parts[1] == l.token {
		os.Remove(l.path)
	}
}

// checkStalePID reports whether another instance holds the lock at path. A
// file left behind by a dead instance is removed.
func checkStalePID(path string) (alive bool, pid int) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return false, 0
	}

	if lockErr := lockFile(f); lockErr != nil {
		data, _ := os.ReadFile(path)
		f.Close()
		parts := strings.SplitN(string(data), ":", 2)
		if p, convErr := strconv.Atoi(parts[0]); convErr == nil {
			return true, p
		}
		return true, 0
	}

	_ = unlockFile(f)
	f.Close()
	os.Remove(path)
	return false, 0
}
