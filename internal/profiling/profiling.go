// SPDX-License-Identifier: Apache-2.0

package profiling

import (
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"go.uber.org/multierr"
)

// Config of a profiling session. Empty file names disable the
// corresponding profile, an empty server address disables the pprof server.
type Config struct {
	ServerAddress  string
	CPUProfileFile string
	MemProfileFile string
}

// Session profiles the process from Start until Stop.
type Session struct {
	cfg     Config
	server  *http.Server
	cpuFile *os.File
}

const readHeaderTimeout = 5 * time.Second

// Start starts the pprof server and the CPU profile, as configured.
func Start(cfg Config) (*Session, error) {
	s := &Session{cfg: cfg}

	if cfg.CPUProfileFile != "" {
		cpuFile, err := os.Create(cfg.CPUProfileFile)
		if err != nil {
			return nil, fmt.Errorf("creating CPU profile file: %w", err)
		}
		if err := pprof.StartCPUProfile(cpuFile); err != nil {
			cpuFile.Close()
			return nil, fmt.Errorf("starting CPU profile: %w", err)
		}
		s.cpuFile = cpuFile
	}

	if cfg.ServerAddress != "" {
		// the blank net/http/pprof import registers /debug/pprof on the
		// default mux
		s.server = &http.Server{
			Addr:              cfg.ServerAddress,
			ReadHeaderTimeout: readHeaderTimeout,
		}
		go func() {
			if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Fprintf(os.Stderr, "profiling server: %v\n", err) //nolint:forbidigo
			}
		}()
	}

	return s, nil
}

// Stop stops the CPU profile, writes the memory profile and closes the pprof
// server. All the steps are run even if some fail.
func (s *Session) Stop() error {
	var err error
	if s.cpuFile != nil {
		pprof.StopCPUProfile()
		err = multierr.Append(err, s.cpuFile.Close())
	}

	if s.cfg.MemProfileFile != "" {
		err = multierr.Append(err, writeMemProfile(s.cfg.MemProfileFile))
	}

	if s.server != nil {
		err = multierr.Append(err, s.server.Close())
	}
	return err
}

// writeMemProfile writes the allocations since the process started, like
// go test -memprofile does.
func writeMemProfile(fileName string) error {
	memFile, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("creating memory profile file: %w", err)
	}
	defer memFile.Close()

	runtime.GC()
	if err := pprof.Lookup("allocs").WriteTo(memFile, 0); err != nil {
		return fmt.Errorf("writing memory profile: %w", err)
	}
	return nil
}
