// Package prof wires the runtime profilers to file paths.
package prof

import (
	"errors"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Options names the output files; empty paths disable that profiler.
type Options struct {
	CPU   string
	Mem   string
	Trace string
}

// Start enables the requested profilers. The returned stop function ends
// them and writes the heap profile; it is safe to call once.
func Start(opts Options) (stop func() error, err error) {
	var cpuFile, traceFile *os.File
	cleanup := func() error {
		var errs []error
		if cpuFile != nil {
			pprof.StopCPUProfile()
			errs = append(errs, cpuFile.Close())
		}
		if traceFile != nil {
			trace.Stop()
			errs = append(errs, traceFile.Close())
		}
		if opts.Mem != "" {
			errs = append(errs, writeMem(opts.Mem))
		}
		return errors.Join(errs...)
	}

	if opts.CPU != "" {
		f, err := os.Create(opts.CPU)
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, err
		}
		cpuFile = f
	}
	if opts.Trace != "" {
		f, err := os.Create(opts.Trace)
		if err != nil {
			opts.Mem = ""
			_ = cleanup()
			return nil, err
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			opts.Mem = ""
			_ = cleanup()
			return nil, err
		}
		traceFile = f
	}
	return cleanup, nil
}

func writeMem(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	runtime.GC()
	return pprof.WriteHeapProfile(f)
}
