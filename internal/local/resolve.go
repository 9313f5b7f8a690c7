package local

import (
	"context"
	"fmt"

	"github.com/rileyhilliard/fleetd/internal/logger"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// Instrumentation modes accepted by Resolve.
const (
	ModeAuto     = "auto"
	ModeHost     = "host"
	ModeFallback = "fallback"
)

// capabilityCheck reports whether the live counters can be read.
// Replaced in tests.
var capabilityCheck = func(ctx context.Context) error {
	if _, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		return err
	}
	if _, err := disk.UsageWithContext(ctx, "/"); err != nil {
		return err
	}
	if _, err := cpu.CountsWithContext(ctx, true); err != nil {
		return err
	}
	return nil
}

// Resolve picks the Reader once at startup. In auto mode the live reader is
// used when its capability check passes and the fallback reader otherwise.
func Resolve(ctx context.Context, mode string, log logger.Logger) (Reader, error) {
	if log == nil {
		log = logger.Noop()
	}
	switch mode {
	case ModeHost:
		return NewHostReader(log), nil
	case ModeFallback:
		log.Info("local instrumentation: fixed fallback values")
		return Fallback(), nil
	case ModeAuto, "":
		if err := capabilityCheck(ctx); err != nil {
			log.Warn("local instrumentation unavailable, serving fallback values: %v", err)
			return Fallback(), nil
		}
		return NewHostReader(log), nil
	default:
		return nil, fmt.Errorf("unknown instrumentation mode %q (want %s, %s or %s)", mode, ModeAuto, ModeHost, ModeFallback)
	}
}

// IsFallback reports whether r serves fixed values.
func IsFallback(r Reader) bool {
	_, ok := r.(fallbackReader)
	return ok
}
