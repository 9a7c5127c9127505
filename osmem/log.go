package osmem

import "sync/atomic"

import log "github.com/bnclabs/golog"

var logok = int64(1) // logging enabled by default; osmem has no hot loop.

// LogEnable toggles logging for this package. Disabled it is a single
// atomic load per call site.
func LogEnable(enable bool) {
	if enable {
		atomic.StoreInt64(&logok, 1)
		return
	}
	atomic.StoreInt64(&logok, 0)
}

func debugf(format string, v ...interface{}) {
	if atomic.LoadInt64(&logok) > 0 {
		log.Debugf(format, v...)
	}
}

func infof(format string, v ...interface{}) {
	if atomic.LoadInt64(&logok) > 0 {
		log.Infof(format, v...)
	}
}

func warnf(format string, v ...interface{}) {
	if atomic.LoadInt64(&logok) > 0 {
		log.Warnf(format, v...)
	}
}

func errorf(format string, v ...interface{}) {
	if atomic.LoadInt64(&logok) > 0 {
		log.Errorf(format, v...)
	}
}
