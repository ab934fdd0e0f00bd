package audio

import (
	"os"
	"syscall"
)

// pauseSignal and resumeSignal suspend and resume the child player process
// in place, so Pause/Resume preserve the process's internal decode state
// instead of killing and restarting it (unlike Seek, which must restart).
var (
	pauseSignal  os.Signal = syscall.SIGSTOP
	resumeSignal os.Signal = syscall.SIGCONT
)
