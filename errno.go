package pathwatch

import "syscall"

// Sentinel errno values classified during path resolution, kept as their
// own small file the way the teacher's internal/unix.go isolates
// SyscallEACCES/UnixEACCES from the rest of its logic.
var (
	errEACCES  = syscall.EACCES
	errENOENT  = syscall.ENOENT
	errENOTDIR = syscall.ENOTDIR
	errEINVAL  = syscall.EINVAL
	errELOOP   = syscall.ELOOP
)
