// Package filesystem provides the filesystem helpers shared by the installer,
// the backup manager and the inverse operation.
//
// Everything works on an afero.Fs: the OS filesystem in production, a
// read-only wrapper during dry runs, and in-memory filesystems in tests.
package filesystem
