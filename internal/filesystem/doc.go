/*
Package filesystem provides resilient filesystem operations with automatic
retry logic for NFS stale file handle errors.

The scanner and the probe step access media over NFS mounts where transient
ESTALE (stale file handle, errno 116) errors occur during network issues or
server-side changes. StatWithRetry, OpenWithRetry and ReadDirWithRetry wrap
os.Stat, os.Open and os.ReadDir with exponential backoff for exactly that
error class; all other errors fail immediately.

Defaults: 3 retries, 50ms initial backoff, 500ms cap.
*/
package filesystem
