package track

import "github.com/cockroachdb/errors"

// ErrRewrite marks failures of the instrumentation pass to produce a valid
// rewritten graph. Depending on Config.FallbackOnRewriteError the callee is
// then treated as a leaf or the error is surfaced.
var ErrRewrite = errors.New("track: instrumentation rewrite failed")

// ErrRecursionLimit marks traces truncated by the depth or node ceiling.
// The partially built root context is still returned, sealed at the point
// of truncation.
var ErrRecursionLimit = errors.New("track: recursion limit exceeded")
