package types

// Version is the canonical project version.
// The CLI, the capture file format, and the adapter payloads share this
// version under the lockstep versioning policy.
const Version = "0.1.0"
