package types

// Version is the canonical project version, shared by the CLI and logs.
const Version = "1.2.0"
