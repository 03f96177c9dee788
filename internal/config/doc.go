// Package config defines configuration structures for the fontpack CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (FONTPACK_ prefix)
//   - YAML or TOML configuration file
//
// Later sources override earlier ones: defaults, then the file, then the
// environment, then flags.
//
// # Structure
//
//	type Config struct {
//	    Cache      string // gocloud bucket URL, e.g. file:///var/cache/fonts
//	    Prefix     string
//	    Workers    int    // 0 = one goroutine per fetch
//	    Timeout    time.Duration
//	    CopyBuffer int64
//	    Level      int    // deflate level; 0 and -1 select the default
//	    Progress   bool
//	    Retry      RetryConfig
//	    Log        LogConfig
//	}
package config
