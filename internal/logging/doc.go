// Package logging builds the zap loggers used across fontpack.
//
// Components receive a *zap.Logger, tag it with a "component" field and log
// with typed fields. A nil logger is replaced by a no-op logger via OrNop.
package logging
