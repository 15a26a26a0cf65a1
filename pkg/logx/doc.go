// Package logx configures hwbot's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller, colors only on a TTY)
//   - File output JSON-structured
//   - Level changes live (Service.Apply) so config reloads don't rebuild loggers
package logx
