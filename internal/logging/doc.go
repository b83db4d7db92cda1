// Package logging provides the leveled logger used across the gallery
// server and CLI.
//
// Levels, from most to least verbose:
//   - DEBUG: per-event detail (skipped records, implicit root creation)
//   - INFO: lifecycle messages (index passes, resets, startup)
//   - WARN: recoverable problems (malformed paths, unreadable files)
//   - ERROR: failures that lose work (database writes, thumbnail errors)
//   - FATAL: startup errors that terminate the process
//
// The level comes from LOG_LEVEL, or DEBUG=true as a shortcut, and can be
// overridden at runtime with SetLevel.
package logging
