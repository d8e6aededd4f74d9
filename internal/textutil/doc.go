// Package textutil provides text processing utilities for filename
// sanitization and caption shaping.
//
// The primary use cases are:
//   - Turning media titles from arbitrary sources into safe filesystem names
//   - Stripping diacritics so filenames stay portable across filesystems
//   - Rune-safe truncation for Telegram title and caption limits
package textutil
