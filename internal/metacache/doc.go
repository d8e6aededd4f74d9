// Package metacache provides a local cache of yt-dlp metadata resolutions.
//
// Resolving a link costs a full yt-dlp probe, often several seconds against a
// remote extractor. When the same URL is submitted again the cached title,
// duration, and uploader let the foreground lane mark the item resolved
// immediately.
//
// # Storage
//
// Entries live in a bbolt file next to the queue database (resolutions.db in
// the data directory), keyed by canonical URL with JSON values. Entries expire
// after the configured TTL; expired entries read as misses and are removed by
// Prune, which the daemon runs at startup.
package metacache
