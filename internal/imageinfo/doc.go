// Package imageinfo inspects an uploaded insect photo before it is sent to
// the identification model. It records the sniffed type, size and BLAKE2b
// digest, plus the few EXIF fields that help a user match a report to a
// photo (capture time, camera). GPS coordinates are detected but never kept.
package imageinfo
