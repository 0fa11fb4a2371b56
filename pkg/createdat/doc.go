// Package createdat resolves the capture timestamp of a media file.
//
// Embedded metadata is preferred (EXIF for images, the mvhd box for
// ISO-BMFF videos, optionally exiftool for anything else). When no
// metadata is available the filesystem modification time is used. A
// user-supplied Shift is then applied to correct a badly set camera clock.
package createdat
