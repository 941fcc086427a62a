// Package tile defines tile coordinates, the half-open ranges that bound a
// block of tiles, and the name templates that map a coordinate to the file
// or URL holding that tile.
package tile
