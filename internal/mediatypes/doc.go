// Package mediatypes defines the media kind and MIME classification tables
// that seed the probe decoder order and name container MIME flavors.
package mediatypes
