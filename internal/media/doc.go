// Package media defines the supported image formats and the validation
// capability the discovery service depends on.
//
// The extension allow-list is a stable part of the public surface:
// adding a format is additive, removing one is breaking.
//
// Two Validator implementations are provided: ImagingValidator decodes
// with the pure-Go imaging stack, and VipsValidator uses libvips when
// the host has it available. Neither lets a decoder panic or error
// escape past the capability boundary.
package media
