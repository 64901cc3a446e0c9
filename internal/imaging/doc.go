// Package imaging is the codec layer of the censoring service: it turns
// bytes, files and data URLs into images and censored images back into
// bytes.
//
// # Formats
//
// Decoding recognises PNG, JPEG, GIF and WebP by content, never by file
// extension. The detected format travels with the image in a Source so the
// censored result can be written back in the same format. Encoding supports
// the same four formats; WebP output uses github.com/chai2010/webp and the
// others use github.com/disintegration/imaging.
//
// # Coordinate System
//
// Decoded images are not normalised here. Callers that need a zero-based
// drawing surface clone the image first (imaging.Clone does this).
//
// # Annotation
//
// Annotate outlines boxes on a copy of an image with small numeric
// captions. It backs the debug output of the censor command.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. All other functions are stateless.
//
// # Colours
//
// ParseColor accepts CSS-style hex ("#ff0000", "#f00", "ff0000") and a small
// set of colour names. It is used for effect parameters such as a bar colour
// or a caption outline.
package imaging
