// Package effects implements the censor styles.
//
// Each style is a Provider. Given the source image, one detection, its
// resolved Spec and the run-wide GlobalOptions, a provider returns a
// Mutation: a deferred drawing command that the pipeline files under a layer
// and applies after every detection has been processed. Providers never draw
// on the shared canvas themselves.
//
// Built-in styles:
//
//	blur       soft-masked Gaussian blur
//	pixelate   soft-masked block averaging
//	bars       solid rotated bar, no mask
//	sticker    background effect plus a random sticker
//	caption    background effect plus a random caption
//
// Masked styles pad the detection box, crop that region from the image,
// process it and cut it with the elliptical gradient from package mask so
// the edge fades into the surrounding pixels.
package effects
