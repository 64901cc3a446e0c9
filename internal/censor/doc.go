// Package censor is the compositing pipeline.
//
// A Censorer takes an image and its raw classifier detections and produces
// the censored image:
//
//	detections -> transformers -> middleware -> clip + sort by area
//	           -> Parser (label -> effects.Spec) -> Provider -> Mutation
//	           -> layer stack -> apply -> middleware -> encode
//
// Layer order is total and stable. Mutations are applied by ascending layer;
// within a layer they keep the order they were filed in, which is
// middleware first and then detections from smallest to largest.
//
// Errors follow three rules. A style no provider supports skips the
// detection with a warning. A provider error aborts the run, since a
// partially censored image is worse than none. A middleware error is
// recorded in Composite.Middleware, logged and otherwise ignored.
package censor
