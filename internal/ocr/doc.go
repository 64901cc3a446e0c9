// Package ocr finds words in an image with Tesseract and turns them into
// virtual detections for the censoring pipeline.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Builds without CGO compile a stub whose Recognize always returns
// ErrUnavailable, so the rest of the module builds everywhere.
//
// # Languages
//
// The default language is English ("eng"). Other Tesseract language codes
// ("deu", "fra", "chi_sim", ...) work when their data files are installed.
//
// # Middleware
//
// Middleware runs the recognizer before censoring, but only when the
// request's parser censors its label (TEXT by default). Every word above the
// confidence threshold becomes a virtual detection, so the configured style
// for TEXT is applied to each word.
package ocr
