package ocr

import "strconv"

// Tesseract-specific input options. Each attaches an engine variable to the
// input's metadata; the tesseract engine applies the variables it knows and
// other engines ignore them.

func setVariable(in *Input, key, value string) {
	if in.Metadata == nil {
		in.Metadata = make(map[string]string)
	}
	in.Metadata[key] = value
}

// WithTesseractPSM selects the page segmentation mode. Mode 6, a single
// uniform block of text, often beats the automatic default on screenshots
// and scanned slides.
func WithTesseractPSM(mode int) InputOption {
	return func(in *Input) {
		setVariable(in, "tessedit_pageseg_mode", strconv.Itoa(mode))
	}
}

// WithTesseractWhitelist limits recognition to the given characters, for
// inputs with a known alphabet such as serial numbers or amounts.
func WithTesseractWhitelist(chars string) InputOption {
	return func(in *Input) {
		setVariable(in, "tessedit_char_whitelist", chars)
	}
}
