package imaging

import (
	"errors"
	"fmt"
)

var (
	errEmptyImage    = errors.New("image has no pixels")
	errImageTooLarge = errors.New("image dimensions exceed pixel limit")
)

// DecodeError reports bytes that are not a supported raster image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// UnsupportedFormatError reports a decoded image whose color model cannot be
// reduced to three color channels.
type UnsupportedFormatError struct {
	Format     string
	ColorModel string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported %s image: color model %s has no color channels", e.Format, e.ColorModel)
}
