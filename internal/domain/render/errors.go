package render

import "errors"

var (
	// ErrInvalidColor is returned for a color ParseColor does not understand.
	ErrInvalidColor = errors.New("invalid color")
	// ErrDecode is returned when template artwork cannot be decoded.
	ErrDecode = errors.New("decode template image")
	// ErrEncode is returned when the composited image cannot be encoded.
	ErrEncode = errors.New("encode award image")
	// ErrFont is returned when the typeface cannot be loaded.
	ErrFont = errors.New("load typeface")
)
