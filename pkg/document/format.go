package document

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/agentconf/pkg/errors"
)

// Format is the on-disk encoding of a ConfigDocument
type Format string

const (
	JSON Format = "json"
	TOML Format = "toml"
)

// FormatForPath picks the format from a file extension
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".toml":
		return TOML, nil
	}
	return "", errors.Newf(errors.ErrParse, "unsupported config format for %s", filepath.Base(path))
}

// IsBlank reports whether data holds nothing but whitespace. Blank documents
// are treated as absent.
func IsBlank(data []byte) bool {
	return len(bytes.TrimSpace(data)) == 0
}

// Decode parses data in the given format
func Decode(f Format, data []byte) (Value, error) {
	var (
		v   Value
		err error
	)
	switch f {
	case JSON:
		v, err = DecodeJSON(data)
	case TOML:
		v, err = DecodeTOML(data)
	default:
		return Value{}, errors.Newf(errors.ErrParse, "unknown format %q", f)
	}
	if err != nil {
		return Value{}, errors.Wrapf(err, errors.ErrParse, "invalid %s document", f)
	}
	return v, nil
}

// Encode writes v in the given format with default styling
func Encode(f Format, v Value) ([]byte, error) {
	return EncodeLike(f, v, nil)
}

// EncodeLike writes v in the given format, matching the style of original
// where the format allows it.
func EncodeLike(f Format, v Value, original []byte) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch f {
	case JSON:
		out, err = EncodeJSON(v, DetectJSONStyle(original))
	case TOML:
		out, err = EncodeTOML(v)
	default:
		return nil, errors.Newf(errors.ErrParse, "unknown format %q", f)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrParse, "cannot encode %s document", f)
	}
	return out, nil
}
