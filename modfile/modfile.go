// Package modfile reads tracker modules into the normalized modpmv.Module
// shape. Two sources are supported: the plain-text module format (TITLE /
// SAMPLE / PATTERN / ORDER sections) and binary FastTracker II modules via
// the xmfile decoder. Other binary tracker formats have no decoder installed;
// reading them fails with ErrNoDecoder so callers can tell "missing decoder"
// apart from "decoder choked on this file".
package modfile

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modpmv/modpmv"
)

var (
	// ErrNoDecoder marks module formats that are recognized as binary
	// tracker files but for which no decoder is available.
	ErrNoDecoder = errors.New("no decoder installed for this module format")

	// ErrDecode marks files a decoder attempted but failed to parse.
	ErrDecode = errors.New("decoder failed to parse module")
)

// binaryExts are tracker container extensions we know about but cannot
// decode. They get the ErrNoDecoder treatment instead of being fed to the
// text parser, where they would degrade into an empty module.
var binaryExts = map[string]bool{
	".mod": true, ".s3m": true, ".it": true, ".mptm": true,
	".669": true, ".mtm": true, ".umx": true,
}

// Read parses the module file at path, dispatching on its extension: .xm goes
// through the binary decoder, known undecodable tracker formats fail with
// ErrNoDecoder, everything else is treated as the text format. The returned
// module is normalized.
func Read(path string) (*modpmv.Module, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case ext == ".xm":
		return ReadXM(path)
	case binaryExts[ext]:
		return nil, fmt.Errorf("%s: %w", path, ErrNoDecoder)
	default:
		return ReadText(path)
	}
}
