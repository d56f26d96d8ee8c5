// backend/src/security/validation/file_validation.go
package validation

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"unicode/utf8"

	"github.com/username/fundfolio/backend/src/logger"
)

// AllowedClientContentTypes is a map for quick lookup of allowed client-declared MIME types.
var AllowedClientContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true, // Often used for CSV by older Excel
	"text/plain":               true, // CSVs are often plain text
}

// ValidateClientContentType checks the Content-Type header provided by the client.
func ValidateClientContentType(contentType string) error {
	base := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if allowed := AllowedClientContentTypes[base]; !allowed {
		logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("client-declared file type '%s' is not allowed for CSV upload", contentType)
	}
	return nil
}

// isBinaryContent checks if a buffer contains binary control characters (like null bytes)
// which indicate the file is likely not a valid text-based CSV. When the buffer is a
// truncated window into a larger file, a multi-byte rune cut off at the window edge is
// not treated as binary content.
func isBinaryContent(buf []byte, truncated bool) bool {
	if bytes.IndexByte(buf, 0) != -1 {
		return true
	}
	if truncated {
		buf = trimPartialTrailingRune(buf)
	}
	if !utf8.Valid(buf) {
		return true
	}
	return false
}

// trimPartialTrailingRune drops trailing bytes that form the incomplete prefix of a
// multi-byte UTF-8 rune. Trailing bytes that cannot be such a prefix are kept, so
// genuinely malformed input still fails validation.
func trimPartialTrailingRune(buf []byte) []byte {
	for i := 1; i <= utf8.UTFMax && i <= len(buf); i++ {
		b := buf[len(buf)-i]
		if !utf8.RuneStart(b) {
			continue
		}
		tail := buf[len(buf)-i:]
		if r, size := utf8.DecodeRune(tail); r == utf8.RuneError && size == 1 && leadByteRuneLen(b) > len(tail) {
			return buf[:len(buf)-i]
		}
		return buf
	}
	return buf
}

// leadByteRuneLen reports the encoded length a UTF-8 lead byte announces.
func leadByteRuneLen(b byte) int {
	switch {
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	default:
		return 1
	}
}

// ValidateFileContent inspects the first bytes of the uploaded file to
// ensure it is text-based, then rewinds the file for the parser.
func ValidateFileContent(file multipart.File) error {
	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file content for validation: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind file after validation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("uploaded file is empty")
	}
	if isBinaryContent(buf[:n], n == len(buf)) {
		return fmt.Errorf("uploaded file does not look like a text-based CSV")
	}
	return nil
}
