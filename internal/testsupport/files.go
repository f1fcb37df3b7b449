package testsupport

import (
	"bytes"

	"github.com/klauspost/compress/gzip"
)

// GzipPayload compresses content the way landed structure files are stored.
func GzipPayload(content string) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write([]byte(content))
	_ = zw.Close()
	return buf.Bytes()
}
