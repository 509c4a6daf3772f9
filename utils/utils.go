package utils

import (
	"net/http"
	"os"
)

// DetectFileContentType sniffs the MIME type of a file from its first
// bytes.
func DetectFileContentType(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}
