package util

import (
	"net/http"
	"strings"
)

func SniffMimeHTTP(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8 {
		return "image/jpeg"
	}
	if len(b) >= 8 &&
		b[0] == 0x89 && b[1] == 0x50 && b[2] == 0x4E && b[3] == 0x47 &&
		b[4] == 0x0D && b[5] == 0x0A && b[6] == 0x1A && b[7] == 0x0A {
		return "image/png"
	}
	return "application/octet-stream"
}

// PickMIME берём явный MIME, иначе детектим по байтам.
func PickMIME(explicit string, data []byte) string {
	if exp := strings.TrimSpace(explicit); exp != "" {
		return exp
	}
	if len(data) > 0 {
		if m := SniffMimeHTTP(data); m != "application/octet-stream" {
			return m
		}
		return http.DetectContentType(data) // вернёт image/webp|image/gif и т.д.
	}
	return "image/jpeg"
}
