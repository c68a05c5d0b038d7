package validator

import (
	"io"
	"net/http"
)

// allowedImageMimeTypes 可以生成预览图的类型
var allowedImageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
}

// IsImage 嗅探前 512 字节判断是否为支持的图片，读取后将流重置到开头
func IsImage(file io.ReadSeeker) (bool, string, error) {
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return false, "", err
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return false, "", err
	}

	ok, mimeType := IsImageBytes(buffer[:n])
	return ok, mimeType, nil
}

// IsImageBytes 字节切片版本
func IsImageBytes(data []byte) (bool, string) {
	if len(data) == 0 {
		return false, ""
	}
	mimeType := http.DetectContentType(data)
	if allowedImageMimeTypes[mimeType] {
		return true, mimeType
	}
	return false, ""
}
