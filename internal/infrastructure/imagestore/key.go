// Package imagestore хранилища снимков точек наблюдения.
package imagestore

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidHandle ссылка на снимок вне хранилища
var ErrInvalidHandle = errors.New("invalid image handle")

// objectKey ключ снимка: <field>/<spot><ext>. Исходное имя файла используется
// только ради расширения, поэтому не может выйти за пределы каталога поля.
func objectKey(fieldID, spotID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 6 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	if ext == "" {
		ext = ".jpg"
	}
	return path.Join(fieldID, spotID+ext)
}

func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return false
		}
	}
	return true
}
